package service

import (
	"context"
	"sync"
	"time"
)

// LoginThrottle limits login attempts per identity with a token bucket.
// It is safe for concurrent use.
type LoginThrottle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens added per second
	burst   float64
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLoginThrottle allows burst attempts per identity, refilling at rate
// attempts per second.
func NewLoginThrottle(rate, burst float64) *LoginThrottle {
	return &LoginThrottle{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for refills.
func (t *LoginThrottle) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Allow consumes one attempt for identity and reports whether it was available.
func (t *LoginThrottle) Allow(identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[identity]
	if !ok {
		b = &bucket{tokens: t.burst, last: now}
		t.buckets[identity] = b
	}

	b.tokens = min(b.tokens+now.Sub(b.last).Seconds()*t.rate, t.burst)
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Reset restores the full allowance for identity after a successful login.
func (t *LoginThrottle) Reset(identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.buckets, identity)
}

// Run drops buckets idle for more than idle, checking every interval,
// until ctx is done.
func (t *LoginThrottle) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.prune(idle)
		}
	}
}

func (t *LoginThrottle) prune(idle time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-idle)
	for key, b := range t.buckets {
		if b.last.Before(cutoff) {
			delete(t.buckets, key)
		}
	}
}
