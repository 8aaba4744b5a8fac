package service_test

import (
	"testing"
	"time"

	"github.com/msomdec/feedline/internal/service"
)

func TestLoginThrottle_AllowsUpToBurst(t *testing.T) {
	lt := service.NewLoginThrottle(1, 3)
	now := time.Unix(1000, 0)
	lt.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !lt.Allow("amy@x.com") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if lt.Allow("amy@x.com") {
		t.Fatal("4th attempt should be denied")
	}
}

func TestLoginThrottle_IdentitiesAreIndependent(t *testing.T) {
	lt := service.NewLoginThrottle(1, 1)
	now := time.Unix(1000, 0)
	lt.SetClock(func() time.Time { return now })

	if !lt.Allow("amy@x.com") {
		t.Fatal("amy first attempt should be allowed")
	}
	if lt.Allow("amy@x.com") {
		t.Fatal("amy second attempt should be denied")
	}
	if !lt.Allow("bob@x.com") {
		t.Fatal("bob has a separate bucket")
	}
}

func TestLoginThrottle_Refills(t *testing.T) {
	lt := service.NewLoginThrottle(0.5, 1)
	now := time.Unix(1000, 0)
	lt.SetClock(func() time.Time { return now })

	if !lt.Allow("amy@x.com") {
		t.Fatal("first attempt should be allowed")
	}
	now = now.Add(time.Second)
	if lt.Allow("amy@x.com") {
		t.Fatal("half a token is not enough")
	}
	now = now.Add(1500 * time.Millisecond)
	if !lt.Allow("amy@x.com") {
		t.Fatal("expected a full token after 2.5 seconds")
	}
}

func TestLoginThrottle_Reset(t *testing.T) {
	lt := service.NewLoginThrottle(0, 1)

	if !lt.Allow("amy@x.com") {
		t.Fatal("first attempt should be allowed")
	}
	if lt.Allow("amy@x.com") {
		t.Fatal("second attempt should be denied")
	}
	lt.Reset("amy@x.com")
	if !lt.Allow("amy@x.com") {
		t.Fatal("attempt after reset should be allowed")
	}
}
