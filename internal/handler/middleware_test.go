package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/handler"
	"github.com/msomdec/feedline/internal/repository/disk"
	"github.com/msomdec/feedline/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

type testServices struct {
	records   domain.RecordRepository
	auth      *service.AuthService
	sessions  *service.SessionService
	feeds     *service.FeedService
	directory *service.DirectoryService
	throttle  *service.LoginThrottle
}

func newTestServicesWith(t *testing.T, records domain.RecordRepository) *testServices {
	t.Helper()
	creds := service.PlainCredentials{}
	return &testServices{
		records:   records,
		auth:      service.NewAuthService(records, creds, testJWTSecret, time.Hour),
		sessions:  service.NewSessionService(records, creds, service.NewSessionRegistry(time.Hour)),
		feeds:     service.NewFeedService(records),
		directory: service.NewDirectoryService(records),
		throttle:  service.NewLoginThrottle(1, 5),
	}
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store, err := disk.New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("disk.New: %v", err)
	}
	return newTestServicesWith(t, store)
}

func (s *testServices) mux() *http.ServeMux {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, s.auth, s.sessions, s.feeds, s.directory, s.throttle, s.records, time.Hour, false)
	return mux
}

// login registers identity and returns a valid cookie value for a fresh session.
func (s *testServices) login(t *testing.T, identity string) (*domain.SessionContext, string) {
	t.Helper()
	ctx := context.Background()
	rec, err := s.auth.Register(ctx, "Name of "+identity, identity, "pw", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	sc := s.sessions.Open(rec)
	token, err := s.auth.IssueToken(sc)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return sc, token
}

func TestRequireSession_ValidCookie(t *testing.T) {
	svc := newTestServices(t)
	_, token := svc.login(t, "amy@x.com")

	var gotIdentity string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sc := handler.SessionFromContext(r.Context()); sc != nil {
			gotIdentity = sc.Identity
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	w := httptest.NewRecorder()

	handler.RequireSession(svc.auth, svc.sessions, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotIdentity != "amy@x.com" {
		t.Fatalf("expected amy@x.com in context, got %q", gotIdentity)
	}
}

func TestRequireSession_MissingCookie(t *testing.T) {
	svc := newTestServices(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	handler.RequireSession(svc.auth, svc.sessions, inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireSession_ClosedSession(t *testing.T) {
	svc := newTestServices(t)
	sc, token := svc.login(t, "amy@x.com")
	svc.sessions.Close(sc)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	w := httptest.NewRecorder()

	handler.RequireSession(svc.auth, svc.sessions, inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a closed session, got %d", w.Code)
	}
}

func TestOptionalSession_InvalidCookie(t *testing.T) {
	svc := newTestServices(t)

	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if handler.SessionFromContext(r.Context()) != nil {
			t.Fatal("expected no session in context")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "garbage"})
	handler.OptionalSession(svc.auth, svc.sessions, inner).ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("expected inner handler to run")
	}
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	w := httptest.NewRecorder()

	handler.SecurityHeaders(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
}
