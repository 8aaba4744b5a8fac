package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

const sessionCookieName = "session_token"

// SessionFromContext extracts the open session from the request context.
// Returns nil if the request is not authenticated.
func SessionFromContext(ctx context.Context) *domain.SessionContext {
	sc, _ := ctx.Value(sessionContextKey).(*domain.SessionContext)
	return sc
}

// RequireSession protects routes that need a logged-in user. Requests
// without a live session get the error page with a link to the login form.
func RequireSession(auth *service.AuthService, sessions *service.SessionService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, err := sessionFromRequest(r, auth, sessions)
		if err != nil {
			renderError(w, r, http.StatusUnauthorized, "You must be logged in to use the app.", "/login")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalSession attaches the session when there is one and otherwise
// lets the request through unchanged.
func OptionalSession(auth *service.AuthService, sessions *service.SessionService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sc, err := sessionFromRequest(r, auth, sessions); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, sc))
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative browser security headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func sessionFromRequest(r *http.Request, auth *service.AuthService, sessions *service.SessionService) (*domain.SessionContext, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, err
	}

	claims, err := auth.ValidateToken(cookie.Value)
	if err != nil {
		return nil, err
	}

	sc, err := sessions.Get(claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sc.Identity != claims.Identity {
		return nil, domain.ErrUnauthorized
	}
	return sc, nil
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
