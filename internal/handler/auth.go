package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/service"
	"github.com/msomdec/feedline/internal/view"
)

// AuthHandler handles login, signup and logout.
type AuthHandler struct {
	auth         *service.AuthService
	sessions     *service.SessionService
	throttle     *service.LoginThrottle
	sessionTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, sessions *service.SessionService, throttle *service.LoginThrottle, sessionTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		sessions:     sessions,
		throttle:     throttle,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
	}
}

// HandleLoginPage renders the login form.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, view.LoginPage())
}

// HandleLogin checks the submitted credentials and opens a session.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if missing := missingFields(r, "email", "passwd", "login_submit"); len(missing) > 0 {
		render(w, r, http.StatusUnprocessableEntity, view.MissingFieldsPage(missing, "/login"))
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	if h.throttle != nil && !h.throttle.Allow(email) {
		renderError(w, r, http.StatusTooManyRequests, "Too many login attempts. Please wait a moment and try again.", "/login")
		return
	}

	rec, err := h.auth.Authenticate(r.Context(), email, r.PostFormValue("passwd"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			renderError(w, r, http.StatusUnauthorized, "User not found.", "/login")
		case errors.Is(err, domain.ErrCredentialMismatch):
			renderError(w, r, http.StatusUnauthorized, "Incorrect password.", "/login")
		default:
			slog.Error("authenticate", "error", err)
			renderError(w, r, http.StatusInternalServerError, "An unexpected error occurred. Please try again.", "/login")
		}
		return
	}

	if h.throttle != nil {
		h.throttle.Reset(email)
	}
	h.startSession(w, r, rec)
}

// HandleSignupPage renders the registration form.
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, view.SignupPage())
}

// HandleSignup registers a new identity and opens a session for it.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if missing := missingFields(r, "nickname", "email", "passwd", "confirm", "signup_submit"); len(missing) > 0 {
		render(w, r, http.StatusUnprocessableEntity, view.MissingFieldsPage(missing, "/signup"))
		return
	}

	rec, err := h.auth.Register(r.Context(),
		r.PostFormValue("nickname"),
		strings.TrimSpace(r.PostFormValue("email")),
		r.PostFormValue("passwd"),
		r.PostFormValue("confirm"),
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			renderError(w, r, http.StatusConflict, "The email is already used, you must select a different email.", "/signup")
		case errors.Is(err, domain.ErrCredentialMismatch):
			renderError(w, r, http.StatusUnprocessableEntity, "Your password and confirmation password do not match.", "/signup")
		case errors.Is(err, domain.ErrMissingInput), errors.Is(err, domain.ErrInvalidInput):
			renderError(w, r, http.StatusUnprocessableEntity, err.Error(), "/signup")
		default:
			slog.Error("register", "error", err)
			renderError(w, r, http.StatusInternalServerError, "An unexpected error occurred. Please try again.", "/signup")
		}
		return
	}

	h.startSession(w, r, rec)
}

// HandleLogout flushes the session, closes it and clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sc := SessionFromContext(r.Context()); sc != nil {
		if err := h.sessions.Flush(r.Context(), sc); err != nil {
			slog.Error("flush session on logout", "error", err)
			renderError(w, r, http.StatusInternalServerError, "Your changes could not be saved. Please try again.", "/home")
			return
		}
		h.sessions.Close(sc)
	}

	clearSessionCookie(w, h.cookieSecure)
	http.Redirect(w, r, "/index", http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, rec *domain.UserRecord) {
	sc := h.sessions.Open(rec)
	token, err := h.auth.IssueToken(sc)
	if err != nil {
		h.sessions.Close(sc)
		slog.Error("issue session token", "error", err)
		renderError(w, r, http.StatusInternalServerError, "An unexpected error occurred. Please try again.", "/login")
		return
	}

	setSessionCookie(w, token, h.sessionTTL, h.cookieSecure)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}
