package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	auth *service.AuthService,
	sessions *service.SessionService,
	feeds *service.FeedService,
	directory *service.DirectoryService,
	throttle *service.LoginThrottle,
	records domain.RecordRepository,
	sessionTTL time.Duration,
	cookieSecure bool,
) {
	authH := NewAuthHandler(auth, sessions, throttle, sessionTTL, cookieSecure)
	homeH := NewHomeHandler(sessions, feeds)
	profileH := NewProfileHandler(sessions, directory)
	healthH := NewHealthHandler(records)

	optional := func(f http.HandlerFunc) http.Handler { return OptionalSession(auth, sessions, f) }
	required := func(f http.HandlerFunc) http.Handler { return RequireSession(auth, sessions, f) }

	mux.HandleFunc("GET /healthz", healthH.HandleHealthz)

	mux.Handle("GET /{$}", optional(HandleIndex))
	mux.Handle("GET /index", optional(HandleIndex))

	mux.HandleFunc("GET /login", authH.HandleLoginPage)
	mux.HandleFunc("POST /login", authH.HandleLogin)
	mux.HandleFunc("GET /signup", authH.HandleSignupPage)
	mux.HandleFunc("POST /signup", authH.HandleSignup)
	mux.Handle("GET /logout", optional(authH.HandleLogout))
	mux.Handle("POST /logout", optional(authH.HandleLogout))

	mux.Handle("GET /home", required(homeH.HandleHome))
	mux.Handle("POST /home", required(homeH.HandlePost))
	mux.Handle("GET /feed", required(homeH.HandleFeed))

	mux.Handle("GET /profile", required(profileH.HandleProfile))
	mux.Handle("POST /profile", required(profileH.HandleUpdate))
}
