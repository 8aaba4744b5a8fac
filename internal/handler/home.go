package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/feedline/internal/service"
	"github.com/msomdec/feedline/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

// HandleIndex renders the landing page.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	nickname := ""
	if sc := SessionFromContext(r.Context()); sc != nil {
		sc.Lock()
		nickname = sc.DisplayName
		sc.Unlock()
	}
	render(w, r, http.StatusOK, view.IndexPage(nickname))
}

// HomeHandler serves the main page: posting and reading the feed.
type HomeHandler struct {
	sessions *service.SessionService
	feeds    *service.FeedService
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(sessions *service.SessionService, feeds *service.FeedService) *HomeHandler {
	return &HomeHandler{sessions: sessions, feeds: feeds}
}

// HandleHome renders the user's messages and the merged feed.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc == nil {
		renderError(w, r, http.StatusUnauthorized, "You must be logged in to use the app.", "/login")
		return
	}

	state := h.sessions.View(sc)
	feed, err := h.feeds.Aggregate(r.Context(), state.Follows)
	if err != nil {
		slog.Error("aggregate feed", "error", err)
		renderError(w, r, http.StatusInternalServerError, "Your feed could not be loaded.", "/home")
		return
	}

	render(w, r, http.StatusOK, view.HomePage(state.DisplayName, state.Messages, feed))
}

// HandlePost appends the submitted message and flushes the session.
// An empty message only redisplays the page.
func (h *HomeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc == nil {
		renderError(w, r, http.StatusUnauthorized, "You must be logged in to use the app.", "/login")
		return
	}

	appended, err := h.sessions.AppendMessage(sc, r.PostFormValue("message"))
	if err != nil {
		renderError(w, r, http.StatusUnauthorized, "Your session has ended. Please log in again.", "/login")
		return
	}
	if appended {
		if err := h.sessions.Flush(r.Context(), sc); err != nil {
			slog.Error("flush session after post", "error", err)
			renderError(w, r, http.StatusInternalServerError, "Your message could not be saved.", "/home")
			return
		}
	}

	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// HandleFeed re-renders the feed list over SSE.
func (h *HomeHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	state := h.sessions.View(sc)
	feed, err := h.feeds.Aggregate(r.Context(), state.Follows)
	if err != nil {
		slog.Error("aggregate feed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElementTempl(view.FeedList(feed)); err != nil {
		slog.Error("patch feed", "error", err)
	}
}
