package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/msomdec/feedline/internal/service"
	"github.com/msomdec/feedline/internal/view"
)

// ProfileHandler shows and edits the profile and follow list.
type ProfileHandler struct {
	sessions  *service.SessionService
	directory *service.DirectoryService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(sessions *service.SessionService, directory *service.DirectoryService) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, directory: directory}
}

// HandleProfile renders the profile form with the follow candidates.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc == nil {
		renderError(w, r, http.StatusUnauthorized, "You must be logged in to use the app.", "/login")
		return
	}

	state := h.sessions.View(sc)
	candidates, err := h.directory.ListIdentities(r.Context(), state.Identity)
	if err != nil {
		slog.Error("list identities", "error", err)
		renderError(w, r, http.StatusInternalServerError, "The user list could not be loaded.", "/home")
		return
	}

	render(w, r, http.StatusOK, view.ProfilePage(state.DisplayName, state.Identity, state.Credential, state.Follows, candidates))
}

// HandleUpdate overwrites nickname, password and follows, then flushes.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc == nil {
		renderError(w, r, http.StatusUnauthorized, "You must be logged in to use the app.", "/login")
		return
	}

	if missing := missingFields(r, "nickname", "passwd"); len(missing) > 0 {
		render(w, r, http.StatusUnprocessableEntity, view.MissingFieldsPage(missing, "/profile"))
		return
	}

	var follows []string
	for _, f := range r.PostForm["friends"] {
		if f = strings.TrimSpace(f); f != "" {
			follows = append(follows, f)
		}
	}

	if err := h.sessions.UpdateProfile(sc, r.PostFormValue("nickname"), r.PostFormValue("passwd"), follows); err != nil {
		slog.Error("update profile", "error", err)
		renderError(w, r, http.StatusInternalServerError, "Your profile could not be updated.", "/profile")
		return
	}
	if err := h.sessions.Flush(r.Context(), sc); err != nil {
		slog.Error("flush session after profile update", "error", err)
		renderError(w, r, http.StatusInternalServerError, "Your profile could not be saved.", "/profile")
		return
	}

	http.Redirect(w, r, "/home", http.StatusSeeOther)
}
