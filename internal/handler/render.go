package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/msomdec/feedline/internal/view"
)

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render page", "path", r.URL.Path, "error", err)
	}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message, next string) {
	render(w, r, status, view.ErrorPage(message, next))
}

// missingFields returns the names of the form fields that are absent or empty.
func missingFields(r *http.Request, fields ...string) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(r.PostFormValue(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
