package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/legacygit/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(j journal.Journal, state StateFunc, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(j, state)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)
	r.Get("/chains", h.ListChains)
	r.Get("/commits", h.ListCommits)
	r.Get("/commits/*", h.GetCommit)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
