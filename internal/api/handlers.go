package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/legacygit/internal/apperr"
	"github.com/starford/legacygit/internal/journal"
)

// StateFunc reports the current watch state.
type StateFunc func() WatchState

// Handler holds API route handlers.
type Handler struct {
	journal journal.Journal
	state   StateFunc
}

// NewHandler creates a new Handler. state may be nil.
func NewHandler(j journal.Journal, state StateFunc) *Handler {
	if state == nil {
		state = func() WatchState { return WatchState{} }
	}
	return &Handler{journal: j, state: state}
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Watch: h.state()}
	run, err := h.journal.LastRun()
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		internalError(w, "last run", err)
		return
	default:
		resp.Run = run
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListChains handles GET /api/chains.
func (h *Handler) ListChains(w http.ResponseWriter, _ *http.Request) {
	chains, err := h.journal.ListChains()
	if err != nil {
		internalError(w, "list chains", err)
		return
	}
	if chains == nil {
		chains = []journal.ChainRow{}
	}
	writeJSON(w, http.StatusOK, ChainListResponse{Chains: chains})
}

// ListCommits handles GET /api/commits?chain=&limit=&offset=.
func (h *Handler) ListCommits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chain := -1
	if v := q.Get("chain"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("chain must be a non-negative integer"))
			return
		}
		chain = n
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	commits, total, err := h.journal.ListCommits(chain, limit, offset)
	if err != nil {
		internalError(w, "list commits", err)
		return
	}
	if commits == nil {
		commits = []journal.CommitRow{}
	}
	writeJSON(w, http.StatusOK, CommitListResponse{Commits: commits, Total: total})
}

// GetCommit handles GET /api/commits/{reference}. The reference is the
// rest of the path, so it may contain slashes.
func (h *Handler) GetCommit(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	if ref == "" {
		writeJSON(w, http.StatusNotFound, errorBody("reference not found"))
		return
	}
	row, err := h.journal.Lookup(ref)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("reference not found"))
		return
	}
	if err != nil {
		internalError(w, "lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}
