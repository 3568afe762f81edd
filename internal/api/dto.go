package api

import (
	"time"

	"github.com/starford/legacygit/internal/journal"
)

// WatchState describes the watch loop driving replays.
type WatchState struct {
	Replaying   bool      `json:"replaying"`
	Replays     int       `json:"replays"`
	LastTrigger string    `json:"last_trigger,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Run   *journal.RunRow `json:"run"`
	Watch WatchState      `json:"watch"`
}

// ChainListResponse wraps the chains of the last replay.
type ChainListResponse struct {
	Chains []journal.ChainRow `json:"chains"`
}

// CommitListResponse wraps a page of replayed records.
type CommitListResponse struct {
	Commits []journal.CommitRow `json:"commits"`
	Total   int                 `json:"total"`
}
