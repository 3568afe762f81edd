package replay

import "time"

// Event kinds emitted while replaying.
const (
	EventBootstrap = "repo.bootstrapped"
	EventBranch    = "branch.created"
	EventCommitted = "commit.created"
	EventSkipped   = "commit.skipped"
	EventFinished  = "replay.finished"
)

// Event describes one step of a replay. Chain and Position are -1 when
// they do not apply.
type Event struct {
	Kind      string    `json:"kind"`
	Chain     int       `json:"chain"`
	Position  int       `json:"position"`
	Reference string    `json:"reference,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Archive   string    `json:"archive,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
	Author    string    `json:"author,omitempty"`
	When      time.Time `json:"when,omitempty"`
}
