package journal

import (
	"log/slog"

	"github.com/starford/legacygit/internal/checksum"
	"github.com/starford/legacygit/internal/models"
	"github.com/starford/legacygit/internal/replay"
)

// Recorder writes replay events of one run into the journal. Archive
// digests are computed once per archive path.
type Recorder struct {
	j       Journal
	runID   int64
	digests map[string]string
	logger  *slog.Logger
	err     error
}

// NewRecorder stores the chains of run and returns a recorder for its events.
func NewRecorder(j Journal, run int64, chains []models.Chain, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for i, c := range chains {
		if c.Len() == 0 {
			continue
		}
		row := ChainRow{Index: i, Root: c.Root().Reference, Head: c.Head().Reference, Length: c.Len()}
		if err := j.RecordChain(run, row); err != nil {
			return nil, err
		}
	}
	return &Recorder{j: j, runID: run, digests: map[string]string{}, logger: logger}, nil
}

// Handle stores ev. It matches replay.Options.OnEvent. The first storage
// error is kept and returned by Err; later events are still attempted.
func (r *Recorder) Handle(ev replay.Event) {
	var err error
	switch ev.Kind {
	case replay.EventBranch:
		err = r.j.SetChainBranch(r.runID, ev.Chain, ev.Branch)
	case replay.EventSkipped:
		err = r.j.RecordCommit(r.runID, CommitRow{
			Chain:     ev.Chain,
			Position:  ev.Position,
			Reference: ev.Reference,
			Status:    StatusSkipped,
			Commit:    ev.Commit,
		})
	case replay.EventCommitted:
		err = r.j.RecordCommit(r.runID, CommitRow{
			Chain:     ev.Chain,
			Position:  ev.Position,
			Reference: ev.Reference,
			Status:    StatusCommitted,
			Commit:    ev.Commit,
			Branch:    ev.Branch,
			Archive:   ev.Archive,
			Digest:    r.digest(ev.Archive),
			Fallback:  ev.Fallback,
			Author:    ev.Author,
			CreatedAt: ev.When,
		})
	}
	if err != nil {
		r.logger.Error("journal write failed", "kind", ev.Kind, "reference", ev.Reference, "error", err)
		if r.err == nil {
			r.err = err
		}
	}
}

// Err returns the first error seen by Handle.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) digest(path string) string {
	if path == "" {
		return ""
	}
	if d, ok := r.digests[path]; ok {
		return d
	}
	d, err := checksum.File(path)
	if err != nil {
		r.logger.Warn("archive digest failed", "archive", path, "error", err)
		return ""
	}
	r.digests[path] = d
	return d
}
