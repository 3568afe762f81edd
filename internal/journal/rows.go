package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/legacygit/internal/apperr"
)

// RunStats are the counters stored when a run finishes.
type RunStats struct {
	Chains    int `json:"chains"`
	Commits   int `json:"commits"`
	Skipped   int `json:"skipped"`
	Fallbacks int `json:"fallbacks"`
}

// RunRow represents a row in the runs table.
type RunRow struct {
	ID         int64      `json:"id"`
	UID        string     `json:"uid"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	RunStats
}

// ChainRow represents a row in the chains table.
type ChainRow struct {
	Index  int    `json:"index"`
	Root   string `json:"root"`
	Head   string `json:"head"`
	Length int    `json:"length"`
	Branch string `json:"branch,omitempty"`
}

// CommitRow represents what happened to one record of a chain.
type CommitRow struct {
	Chain     int       `json:"chain"`
	Position  int       `json:"position"`
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Archive   string    `json:"archive,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// BeginRun clears every earlier run and opens a new one. The journal only
// ever describes the repository as last rebuilt.
func (db *DB) BeginRun(started time.Time) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM runs`); err != nil {
		return 0, fmt.Errorf("journal: clear runs: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO runs (uid, started_at, status) VALUES (?, ?, ?)`,
		uuid.NewString(), started.UTC(), RunRunning)
	if err != nil {
		return 0, fmt.Errorf("journal: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: run id: %w", err)
	}
	return id, tx.Commit()
}

// FinishRun stores the outcome of a run. A non-nil runErr marks it failed.
func (db *DB) FinishRun(id int64, stats RunStats, runErr error) error {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	_, err := db.conn.Exec(`
		UPDATE runs SET
			finished_at = ?,
			status      = ?,
			error       = ?,
			chains      = ?,
			commits     = ?,
			skipped     = ?,
			fallbacks   = ?
		WHERE id = ?
	`, time.Now().UTC(), status, msg, stats.Chains, stats.Commits, stats.Skipped, stats.Fallbacks, id)
	if err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

// RecordChain stores one chain of a run.
func (db *DB) RecordChain(runID int64, c ChainRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO chains (run_id, idx, root, head, length, branch)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO UPDATE SET
			root   = excluded.root,
			head   = excluded.head,
			length = excluded.length
	`, runID, c.Index, c.Root, c.Head, c.Length, c.Branch)
	if err != nil {
		return fmt.Errorf("journal: record chain: %w", err)
	}
	return nil
}

// SetChainBranch records the branch a chain was replayed onto.
func (db *DB) SetChainBranch(runID int64, idx int, branch string) error {
	_, err := db.conn.Exec(`UPDATE chains SET branch = ? WHERE run_id = ? AND idx = ?`, branch, runID, idx)
	if err != nil {
		return fmt.Errorf("journal: set chain branch: %w", err)
	}
	return nil
}

// RecordCommit stores the outcome for one record.
func (db *DB) RecordCommit(runID int64, c CommitRow) error {
	var created any
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.UTC()
	}
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO commits
			(run_id, chain_idx, position, reference, status, commit_id, branch, archive, digest, fallback, author, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, c.Chain, c.Position, c.Reference, c.Status, c.Commit, c.Branch, c.Archive, c.Digest, c.Fallback, c.Author, created)
	if err != nil {
		return fmt.Errorf("journal: record commit: %w", err)
	}
	return nil
}

// LastRun returns the most recent run, or apperr.ErrNotFound.
func (db *DB) LastRun() (*RunRow, error) {
	var (
		r        RunRow
		finished sql.NullTime
	)
	err := db.conn.QueryRow(`
		SELECT id, uid, started_at, finished_at, status, error, chains, commits, skipped, fallbacks
		FROM runs ORDER BY id DESC LIMIT 1
	`).Scan(&r.ID, &r.UID, &r.StartedAt, &finished, &r.Status, &r.Error, &r.Chains, &r.Commits, &r.Skipped, &r.Fallbacks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal: last run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

// ListChains returns the chains of the latest run in replay order.
func (db *DB) ListChains() ([]ChainRow, error) {
	rows, err := db.conn.Query(`
		SELECT idx, root, head, length, branch FROM chains
		WHERE run_id = (SELECT MAX(id) FROM runs)
		ORDER BY idx
	`)
	if err != nil {
		return nil, fmt.Errorf("journal: list chains: %w", err)
	}
	defer rows.Close()

	var out []ChainRow
	for rows.Next() {
		var c ChainRow
		if err := rows.Scan(&c.Index, &c.Root, &c.Head, &c.Length, &c.Branch); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const commitColumns = `chain_idx, position, reference, status, commit_id, branch, archive, digest, fallback, author, created_at`

// ListCommits returns records of the latest run in replay order with the
// total count. chain < 0 lists every chain.
func (db *DB) ListCommits(chain, limit, offset int) ([]CommitRow, int, error) {
	if limit <= 0 {
		limit = 100
	}
	where := `run_id = (SELECT MAX(id) FROM runs)`
	args := []any{}
	if chain >= 0 {
		where += ` AND chain_idx = ?`
		args = append(args, chain)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM commits WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("journal: count commits: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+commitColumns+` FROM commits WHERE `+where+
		` ORDER BY chain_idx, position LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("journal: list commits: %w", err)
	}
	defer rows.Close()

	var out []CommitRow
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// Lookup returns the commit a reference was replayed as, preferring a real
// commit over a skip. Returns apperr.ErrNotFound when the reference is unknown.
func (db *DB) Lookup(reference string) (*CommitRow, error) {
	row := db.conn.QueryRow(`SELECT `+commitColumns+` FROM commits
		WHERE run_id = (SELECT MAX(id) FROM runs) AND reference = ?
		ORDER BY status = 'committed' DESC, chain_idx, position
		LIMIT 1`, reference)
	c, err := scanCommit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal: lookup %s: %w", reference, err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommit(s scanner) (*CommitRow, error) {
	var (
		c       CommitRow
		created sql.NullTime
	)
	err := s.Scan(&c.Chain, &c.Position, &c.Reference, &c.Status, &c.Commit, &c.Branch,
		&c.Archive, &c.Digest, &c.Fallback, &c.Author, &created)
	if err != nil {
		return nil, err
	}
	if created.Valid {
		c.CreatedAt = created.Time
	}
	return &c, nil
}
