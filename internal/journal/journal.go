// Package journal keeps a SQLite record of the last replay: its chains and
// what happened to every record.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	uid         TEXT NOT NULL UNIQUE,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	chains      INTEGER NOT NULL DEFAULT 0,
	commits     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	fallbacks   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chains (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx    INTEGER NOT NULL,
	root   TEXT NOT NULL,
	head   TEXT NOT NULL,
	length INTEGER NOT NULL,
	branch TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS commits (
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	chain_idx  INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	reference  TEXT NOT NULL,
	status     TEXT NOT NULL,
	commit_id  TEXT NOT NULL DEFAULT '',
	branch     TEXT NOT NULL DEFAULT '',
	archive    TEXT NOT NULL DEFAULT '',
	digest     TEXT NOT NULL DEFAULT '',
	fallback   INTEGER NOT NULL DEFAULT 0,
	author     TEXT NOT NULL DEFAULT '',
	created_at DATETIME,
	PRIMARY KEY (run_id, chain_idx, position)
);

CREATE INDEX IF NOT EXISTS idx_commits_reference ON commits(reference);
`

// Commit statuses.
const (
	StatusCommitted = "committed"
	StatusSkipped   = "skipped"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Journal is the read/write surface over the replay journal. Consumers
// depend on it rather than *DB so handlers can be tested with fakes.
type Journal interface {
	BeginRun(started time.Time) (int64, error)
	FinishRun(id int64, stats RunStats, runErr error) error
	RecordChain(runID int64, c ChainRow) error
	SetChainBranch(runID int64, idx int, branch string) error
	RecordCommit(runID int64, c CommitRow) error
	LastRun() (*RunRow, error)
	ListChains() ([]ChainRow, error)
	ListCommits(chain, limit, offset int) ([]CommitRow, int, error)
	Lookup(reference string) (*CommitRow, error)
	Close() error
}

var _ Journal = (*DB)(nil)

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
