package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/legacygit/internal/apperr"
	"github.com/starford/legacygit/internal/checksum"
	"github.com/starford/legacygit/internal/models"
	"github.com/starford/legacygit/internal/replay"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"runs", "chains", "commits"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestLastRunEmpty(t *testing.T) {
	db := testDB(t)
	if _, err := db.LastRun(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	id, err := db.BeginRun(time.Now())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	run, err := db.LastRun()
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != id || run.Status != RunRunning || run.FinishedAt != nil || run.UID == "" {
		t.Errorf("run = %+v", run)
	}

	if err := db.FinishRun(id, RunStats{Chains: 2, Commits: 3, Skipped: 1}, errors.New("boom")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, _ = db.LastRun()
	if run.Status != RunFailed || run.Error != "boom" || run.Commits != 3 || run.FinishedAt == nil {
		t.Errorf("run = %+v", run)
	}
}

func TestBeginRunClearsPrevious(t *testing.T) {
	db := testDB(t)
	first, _ := db.BeginRun(time.Now())
	_ = db.RecordChain(first, ChainRow{Index: 0, Root: "A", Head: "B", Length: 2})
	_ = db.RecordCommit(first, CommitRow{Chain: 0, Position: 0, Reference: "A", Status: StatusCommitted})

	second, err := db.BeginRun(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Fatalf("run ids reused")
	}
	chains, _ := db.ListChains()
	if len(chains) != 0 {
		t.Errorf("chains survived a new run: %v", chains)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM commits`).Scan(&n)
	if n != 0 {
		t.Errorf("%d commits survived a new run", n)
	}
}

func TestChainsAndCommits(t *testing.T) {
	db := testDB(t)
	id, _ := db.BeginRun(time.Now())
	_ = db.RecordChain(id, ChainRow{Index: 0, Root: "R1", Head: "R2", Length: 2})
	_ = db.RecordChain(id, ChainRow{Index: 1, Root: "R2b", Head: "R3", Length: 2})
	if err := db.SetChainBranch(id, 1, "R3"); err != nil {
		t.Fatal(err)
	}

	when := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := []CommitRow{
		{Chain: 0, Position: 0, Reference: "R1", Status: StatusCommitted, Commit: "c1", Branch: "R2"},
		{Chain: 0, Position: 1, Reference: "R2", Status: StatusCommitted, Commit: "c2", Branch: "R2", Fallback: true, CreatedAt: when},
		{Chain: 1, Position: 0, Reference: "R2", Status: StatusSkipped, Commit: "c2"},
		{Chain: 1, Position: 1, Reference: "R3", Status: StatusCommitted, Commit: "c3", Branch: "R3"},
	}
	for _, r := range rows {
		if err := db.RecordCommit(id, r); err != nil {
			t.Fatalf("RecordCommit: %v", err)
		}
	}

	chains, err := db.ListChains()
	if err != nil {
		t.Fatal(err)
	}
	if len(chains) != 2 || chains[1].Branch != "R3" || chains[0].Branch != "" {
		t.Errorf("chains = %+v", chains)
	}

	all, total, err := db.ListCommits(-1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(all) != 4 || all[3].Reference != "R3" {
		t.Errorf("commits = %+v (total %d)", all, total)
	}
	if !all[1].Fallback || !all[1].CreatedAt.Equal(when) {
		t.Errorf("row = %+v", all[1])
	}

	page, total, _ := db.ListCommits(1, 1, 1)
	if total != 2 || len(page) != 1 || page[0].Reference != "R3" {
		t.Errorf("page = %+v (total %d)", page, total)
	}

	hit, err := db.Lookup("R2")
	if err != nil {
		t.Fatal(err)
	}
	if hit.Status != StatusCommitted || hit.Chain != 0 {
		t.Errorf("Lookup prefers committed row, got %+v", hit)
	}
	if _, err := db.Lookup("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Lookup err = %v", err)
	}
}

func TestRecorder(t *testing.T) {
	db := testDB(t)
	id, _ := db.BeginRun(time.Now())

	archivePath := filepath.Join(t.TempDir(), "R1.zip")
	if err := os.WriteFile(archivePath, []byte("snapshot"), 0o644); err != nil {
		t.Fatal(err)
	}

	chains := []models.Chain{
		{Records: []models.VersionRecord{{Reference: "R1"}, {Reference: "R2"}}},
	}
	rec, err := NewRecorder(db, id, chains, nil)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	rec.Handle(replay.Event{Kind: replay.EventBootstrap, Chain: 0, Position: -1, Commit: "c0"})
	rec.Handle(replay.Event{Kind: replay.EventBranch, Chain: 0, Position: -1, Branch: "R2", Commit: "c0"})
	rec.Handle(replay.Event{Kind: replay.EventCommitted, Chain: 0, Position: 0, Reference: "R1", Branch: "R2", Commit: "c1", Archive: archivePath})
	rec.Handle(replay.Event{Kind: replay.EventCommitted, Chain: 0, Position: 1, Reference: "R2", Branch: "R2", Commit: "c2", Archive: archivePath, Fallback: true})
	if err := rec.Err(); err != nil {
		t.Fatalf("Recorder.Err: %v", err)
	}

	chainRows, _ := db.ListChains()
	if len(chainRows) != 1 || chainRows[0].Branch != "R2" || chainRows[0].Length != 2 {
		t.Errorf("chains = %+v", chainRows)
	}
	hit, err := db.Lookup("R1")
	if err != nil {
		t.Fatal(err)
	}
	if hit.Digest != checksum.Sum([]byte("snapshot")) {
		t.Errorf("digest = %q", hit.Digest)
	}
}
