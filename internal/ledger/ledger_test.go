package ledger

import "testing"

func TestRecordIdempotent(t *testing.T) {
	l := New()
	l.Record("R1", "c1")
	l.Record("R1", "c1")
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
	if !l.Contains("R1", "c1") {
		t.Error("expected pair to be recorded")
	}
}

func TestRecordSameReferenceDifferentCommit(t *testing.T) {
	l := New()
	l.Record("R1", "c1")
	l.Record("R1", "c2")
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
}

func TestFindAncestorSubstring(t *testing.T) {
	l := New()
	l.Record("B13264R-A-02", "c2")
	commit, ok := l.FindAncestor("B13264R-A")
	if !ok || commit != "c2" {
		t.Errorf("FindAncestor = %q, %v; want c2, true", commit, ok)
	}
	if _, ok := l.FindAncestor("B13264R-A-02-X"); ok {
		t.Error("longer candidate must not match a shorter entry")
	}
}

func TestFindAncestorFirstInsertedWins(t *testing.T) {
	l := New()
	l.Record("R10", "first")
	l.Record("R1", "second")
	commit, ok := l.FindAncestor("R1")
	if !ok || commit != "first" {
		t.Errorf("FindAncestor = %q, %v; want first, true", commit, ok)
	}
}

func TestFindAncestorMiss(t *testing.T) {
	l := New()
	if _, ok := l.FindAncestor("anything"); ok {
		t.Error("empty ledger should not match")
	}
}

func TestEntriesIsCopy(t *testing.T) {
	l := New()
	l.Record("R1", "c1")
	entries := l.Entries()
	entries[0].Commit = "mutated"
	if !l.Contains("R1", "c1") {
		t.Error("Entries must not alias internal state")
	}
	if got := l.Entries()[0].Commit; got != "c1" {
		t.Errorf("commit = %q, want c1", got)
	}
}
