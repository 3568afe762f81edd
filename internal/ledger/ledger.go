// Package ledger records which versions were already committed during a
// replay and under which commit.
package ledger

import "strings"

// Entry pairs a replayed reference with its commit id.
type Entry struct {
	Reference string `json:"reference"`
	Commit    string `json:"commit"`
}

// Ledger is an insertion-ordered set of entries. It lives for a single
// replay and is not safe for concurrent use.
type Ledger struct {
	entries []Entry
	seen    map[Entry]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[Entry]struct{})}
}

// Record inserts the pair. Inserting an existing pair is a no-op.
func (l *Ledger) Record(reference, commit string) {
	e := Entry{Reference: reference, Commit: commit}
	if _, ok := l.seen[e]; ok {
		return
	}
	l.seen[e] = struct{}{}
	l.entries = append(l.entries, e)
}

// FindAncestor returns the commit of the first inserted entry whose
// reference contains candidate. Matching is by substring because tables
// sometimes cite a shortened form of a full version code.
func (l *Ledger) FindAncestor(candidate string) (string, bool) {
	for _, e := range l.entries {
		if strings.Contains(e.Reference, candidate) {
			return e.Commit, true
		}
	}
	return "", false
}

// Contains reports whether the exact pair was recorded.
func (l *Ledger) Contains(reference, commit string) bool {
	_, ok := l.seen[Entry{Reference: reference, Commit: commit}]
	return ok
}

// Len returns the number of distinct entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
