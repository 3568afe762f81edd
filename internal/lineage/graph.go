// Package lineage rebuilds based-on ancestry from a flat, newest-first table
// of version records and splits it into replayable chains.
package lineage

import "github.com/starford/legacygit/internal/models"

// Graph indexes parent and child relations of a newest-first record table.
//
// Lookups follow table order: when several rows share a reference the first
// one wins, and the earliest row naming a record as its parent is the one
// that decides whether that record can start a chain.
type Graph struct {
	records []models.VersionRecord

	// byRef maps a reference to the indices carrying it, in table order.
	byRef map[string][]int
	// firstChild maps a reference to the lowest index whose BasedOn names it.
	firstChild map[string]int
	// children maps a reference to every index whose BasedOn names it.
	children map[string][]int
}

// NewGraph indexes records. The slice must already be sorted newest first.
func NewGraph(records []models.VersionRecord) *Graph {
	g := &Graph{
		records:    records,
		byRef:      make(map[string][]int, len(records)),
		firstChild: make(map[string]int),
		children:   make(map[string][]int),
	}
	for i, r := range records {
		g.byRef[r.Reference] = append(g.byRef[r.Reference], i)
		if !r.HasParent() {
			continue
		}
		if _, ok := g.firstChild[r.BasedOn]; !ok {
			g.firstChild[r.BasedOn] = i
		}
		g.children[r.BasedOn] = append(g.children[r.BasedOn], i)
	}
	return g
}

// Len returns the number of indexed records.
func (g *Graph) Len() int {
	return len(g.records)
}

// Record returns the record at index i.
func (g *Graph) Record(i int) models.VersionRecord {
	return g.records[i]
}

// IsHeadCandidate reports whether record i may start a chain: no more recent
// row (lower index) declares it as its parent.
func (g *Graph) IsHeadCandidate(i int) bool {
	j, ok := g.firstChild[g.records[i].Reference]
	return !ok || j >= i
}

// Parent returns the index of the first other row whose reference equals the
// BasedOn of record i.
func (g *Graph) Parent(i int) (int, bool) {
	r := g.records[i]
	if !r.HasParent() {
		return 0, false
	}
	for _, j := range g.byRef[r.BasedOn] {
		if j != i {
			return j, true
		}
	}
	return 0, false
}

// Children returns the indices of every row based on record i, in table order.
func (g *Graph) Children(i int) []int {
	return g.children[g.records[i].Reference]
}
