package lineage

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/legacygit/internal/models"
)

// ErrCyclicLineage is returned when following based-on links revisits more
// rows than the table holds.
var ErrCyclicLineage = errors.New("lineage: cyclic based-on relation")

// BuildChains walks the table from every head candidate down to its root and
// returns the chains holding at least two records, root first.
//
// records must be sorted by creation time, newest first.
func BuildChains(records []models.VersionRecord) ([]models.Chain, error) {
	return NewGraph(records).Chains()
}

// Chains enumerates the chains of g in head-candidate order.
func (g *Graph) Chains() ([]models.Chain, error) {
	var out []models.Chain
	for i := range g.records {
		if !g.IsHeadCandidate(i) {
			continue
		}
		walk, err := g.walk(i)
		if err != nil {
			return nil, err
		}
		if len(walk) < 2 {
			continue
		}
		slices.Reverse(walk)
		out = append(out, models.Chain{Records: walk})
	}
	return out, nil
}

// walk follows parents from head down to the de-facto root, head first.
func (g *Graph) walk(head int) ([]models.VersionRecord, error) {
	var acc []models.VersionRecord
	current := head
	for {
		if len(acc) >= len(g.records) {
			return nil, fmt.Errorf("%w: walk from %q exceeded %d steps",
				ErrCyclicLineage, g.records[head].Reference, len(g.records))
		}
		acc = append(acc, g.records[current])
		next, ok := g.Parent(current)
		if !ok {
			return acc, nil
		}
		current = next
	}
}

// ForkPoints returns references that more than one row is based on, in table
// order. Chains only follow one of those branches; the ledger links the rest.
func (g *Graph) ForkPoints() []string {
	var out []string
	seen := make(map[string]struct{})
	for i, r := range g.records {
		if _, dup := seen[r.Reference]; dup {
			continue
		}
		seen[r.Reference] = struct{}{}
		if len(g.Children(i)) > 1 {
			out = append(out, r.Reference)
		}
	}
	return out
}

// Roots returns the root reference of every chain, deduplicated, in order.
func Roots(chains []models.Chain) []string {
	var out []string
	for _, c := range chains {
		ref := c.Root().Reference
		if !slices.Contains(out, ref) {
			out = append(out, ref)
		}
	}
	return out
}

// FilterByHead keeps the chains whose head reference contains substr.
// An empty substr keeps every chain.
func FilterByHead(chains []models.Chain, substr string) []models.Chain {
	if substr == "" {
		return chains
	}
	var out []models.Chain
	for _, c := range chains {
		if strings.Contains(c.Head().Reference, substr) {
			out = append(out, c)
		}
	}
	return out
}
