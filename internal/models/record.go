// Package models defines the domain types for legacygit.
package models

import "time"

// VersionRecord is one row of the version table.
type VersionRecord struct {
	Reference string    `json:"reference"`
	BasedOn   string    `json:"based_on,omitempty"` // empty when the record has no declared parent
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Comment   string    `json:"comment"`
}

// HasParent reports whether the record declares a predecessor.
func (r VersionRecord) HasParent() bool {
	return r.BasedOn != ""
}

// Chain is one lineage of records ordered root first, head last.
type Chain struct {
	Records []VersionRecord `json:"records"`
}

// Root returns the oldest record of the chain.
func (c Chain) Root() VersionRecord {
	return c.Records[0]
}

// Head returns the newest record of the chain.
func (c Chain) Head() VersionRecord {
	return c.Records[len(c.Records)-1]
}

// Len returns the number of records in the chain.
func (c Chain) Len() int {
	return len(c.Records)
}

// CommitIntent carries everything needed to commit one record.
// It is built per record and dropped once the commit exists.
type CommitIntent struct {
	When        time.Time
	Message     string
	AuthorName  string
	AuthorEmail string
	BranchName  string
}
