// Package storage defines the working-tree file-system abstraction that
// archive snapshots are materialized into.
package storage

// ControlDir is the version-control metadata directory that is never
// touched when the tree is replaced.
const ControlDir = ".git"

// Provider is the interface for working-tree file operations.
type Provider interface {
	// Root returns the absolute directory the provider operates on.
	Root() string
	// Clear removes everything under root except ControlDir.
	Clear() error
	// CopyTree copies the contents of the absolute directory src into root,
	// skipping any ControlDir found in src.
	CopyTree(src string) error
}
