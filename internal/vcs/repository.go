// Package vcs is the version-control collaborator the replay engine drives.
package vcs

import (
	"strings"
	"time"
	"unicode"
)

// Signature identifies the author or committer of a commit or tag.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// CommitRequest describes a commit of the currently staged tree.
// An empty Parents list on an unborn HEAD produces a root commit; otherwise
// the current HEAD is used as parent.
type CommitRequest struct {
	Message   string
	Author    Signature
	Committer Signature
	Parents   []string
}

// Repository is the set of version-control operations needed to replay
// history. Commit hashes are hex strings.
type Repository interface {
	// Root returns the working-tree directory.
	Root() string
	// CreateBranch creates a branch pointing at commit.
	// Returns apperr.ErrAlreadyExists if the branch exists.
	CreateBranch(name, commit string) error
	// Checkout switches the working tree to branch, discarding local changes.
	Checkout(branch string) error
	// StageAll stages every addition, modification and deletion in the tree.
	StageAll() error
	// Commit records the staged tree and advances HEAD.
	Commit(req CommitRequest) (string, error)
	// CreateTag tags commit. A nil tagger creates a lightweight tag.
	CreateTag(name, commit string, tagger *Signature, message string) error
	// Resolve turns a revision (branch, tag, hash) into a commit hash.
	// Returns apperr.ErrNotFound for unknown revisions.
	Resolve(rev string) (string, error)
	// Head returns the commit HEAD points at, or apperr.ErrNotFound when unborn.
	Head() (string, error)
}

// RefName folds s into a usable branch or tag name: whitespace and
// characters git forbids in ref names become '-'.
func RefName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r), strings.ContainsRune("~^:?*[\\", r):
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.ReplaceAll(out, "@{", "@-")
	out = strings.Trim(out, "/.")
	out = strings.TrimSuffix(out, ".lock")
	if out == "" || out == "@" {
		return "-"
	}
	return out
}
