package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/legacygit/internal/apperr"
)

// Git implements Repository on top of go-git with a plain on-disk repository.
type Git struct {
	root string
	repo *git.Repository
	wt   *git.Worktree
}

var _ Repository = (*Git)(nil)

// Init creates a new repository at path. The directory is created when
// missing and must otherwise be empty.
func Init(path string) (*Git, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve %s: %w", path, err)
	}
	entries, err := os.ReadDir(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("vcs: mkdir %s: %w", abs, err)
		}
	case err != nil:
		return nil, fmt.Errorf("vcs: read %s: %w", abs, err)
	case len(entries) > 0:
		if _, statErr := os.Stat(filepath.Join(abs, git.GitDirName)); statErr == nil {
			return nil, fmt.Errorf("vcs: init %s: %w", abs, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("vcs: init %s: %w", abs, apperr.ErrNotEmpty)
	}

	repo, err := git.PlainInit(abs, false)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return nil, fmt.Errorf("vcs: init %s: %w", abs, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("vcs: init %s: %w", abs, err)
	}
	return wrap(abs, repo)
}

// Reset deletes path entirely and initializes a fresh repository there.
// A non-empty directory that is not a repository is left alone and
// reported as apperr.ErrNotEmpty.
func Reset(path string) (*Git, error) {
	entries, err := os.ReadDir(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Init(path)
	case err != nil:
		return nil, fmt.Errorf("vcs: read %s: %w", path, err)
	case len(entries) > 0:
		if _, statErr := os.Stat(filepath.Join(path, git.GitDirName)); statErr != nil {
			return nil, fmt.Errorf("vcs: reset %s: not a repository: %w", path, apperr.ErrNotEmpty)
		}
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("vcs: remove %s: %w", path, err)
	}
	return Init(path)
}

// Open opens an existing repository at path.
func Open(path string) (*Git, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve %s: %w", path, err)
	}
	repo, err := git.PlainOpen(abs)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("vcs: open %s: %w", abs, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("vcs: open %s: %w", abs, err)
	}
	return wrap(abs, repo)
}

func wrap(root string, repo *git.Repository) (*Git, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("vcs: worktree: %w", err)
	}
	return &Git{root: root, repo: repo, wt: wt}, nil
}

func (g *Git) Root() string { return g.root }

func (g *Git) CreateBranch(name, commit string) error {
	ref := plumbing.NewBranchReferenceName(name)
	if _, err := g.repo.Reference(ref, false); err == nil {
		return fmt.Errorf("vcs: branch %s: %w", name, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("vcs: branch %s: %w", name, err)
	}
	hash, err := g.resolve(commit)
	if err != nil {
		return err
	}
	if err := g.repo.Storer.SetReference(plumbing.NewHashReference(ref, hash)); err != nil {
		return fmt.Errorf("vcs: create branch %s: %w", name, err)
	}
	return nil
}

func (g *Git) Checkout(branch string) error {
	err := g.wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("vcs: checkout %s: %w", branch, apperr.ErrNotFound)
		}
		return fmt.Errorf("vcs: checkout %s: %w", branch, err)
	}
	return nil
}

func (g *Git) StageAll() error {
	status, err := g.wt.Status()
	if err != nil {
		return fmt.Errorf("vcs: status: %w", err)
	}
	for path, st := range status {
		switch st.Worktree {
		case git.Unmodified:
			continue
		case git.Deleted:
			if _, err := g.wt.Remove(path); err != nil {
				return fmt.Errorf("vcs: stage removal of %s: %w", path, err)
			}
		default:
			if _, err := g.wt.Add(path); err != nil {
				return fmt.Errorf("vcs: stage %s: %w", path, err)
			}
		}
	}
	return nil
}

func (g *Git) Commit(req CommitRequest) (string, error) {
	opts := &git.CommitOptions{
		Author:            signature(req.Author),
		Committer:         signature(req.Committer),
		AllowEmptyCommits: true,
	}
	for _, p := range req.Parents {
		hash, err := g.resolve(p)
		if err != nil {
			return "", err
		}
		opts.Parents = append(opts.Parents, hash)
	}
	hash, err := g.wt.Commit(req.Message, opts)
	if err != nil {
		return "", fmt.Errorf("vcs: commit: %w", err)
	}
	return hash.String(), nil
}

func (g *Git) CreateTag(name, commit string, tagger *Signature, message string) error {
	hash, err := g.resolve(commit)
	if err != nil {
		return err
	}
	var opts *git.CreateTagOptions
	if tagger != nil {
		if message == "" {
			message = name
		}
		opts = &git.CreateTagOptions{Tagger: signature(*tagger), Message: message}
	}
	if _, err := g.repo.CreateTag(name, hash, opts); err != nil {
		if errors.Is(err, git.ErrTagExists) {
			return fmt.Errorf("vcs: tag %s: %w", name, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("vcs: tag %s: %w", name, err)
	}
	return nil
}

func (g *Git) Resolve(rev string) (string, error) {
	hash, err := g.resolve(rev)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (g *Git) Head() (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("vcs: head: %w", apperr.ErrNotFound)
		}
		return "", fmt.Errorf("vcs: head: %w", err)
	}
	return ref.Hash().String(), nil
}

func (g *Git) resolve(rev string) (plumbing.Hash, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("vcs: resolve %s: %w", rev, apperr.ErrNotFound)
		}
		return plumbing.ZeroHash, fmt.Errorf("vcs: resolve %s: %w", rev, err)
	}
	return *hash, nil
}

func signature(s Signature) *object.Signature {
	return &object.Signature{Name: s.Name, Email: s.Email, When: s.When}
}
