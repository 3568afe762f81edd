package replay

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/legacygit/internal/apperr"
	"github.com/starford/legacygit/internal/vcs"
)

type fakeCommit struct {
	parents []string
	req     vcs.CommitRequest
	stages  int
}

// fakeRepo is an in-memory vcs.Repository tracking branches, tags and
// commit parents.
type fakeRepo struct {
	commits  map[string]fakeCommit
	order    []string
	branches map[string]string
	tags     map[string]string
	head     string // current branch name
	staged   int
	failOn   string // commit message prefix that makes Commit fail
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		commits:  map[string]fakeCommit{},
		branches: map[string]string{},
		tags:     map[string]string{},
		head:     "master",
	}
}

func (f *fakeRepo) Root() string { return "" }

func (f *fakeRepo) CreateBranch(name, commit string) error {
	if _, ok := f.branches[name]; ok {
		return apperr.ErrAlreadyExists
	}
	hash, err := f.Resolve(commit)
	if err != nil {
		return err
	}
	f.branches[name] = hash
	return nil
}

func (f *fakeRepo) Checkout(branch string) error {
	if _, ok := f.branches[branch]; !ok {
		return apperr.ErrNotFound
	}
	f.head = branch
	return nil
}

func (f *fakeRepo) StageAll() error {
	f.staged++
	return nil
}

func (f *fakeRepo) Commit(req vcs.CommitRequest) (string, error) {
	if f.failOn != "" && strings.HasPrefix(req.Message, f.failOn) {
		return "", fmt.Errorf("fake commit failure")
	}
	parents := req.Parents
	if len(parents) == 0 {
		if tip, ok := f.branches[f.head]; ok {
			parents = []string{tip}
		}
	}
	hash := fmt.Sprintf("c%02d", len(f.order))
	f.commits[hash] = fakeCommit{parents: parents, req: req, stages: f.staged}
	f.order = append(f.order, hash)
	f.branches[f.head] = hash
	return hash, nil
}

func (f *fakeRepo) CreateTag(name, commit string, _ *vcs.Signature, _ string) error {
	if _, ok := f.tags[name]; ok {
		return apperr.ErrAlreadyExists
	}
	f.tags[name] = commit
	return nil
}

func (f *fakeRepo) Resolve(rev string) (string, error) {
	if h, ok := f.branches[rev]; ok {
		return h, nil
	}
	if h, ok := f.tags[rev]; ok {
		return h, nil
	}
	if _, ok := f.commits[rev]; ok {
		return rev, nil
	}
	return "", apperr.ErrNotFound
}

func (f *fakeRepo) Head() (string, error) {
	if h, ok := f.branches[f.head]; ok {
		return h, nil
	}
	return "", apperr.ErrNotFound
}

// fakeTree records the archives materialized, in order.
type fakeTree struct {
	archives []string
}

func (t *fakeTree) Materialize(_ context.Context, path string) error {
	t.archives = append(t.archives, path)
	return nil
}
