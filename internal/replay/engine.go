// Package replay turns lineage chains into version-control history.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/legacygit/internal/archive"
	"github.com/starford/legacygit/internal/ledger"
	"github.com/starford/legacygit/internal/models"
	"github.com/starford/legacygit/internal/vcs"
)

// ErrNoAncestor is returned when a chain after the first has no record
// already present in the ledger before its first new record.
var ErrNoAncestor = errors.New("replay: chain has no replayed ancestor")

// Resolver finds the archive holding a version's source snapshot.
type Resolver interface {
	Resolve(identity string, previous archive.Resolution) (archive.Resolution, error)
}

// Materializer replaces the working tree with an archive's contents.
type Materializer interface {
	Materialize(ctx context.Context, archivePath string) error
}

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	BootstrapMessage string
	EmailDomain      string
	AnnotatedTags    bool
	Logger           *slog.Logger
	OnEvent          func(Event)
}

// Summary reports what a replay did.
type Summary struct {
	Chains    int       `json:"chains"`
	Commits   int       `json:"commits"`
	Skipped   int       `json:"skipped"`
	Fallbacks int       `json:"fallbacks"`
	Branches  []string  `json:"branches"`
	Bootstrap string    `json:"bootstrap,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Engine replays chains onto a repository. It is not safe for concurrent use.
type Engine struct {
	repo     vcs.Repository
	resolver Resolver
	tree     Materializer
	opts     Options
	logger   *slog.Logger
}

// New creates an engine.
func New(repo vcs.Repository, resolver Resolver, tree Materializer, opts Options) *Engine {
	if opts.BootstrapMessage == "" {
		opts.BootstrapMessage = DefaultBootstrapMessage
	}
	if opts.EmailDomain == "" {
		opts.EmailDomain = DefaultEmailDomain
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, resolver: resolver, tree: tree, opts: opts, logger: logger}
}

// run is the state threaded through one Replay call.
type run struct {
	ledger  *ledger.Ledger
	archive archive.Resolution
	summary Summary
}

// Replay processes chains in order. The first chain gets a bootstrap root
// commit and a branch named after its head; later chains branch off the
// last ledger match preceding their first new record. Any failure aborts
// the replay and leaves the repository as it is.
func (e *Engine) Replay(ctx context.Context, chains []models.Chain, l *ledger.Ledger) (Summary, error) {
	if l == nil {
		l = ledger.New()
	}
	r := &run{ledger: l, summary: Summary{Started: time.Now().UTC()}}

	for i, chain := range chains {
		if err := ctx.Err(); err != nil {
			return r.summary, err
		}
		if chain.Len() == 0 {
			continue
		}
		var err error
		if i == 0 {
			err = e.replayFirst(ctx, r, chain)
		} else {
			err = e.replayNext(ctx, r, i, chain)
		}
		if err != nil {
			return r.summary, err
		}
		r.summary.Chains++
	}

	r.summary.Finished = time.Now().UTC()
	e.emit(Event{Kind: EventFinished, Chain: -1, Position: -1})
	e.logger.Info("replay finished",
		"chains", r.summary.Chains,
		"commits", r.summary.Commits,
		"skipped", r.summary.Skipped,
		"fallbacks", r.summary.Fallbacks,
	)
	return r.summary, nil
}

func (e *Engine) replayFirst(ctx context.Context, r *run, chain models.Chain) error {
	root := chain.Root()
	sig := e.signature(root)
	bootstrap, err := e.repo.Commit(vcs.CommitRequest{
		Message:   e.opts.BootstrapMessage,
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return fmt.Errorf("replay: bootstrap commit: %w", err)
	}
	r.summary.Bootstrap = bootstrap
	e.emit(Event{Kind: EventBootstrap, Chain: 0, Position: -1, Commit: bootstrap})

	branch := vcs.RefName(chain.Head().Reference)
	if err := e.branch(r, 0, branch, bootstrap); err != nil {
		return err
	}
	for pos, rec := range chain.Records {
		if err := e.commitRecord(ctx, r, 0, pos, rec, branch); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) replayNext(ctx context.Context, r *run, idx int, chain models.Chain) error {
	var (
		branchCreated bool
		previous      string
		branch        string
	)
	for pos, rec := range chain.Records {
		if hit, ok := r.ledger.FindAncestor(rec.Reference); ok {
			previous = hit
			r.summary.Skipped++
			e.emit(Event{Kind: EventSkipped, Chain: idx, Position: pos, Reference: rec.Reference, Commit: hit})
			e.logger.Debug("record already replayed", "chain", idx, "reference", rec.Reference, "commit", hit)
			continue
		}
		if !branchCreated {
			if previous == "" {
				return fmt.Errorf("%w: chain %d starts at %q", ErrNoAncestor, idx, rec.Reference)
			}
			branch = vcs.RefName(rec.Reference)
			if err := e.branch(r, idx, branch, previous); err != nil {
				return err
			}
			branchCreated = true
		}
		if err := e.commitRecord(ctx, r, idx, pos, rec, branch); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) branch(r *run, chain int, name, from string) error {
	if err := e.repo.CreateBranch(name, from); err != nil {
		return fmt.Errorf("replay: create branch %s: %w", name, err)
	}
	if err := e.repo.Checkout(name); err != nil {
		return fmt.Errorf("replay: checkout %s: %w", name, err)
	}
	r.summary.Branches = append(r.summary.Branches, name)
	e.emit(Event{Kind: EventBranch, Chain: chain, Position: -1, Branch: name, Commit: from})
	e.logger.Info("branch created", "chain", chain, "branch", name, "commit", from)
	return nil
}

func (e *Engine) commitRecord(ctx context.Context, r *run, chain, pos int, rec models.VersionRecord, branch string) error {
	res, err := e.resolver.Resolve(rec.Reference, r.archive)
	if err != nil {
		return fmt.Errorf("replay: resolve %s: %w", rec.Reference, err)
	}
	r.archive = res
	if res.Fallback {
		r.summary.Fallbacks++
		e.logger.Warn("no archive for version, reusing previous", "reference", rec.Reference, "archive", res.Path)
	}

	if err := e.tree.Materialize(ctx, res.Path); err != nil {
		return fmt.Errorf("replay: materialize %s: %w", rec.Reference, err)
	}
	if err := e.repo.StageAll(); err != nil {
		return fmt.Errorf("replay: stage %s: %w", rec.Reference, err)
	}

	intent := Intent(rec, branch, e.opts.EmailDomain)
	sig := vcs.Signature{Name: intent.AuthorName, Email: intent.AuthorEmail, When: intent.When}
	commit, err := e.repo.Commit(vcs.CommitRequest{Message: intent.Message, Author: sig, Committer: sig})
	if err != nil {
		return fmt.Errorf("replay: commit %s: %w", rec.Reference, err)
	}

	var tagger *vcs.Signature
	if e.opts.AnnotatedTags {
		tagger = &sig
	}
	if err := e.repo.CreateTag(vcs.RefName(rec.Reference), commit, tagger, intent.Message); err != nil {
		return fmt.Errorf("replay: tag %s: %w", rec.Reference, err)
	}
	r.ledger.Record(rec.Reference, commit)
	r.summary.Commits++

	e.emit(Event{
		Kind:      EventCommitted,
		Chain:     chain,
		Position:  pos,
		Reference: rec.Reference,
		Branch:    branch,
		Commit:    commit,
		Archive:   res.Path,
		Fallback:  res.Fallback,
		Author:    intent.AuthorName,
		When:      intent.When,
	})
	e.logger.Info("version committed",
		"chain", chain,
		"reference", rec.Reference,
		"branch", branch,
		"commit", commit,
		"archive", res.Path,
	)
	return nil
}

func (e *Engine) signature(rec models.VersionRecord) vcs.Signature {
	return vcs.Signature{
		Name:  AuthorName(rec.Author),
		Email: Email(rec.Author, e.opts.EmailDomain),
		When:  rec.CreatedAt,
	}
}

func (e *Engine) emit(ev Event) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}
