// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/legacygit/internal/archive"
	"github.com/starford/legacygit/internal/journal"
	"github.com/starford/legacygit/internal/ledger"
	"github.com/starford/legacygit/internal/lineage"
	"github.com/starford/legacygit/internal/models"
	"github.com/starford/legacygit/internal/replay"
	"github.com/starford/legacygit/internal/storage"
	"github.com/starford/legacygit/internal/table"
	"github.com/starford/legacygit/internal/vcs"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}
	if app.output == nil {
		app.output = os.Stdout
	}
	if app.version == "" {
		app.version = "dev"
	}
	return app, nil
}

// logger initializes the structured JSON logger and installs it as default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run replays the version table once into the configured repository.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("table", cfg.Table.Path),
		slog.String("archives", cfg.Archives.Path),
		slog.String("repo", cfg.Repo.Path),
		slog.String("journal", cfg.Journal.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var j journal.Journal
	if cfg.Journal.Enabled() {
		db, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		defer db.Close()
		j = db
	}

	sum, err := replayOnce(ctx, cfg, logger, j, nil)
	if err != nil {
		return err
	}
	logger.Info("History rebuilt",
		slog.Int("chains", sum.Chains),
		slog.Int("commits", sum.Commits),
		slog.Int("skipped", sum.Skipped),
		slog.Int("fallbacks", sum.Fallbacks),
		slog.Duration("took", sum.Finished.Sub(sum.Started)))
	return nil
}

// loadChains reads the table and builds the lineage chains.
func loadChains(ctx context.Context, cfg *Config) (*lineage.Graph, []models.Chain, error) {
	src, err := table.Open(cfg.Table.Options())
	if err != nil {
		return nil, nil, err
	}
	records, err := src.Records(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load table: %w", err)
	}
	if cfg.Table.Sort {
		table.SortNewestFirst(records)
	}
	g := lineage.NewGraph(records)
	chains, err := g.Chains()
	if err != nil {
		return nil, nil, err
	}
	return g, lineage.FilterByHead(chains, cfg.Table.ChainFilter), nil
}

// openRepository prepares the target repository: wiped and re-initialized
// when Clean is set, otherwise created fresh (an existing one is an error).
func openRepository(cfg *Config) (*vcs.Git, error) {
	if cfg.Repo.Clean {
		return vcs.Reset(cfg.Repo.Path)
	}
	return vcs.Init(cfg.Repo.Path)
}

// replayOnce runs one complete rebuild. j may be nil; onEvent, if set,
// receives every replay event after the journal.
func replayOnce(ctx context.Context, cfg *Config, logger *slog.Logger, j journal.Journal, onEvent func(replay.Event)) (replay.Summary, error) {
	_, chains, err := loadChains(ctx, cfg)
	if err != nil {
		return replay.Summary{}, err
	}
	logger.Info("Chains built", slog.Int("chains", len(chains)))

	repo, err := openRepository(cfg)
	if err != nil {
		return replay.Summary{}, fmt.Errorf("init repository: %w", err)
	}
	tree, err := storage.NewFS(repo.Root())
	if err != nil {
		return replay.Summary{}, fmt.Errorf("init working tree: %w", err)
	}

	var (
		runID    int64
		recorder *journal.Recorder
	)
	if j != nil {
		if runID, err = j.BeginRun(time.Now()); err != nil {
			return replay.Summary{}, err
		}
		if recorder, err = journal.NewRecorder(j, runID, chains, logger); err != nil {
			return replay.Summary{}, err
		}
	}

	engine := replay.New(repo,
		archive.NewResolver(cfg.Archives.Path, cfg.Archives.Extension),
		archive.NewExtractor(tree, cfg.Archives.TempDir),
		replay.Options{
			BootstrapMessage: cfg.Repo.BootstrapMessage,
			EmailDomain:      cfg.Repo.EmailDomain,
			AnnotatedTags:    cfg.Repo.AnnotatedTags,
			Logger:           logger,
			OnEvent: func(ev replay.Event) {
				if recorder != nil {
					recorder.Handle(ev)
				}
				if onEvent != nil {
					onEvent(ev)
				}
			},
		})

	sum, runErr := engine.Replay(ctx, chains, ledger.New())
	if j != nil {
		stats := journal.RunStats{Chains: sum.Chains, Commits: sum.Commits, Skipped: sum.Skipped, Fallbacks: sum.Fallbacks}
		if err := j.FinishRun(runID, stats, runErr); err != nil {
			logger.Error("journal finish failed", slog.String("error", err.Error()))
		}
		if runErr == nil && recorder.Err() != nil {
			logger.Warn("journal is incomplete", slog.String("error", recorder.Err().Error()))
		}
	}
	if runErr != nil {
		return sum, fmt.Errorf("rebuild history: %w", runErr)
	}
	return sum, nil
}
