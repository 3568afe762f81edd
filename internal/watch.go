package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/legacygit/internal/api"
	"github.com/starford/legacygit/internal/journal"
	"github.com/starford/legacygit/internal/sse"
	"github.com/starford/legacygit/internal/watch"
)

// watchState is the watch loop status shared with the status API.
type watchState struct {
	mu    sync.Mutex
	state api.WatchState
}

func (s *watchState) begin(trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Replaying = true
	s.state.LastTrigger = trigger
	s.state.UpdatedAt = time.Now().UTC()
}

func (s *watchState) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Replaying = false
	s.state.Replays++
	s.state.LastError = ""
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.state.UpdatedAt = time.Now().UTC()
}

func (s *watchState) snapshot() api.WatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch rebuilds the history once, then again whenever the table or the
// archive tree changes, while serving the status API and event stream.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	if !cfg.Journal.Enabled() {
		return fmt.Errorf("watch mode requires journal.path")
	}
	// Every rebuild starts from an empty repository.
	cfg.Repo.Clean = true

	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	state := &watchState{}
	rebuild := func(ctx context.Context, trigger string) {
		state.begin(trigger)
		broker.Publish(sse.Event{Type: "replay.started", Data: map[string]string{"trigger": trigger}})
		sum, err := replayOnce(ctx, cfg, logger, db, broker.PublishReplay)
		state.end(err)
		if err != nil {
			logger.Error("Rebuild failed", slog.String("trigger", trigger), slog.String("error", err.Error()))
			broker.Publish(sse.Event{Type: "replay.failed", Data: map[string]string{"error": err.Error()}})
			return
		}
		logger.Info("History rebuilt",
			slog.String("trigger", trigger),
			slog.Int("commits", sum.Commits),
			slog.Int("skipped", sum.Skipped))
	}

	apiRouter := api.NewRouter(db, state.snapshot, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Initial rebuild, then the watcher. Both run on this goroutine so
	// rebuilds never overlap.
	g.Go(func() error {
		rebuild(gCtx, "startup")
		return watch.Watch(gCtx, watch.Config{
			TablePath:   cfg.Table.Path,
			ArchiveRoot: cfg.Archives.Path,
			Extension:   cfg.Archives.Extension,
			Debounce:    cfg.Watch.Debounce,
			Logger:      logger,
		}, rebuild)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Watcher stopped")
	return nil
}

// errShutdown cancels the group once the HTTP server has been stopped so
// the watcher exits too.
var errShutdown = errors.New("shutdown")
