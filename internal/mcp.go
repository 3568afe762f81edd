package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/legacygit/internal/journal"
	"github.com/starford/legacygit/internal/mcpserver"
)

// ServeMCP exposes the journal of the last rebuild over MCP on stdio.
// Stdout carries the protocol, so callers should route logs elsewhere
// with WithLogOutput.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	cfg := app.config

	if !cfg.Journal.Enabled() {
		return fmt.Errorf("mcp server requires journal.path")
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer db.Close()

	logger.Info("Starting MCP server", slog.String("journal", cfg.Journal.Path))
	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.New(db, app.version).ServeStdio()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
