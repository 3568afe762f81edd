package internal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/legacygit/internal/lineage"
	"github.com/starford/legacygit/internal/models"
)

// Export file names written by ListChains.
const (
	ChainsExportFile = "chains.csv"
	RootsExportFile  = "base-references.csv"
)

// ListChains prints the lineage chains without touching any repository.
// With an export directory set it also writes the chains and their root
// references as CSV.
func ListChains(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	g, chains, err := loadChains(ctx, app.config)
	if err != nil {
		return err
	}
	roots := lineage.Roots(chains)
	if err := printChains(app.output, chains, g.ForkPoints(), roots); err != nil {
		return err
	}
	if app.exportDir == "" {
		return nil
	}

	if err := os.MkdirAll(app.exportDir, 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}
	if err := writeCSV(filepath.Join(app.exportDir, ChainsExportFile), chainRows(chains)); err != nil {
		return err
	}
	rootRows := [][]string{{"reference"}}
	for _, r := range roots {
		rootRows = append(rootRows, []string{r})
	}
	if err := writeCSV(filepath.Join(app.exportDir, RootsExportFile), rootRows); err != nil {
		return err
	}
	logger.Info("Chains exported",
		slog.String("dir", app.exportDir),
		slog.Int("chains", len(chains)),
		slog.Int("roots", len(roots)))
	return nil
}

func printChains(w io.Writer, chains []models.Chain, forks, roots []string) error {
	var b strings.Builder
	for i, c := range chains {
		refs := make([]string, 0, c.Len())
		for _, r := range c.Records {
			refs = append(refs, r.Reference)
		}
		fmt.Fprintf(&b, "chain %d (%d): %s\n", i+1, c.Len(), strings.Join(refs, " -> "))
	}
	fmt.Fprintf(&b, "fork points: %s\n", joinOrNone(forks))
	fmt.Fprintf(&b, "roots: %s\n", joinOrNone(roots))
	_, err := io.WriteString(w, b.String())
	return err
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func chainRows(chains []models.Chain) [][]string {
	rows := [][]string{{"chain", "position", "reference", "based_on"}}
	for i, c := range chains {
		for pos, r := range c.Records {
			rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(pos + 1), r.Reference, r.BasedOn})
		}
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
