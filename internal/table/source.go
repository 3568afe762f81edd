// Package table loads version records from the tabular exports produced
// upstream (CSV files or SQLite tables).
package table

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/legacygit/internal/models"
)

// Formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Columns names the source columns mapped onto VersionRecord fields.
type Columns struct {
	Reference string `yaml:"reference"`
	BasedOn   string `yaml:"based_on"`
	CreatedAt string `yaml:"created_at"`
	Author    string `yaml:"author"`
	Comment   string `yaml:"comment"`
}

// DefaultColumns returns the column headers of the legacy exports.
func DefaultColumns() Columns {
	return Columns{
		Reference: "Reference",
		BasedOn:   "Based On",
		CreatedAt: "Creation Date",
		Author:    "Author",
		Comment:   "Comments",
	}
}

func (c Columns) list() []string {
	return []string{c.Reference, c.BasedOn, c.CreatedAt, c.Author, c.Comment}
}

// Source delivers the rows of a version table.
type Source interface {
	Records(ctx context.Context) ([]models.VersionRecord, error)
}

// Options configures Open.
type Options struct {
	Path    string
	Format  string // empty infers from the file extension
	Table   string // SQLite table name
	Columns Columns
}

// Open returns the Source matching opts.
func Open(opts Options) (Source, error) {
	format := opts.Format
	if format == "" {
		format = InferFormat(opts.Path)
	}
	switch format {
	case FormatCSV:
		return NewCSV(opts.Path, opts.Columns), nil
	case FormatSQLite:
		return NewSQLite(opts.Path, opts.Table, opts.Columns), nil
	default:
		return nil, fmt.Errorf("table: unsupported format %q for %s", format, opts.Path)
	}
}

// InferFormat guesses the table format from a file name.
func InferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return ""
	}
}

// SortNewestFirst orders records by creation time, newest first, keeping the
// input order of equal timestamps.
func SortNewestFirst(records []models.VersionRecord) {
	slices.SortStableFunc(records, func(a, b models.VersionRecord) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
}

func newRecord(fields [5]string) models.VersionRecord {
	return models.VersionRecord{
		Reference: strings.TrimSpace(fields[0]),
		BasedOn:   strings.TrimSpace(fields[1]),
		CreatedAt: ParseSerial(fields[2]),
		Author:    strings.TrimSpace(fields[3]),
		Comment:   fields[4],
	}
}
