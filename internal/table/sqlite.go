package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/legacygit/internal/models"
)

// SQLite reads records from a table of a SQLite database, in rowid order.
type SQLite struct {
	path    string
	table   string
	columns Columns
}

// NewSQLite creates a SQLite source.
func NewSQLite(path, table string, columns Columns) *SQLite {
	return &SQLite{path: path, table: table, columns: columns}
}

// Records runs a single SELECT over the configured columns.
func (s *SQLite) Records(ctx context.Context) ([]models.VersionRecord, error) {
	conn, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("table: open sqlite: %w", err)
	}
	defer conn.Close()

	cols := s.columns.list()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(s.table))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("table: query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []models.VersionRecord
	for rows.Next() {
		var vals [5]sql.NullString
		if err := rows.Scan(&vals[0], &vals[1], &vals[2], &vals[3], &vals[4]); err != nil {
			return nil, fmt.Errorf("table: scan %s: %w", s.table, err)
		}
		var fields [5]string
		for i, v := range vals {
			fields[i] = v.String
		}
		if strings.TrimSpace(fields[0]) == "" {
			continue
		}
		out = append(out, newRecord(fields))
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
