package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/starford/legacygit/internal/models"
)

// CSV reads records from a CSV export with a header row.
type CSV struct {
	path    string
	columns Columns
}

// NewCSV creates a CSV source.
func NewCSV(path string, columns Columns) *CSV {
	return &CSV{path: path, columns: columns}
}

// Records reads every data row. Rows with an empty reference are skipped.
func (c *CSV) Records(ctx context.Context) ([]models.VersionRecord, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("table: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("table: read csv header: %w", err)
	}
	idx, err := columnIndex(header, c.columns)
	if err != nil {
		return nil, fmt.Errorf("table: %s: %w", c.path, err)
	}

	var out []models.VersionRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table: read csv line %d: %w", line, err)
		}
		var fields [5]string
		for k, i := range idx {
			if i < len(row) {
				fields[k] = row[i]
			}
		}
		if strings.TrimSpace(fields[0]) == "" {
			continue
		}
		out = append(out, newRecord(fields))
	}
	return out, nil
}

// columnIndex resolves the header position of every configured column.
func columnIndex(header []string, cols Columns) ([5]int, error) {
	var idx [5]int
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		pos[strings.TrimSpace(h)] = i
	}
	for k, name := range cols.list() {
		i, ok := pos[name]
		if !ok {
			return idx, fmt.Errorf("missing column %q", name)
		}
		idx[k] = i
	}
	return idx, nil
}
