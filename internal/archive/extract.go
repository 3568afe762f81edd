package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/starford/legacygit/internal/storage"
)

// Extractor replaces a working tree with the contents of an archive.
type Extractor struct {
	tree    storage.Provider
	tempDir string // parent for scratch directories; empty uses os.TempDir
}

// NewExtractor creates an extractor writing into tree.
func NewExtractor(tree storage.Provider, tempDir string) *Extractor {
	return &Extractor{tree: tree, tempDir: tempDir}
}

// Materialize unpacks the archive into a scratch directory, locates the
// project root inside it, wipes the working tree (except version-control
// metadata) and copies the project root in.
func (e *Extractor) Materialize(ctx context.Context, archivePath string) error {
	scratch, err := os.MkdirTemp(e.tempDir, "legacygit-extract-*")
	if err != nil {
		return fmt.Errorf("archive: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := Unzip(ctx, archivePath, scratch); err != nil {
		return err
	}
	root, err := ProjectRoot(scratch)
	if err != nil {
		return err
	}
	if err := e.tree.Clear(); err != nil {
		return fmt.Errorf("archive: clear tree: %w", err)
	}
	if err := e.tree.CopyTree(root); err != nil {
		return fmt.Errorf("archive: copy %s: %w", filepath.Base(archivePath), err)
	}
	return nil
}

// Unzip extracts every entry of the zip at src below dest. Entries that
// would land outside dest are rejected.
func Unzip(ctx context.Context, src, dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("archive: resolve dest: %w", err)
	}
	rc, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", src, err)
	}
	defer rc.Close()

	for _, f := range rc.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := storage.SafeJoin(dest, f.Name)
		if err != nil {
			return fmt.Errorf("archive: %s: %w", filepath.Base(src), err)
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archive: mkdir: %w", err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("archive: extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ProjectRoot descends from dir through wrapper directories: directories
// holding exactly one subdirectory and no files. Snapshots are usually
// zipped with one or more such wrappers around the actual sources.
func ProjectRoot(dir string) (string, error) {
	current := dir
	for {
		entries, err := os.ReadDir(current)
		if err != nil {
			return "", fmt.Errorf("archive: read %s: %w", current, err)
		}
		var subdirs []string
		for _, e := range entries {
			if !e.IsDir() {
				return current, nil
			}
			subdirs = append(subdirs, e.Name())
		}
		if len(subdirs) != 1 {
			return current, nil
		}
		current = filepath.Join(current, subdirs[0])
	}
}
