// Package watch re-triggers a replay when the version table or the
// archive tree changes.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Config describes what to watch.
type Config struct {
	TablePath   string
	ArchiveRoot string
	Extension   string // archive suffix; only matching files count as changes
	Debounce    time.Duration
	Logger      *slog.Logger
}

// ChangeFunc is called once per quiet period with the last changed path.
// It runs on the watcher goroutine, so calls never overlap.
type ChangeFunc func(ctx context.Context, path string)

// Watch observes the table file and the archive tree until ctx is
// cancelled. Bursts of events are collapsed into one onChange call after
// the debounce period. New archive subdirectories are added as they appear.
func Watch(ctx context.Context, cfg Config, onChange ChangeFunc) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ext := strings.ToLower(cfg.Extension)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	tablePath, err := filepath.Abs(cfg.TablePath)
	if err != nil {
		return err
	}
	// Watch the directory: editors replace the file on save.
	if err := w.Add(filepath.Dir(tablePath)); err != nil {
		return err
	}
	archiveRoot := ""
	if cfg.ArchiveRoot != "" {
		if archiveRoot, err = filepath.Abs(cfg.ArchiveRoot); err != nil {
			return err
		}
		if err := addDirsRecursive(w, archiveRoot); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("table", tablePath), slog.String("archives", archiveRoot))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending string
	)
	schedule := func(path string) {
		pending = path
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			logger.Info("watcher: change detected", slog.String("path", pending))
			onChange(ctx, pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			path := ev.Name

			if path == tablePath {
				schedule(path)
				continue
			}
			if archiveRoot == "" || !within(archiveRoot, path) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, path); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					}
					schedule(path)
					continue
				}
			}
			if ext == "" || strings.HasSuffix(strings.ToLower(path), ext) {
				schedule(path)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
