// Package archive locates and unpacks the source snapshot of a version.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrUnresolvableArchive is returned when no archive matches a version and
// no earlier archive exists to fall back to.
var ErrUnresolvableArchive = errors.New("archive: no matching archive and no fallback")

// DefaultExtension is the archive suffix searched for when none is configured.
const DefaultExtension = ".zip"

// Resolution is the outcome of a lookup. It is also the fallback state fed
// into the next lookup.
type Resolution struct {
	Path     string `json:"path"`
	Fallback bool   `json:"fallback"` // Path was carried over from an earlier lookup
}

// Resolved reports whether the resolution points at an archive.
func (r Resolution) Resolved() bool {
	return r.Path != ""
}

// Resolver searches an archive directory tree for version snapshots.
type Resolver struct {
	root string
	ext  string
}

// NewResolver creates a resolver over root. ext defaults to DefaultExtension.
func NewResolver(root, ext string) *Resolver {
	if ext == "" {
		ext = DefaultExtension
	}
	return &Resolver{root: root, ext: strings.ToLower(ext)}
}

// Resolve returns the first archive, in depth-first lexical walk order, whose
// file name contains identity. When nothing matches it returns previous
// marked as a fallback, or ErrUnresolvableArchive if previous is empty.
func (r *Resolver) Resolve(identity string, previous Resolution) (Resolution, error) {
	path, err := r.find(identity)
	if err != nil {
		return Resolution{}, err
	}
	if path != "" {
		return Resolution{Path: path}, nil
	}
	if previous.Resolved() {
		return Resolution{Path: previous.Path, Fallback: true}, nil
	}
	return Resolution{}, fmt.Errorf("%w: %q under %s", ErrUnresolvableArchive, identity, r.root)
}

var errFound = errors.New("found")

func (r *Resolver) find(identity string) (string, error) {
	if identity == "" {
		return "", nil
	}
	var match string
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(strings.ToLower(name), r.ext) && strings.Contains(name, identity) {
			match = p
			return errFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("archive: scan %s: %w", r.root, err)
	}
	return match, nil
}
