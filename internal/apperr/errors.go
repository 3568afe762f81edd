// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotEmpty is returned when a replay target already holds a repository.
	ErrNotEmpty = errors.New("target is not empty")
)
