// Package blob stores attachment content under slash-separated keys. Two
// backends exist: a directory tree behind afero and an S3 bucket.
package blob

import (
	"context"
	"errors"
)

// Backend errors. Implementations wrap them so callers can use errors.Is.
var (
	ErrNotExist   = errors.New("blob does not exist")
	ErrExist      = errors.New("blob already exists")
	ErrPermission = errors.New("blob permission denied")
)

// Store is the content store used by the attachment service. Keys are
// slash separated and relative to the store root.
type Store interface {
	// Write stores data under key. It fails with ErrExist if key is taken.
	Write(ctx context.Context, key string, data []byte, contentType string) error
	// Read returns the content of key.
	Read(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether key holds content.
	Exists(ctx context.Context, key string) (bool, error)
	// Remove deletes key. Missing keys return ErrNotExist.
	Remove(ctx context.Context, key string) error
	// RemoveDir removes the directory dir if it is empty.
	RemoveDir(ctx context.Context, dir string) error
	// RemoveAll deletes dir and everything below it. Missing dirs are not
	// an error.
	RemoveAll(ctx context.Context, dir string) error
}
