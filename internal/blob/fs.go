package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

// FS is a Store over an afero filesystem.
type FS struct {
	fs afero.Fs
}

var _ Store = (*FS)(nil)

// NewFS wraps fsys. Tests pass afero.NewMemMapFs().
func NewFS(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// NewOSFS returns a Store rooted at the directory root on disk.
func NewOSFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

func (s *FS) Write(_ context.Context, key string, data []byte, _ string) error {
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return mapFSError("create blob dir", key, err)
	}
	f, err := s.fs.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return mapFSError("create blob", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(key)
		return mapFSError("write blob", key, err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(key)
		return mapFSError("close blob", key, err)
	}
	return nil
}

func (s *FS) Read(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, key)
	if err != nil {
		return nil, mapFSError("read blob", key, err)
	}
	return data, nil
}

func (s *FS) Exists(_ context.Context, key string) (bool, error) {
	ok, err := afero.Exists(s.fs, key)
	if err != nil {
		return false, mapFSError("stat blob", key, err)
	}
	return ok, nil
}

func (s *FS) Remove(_ context.Context, key string) error {
	info, err := s.fs.Stat(key)
	if err != nil {
		return mapFSError("stat blob", key, err)
	}
	if info.IsDir() {
		return fmt.Errorf("remove blob %s: is a directory", key)
	}
	if err := s.fs.Remove(key); err != nil {
		return mapFSError("remove blob", key, err)
	}
	return nil
}

func (s *FS) RemoveDir(_ context.Context, dir string) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return mapFSError("read blob dir", dir, err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := s.fs.Remove(dir); err != nil {
		return mapFSError("remove blob dir", dir, err)
	}
	return nil
}

func (s *FS) RemoveAll(_ context.Context, dir string) error {
	if err := s.fs.RemoveAll(dir); err != nil {
		return mapFSError("remove blob tree", dir, err)
	}
	return nil
}

// mapFSError folds filesystem errors onto the package sentinels.
func mapFSError(op, key string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s %s: %w", op, key, ErrNotExist)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%s %s: %w", op, key, ErrExist)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s %s: %w: %v", op, key, ErrPermission, err)
	default:
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
}
