package netident

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCacheDir returns the default FileStore location.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), "network")
}

// FileStore keeps one file per record under a base directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, or at DefaultCacheDir when
// dir is empty. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	return &FileStore{dir: dir}
}

// Dir returns the base directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	path, err := s.path(ctx, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	return data, nil
}

// Write replaces the record atomically through a temporary file in the same
// directory.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	path, err := s.path(ctx, name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}

	return nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(ctx, name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func (s *FileStore) path(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid record name %q", name)
	}

	return filepath.Join(s.dir, name), nil
}
