package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for a blob path that resolves outside the store
var ErrOutsideRoot = errors.New("blob path escapes store root")

// BlobStore holds downloaded document bytes under relative paths of the form
// <year>/<month>/<record-id>/<document-title>
type BlobStore interface {
	Exists(path string) bool
	Size(path string) (int64, error)
	Path(path string) (string, error)
	Write(path string, r io.Reader) (int64, error)
}

// FSBlobStore keeps blobs on the local filesystem
type FSBlobStore struct {
	dir string
}

// NewFSBlobStore creates the root directory if needed
func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", dir, err)
	}
	return &FSBlobStore{dir: dir}, nil
}

// Exists reports whether a complete blob is stored at path
func (s *FSBlobStore) Exists(path string) bool {
	fullPath, err := s.Path(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the stored byte count
func (s *FSBlobStore) Size(path string) (int64, error) {
	fullPath, err := s.Path(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return 0, fmt.Errorf("stat blob %s: %w", path, err)
	}
	return info.Size(), nil
}

// Path returns the local filesystem path for a relative blob path. Paths
// that resolve to the root itself or outside it are refused.
func (s *FSBlobStore) Path(path string) (string, error) {
	fullPath := filepath.Join(s.dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.dir, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return fullPath, nil
}

// Write streams r into a temp file and renames it into place, so a blob that
// Exists is always complete
func (s *FSBlobStore) Write(path string, r io.Reader) (int64, error) {
	fullPath, err := s.Path(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return 0, fmt.Errorf("create blob dir: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("write blob %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("rename blob: %w", err)
	}
	return size, nil
}
