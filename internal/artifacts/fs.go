package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore stores artifacts on the local filesystem under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Compile-time interface check.
var _ Store = (*FSStore)(nil)

// Write stores data at path, creating parent directories.
func (s *FSStore) Write(path string, data []byte) (int64, error) {
	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return 0, fmt.Errorf("write artifact %s: %w", path, err)
	}
	return int64(len(data)), nil
}

// Exists reports whether an artifact is present at path.
func (s *FSStore) Exists(path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Open returns a reader over the artifact at path.
func (s *FSStore) Open(path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", path, err)
	}
	return f, nil
}

// resolve maps a relative artifact path into the root, rejecting escapes.
func (s *FSStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid artifact path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}
