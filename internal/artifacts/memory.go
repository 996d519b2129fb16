package artifacts

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// Write stores data at path.
func (s *MemoryStore) Write(path string, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.data[path] = buf
	return int64(len(data)), nil
}

// Exists reports whether an artifact is present at path.
func (s *MemoryStore) Exists(path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[path]
	return ok, nil
}

// Open returns a reader over the artifact at path.
func (s *MemoryStore) Open(path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[path]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
