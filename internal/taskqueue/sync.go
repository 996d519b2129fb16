package taskqueue

import (
	"context"
	"fmt"
	"sync"
)

// Sync executes handlers inline at enqueue time. Used in tests and in
// single-process deployments without a broker.
type Sync struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewSync creates a synchronous queue.
func NewSync() *Sync {
	return &Sync{handlers: make(map[string]Handler)}
}

// Handle registers a handler for a task name.
func (s *Sync) Handle(task string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[task] = h
}

// Enqueue runs the registered handler immediately and returns its error.
func (s *Sync) Enqueue(ctx context.Context, task string, args map[string]string) error {
	s.mu.RLock()
	h, ok := s.handlers[task]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler for task %q", task)
	}
	return h(ctx, args)
}

// Verify interface compliance at compile time.
var _ Queue = (*Sync)(nil)
