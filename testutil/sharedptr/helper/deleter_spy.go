package helper

import (
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/shared-handles-go/sharedptr"
)

// DeleterSpy records every invocation of the deleters it hands out.
type DeleterSpy[T any] struct {
	calls   atomic.Int64
	mu      sync.Mutex
	deleted map[*T]int
	err     error
}

// NewDeleterSpy creates a DeleterSpy whose deleters succeed.
func NewDeleterSpy[T any]() *DeleterSpy[T] {
	return &DeleterSpy[T]{deleted: make(map[*T]int)}
}

// NewFailingDeleterSpy creates a DeleterSpy whose deleters record the call and return err.
func NewFailingDeleterSpy[T any](err error) *DeleterSpy[T] {
	return &DeleterSpy[T]{deleted: make(map[*T]int), err: err}
}

// Deleter returns a sharedptr.Deleter that records its invocations in the spy.
func (s *DeleterSpy[T]) Deleter() sharedptr.Deleter[T] {
	return func(p *T) error {
		s.calls.Add(1)

		s.mu.Lock()
		s.deleted[p]++
		s.mu.Unlock()

		return s.err
	}
}

// Calls returns the total number of deleter invocations.
func (s *DeleterSpy[T]) Calls() int64 {
	return s.calls.Load()
}

// DeletedCount returns how often p was passed to a deleter.
func (s *DeleterSpy[T]) DeletedCount(p *T) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleted[p]
}
