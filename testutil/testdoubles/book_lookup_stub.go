package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/lookup"
)

// BookLookupStub answers every lookup with a fixed result or error and counts the calls.
// Block, when set, is waited on before answering, so tests can observe a lookup in flight.
type BookLookupStub struct {
	Result lookup.Result
	Err    error
	Block  <-chan struct{}

	calls int
	mu    sync.Mutex
}

// Lookup implements the lookup collaborator of the coordinator.
func (s *BookLookupStub) Lookup(ctx context.Context, isbn string) (lookup.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return lookup.Result{}, ctx.Err()
		}
	}

	if s.Err != nil {
		return lookup.Result{}, s.Err
	}

	result := s.Result
	result.ISBN = isbn

	return result, nil
}

// Calls returns the number of Lookup calls.
func (s *BookLookupStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}
