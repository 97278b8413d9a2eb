// internal/store/storetest/conflict.go
package storetest

import (
	"context"
	"errors"
	"sync"

	"libradesk/internal/library"
)

// ConflictingStore aborts the first Failures transactions with the error a
// store reports for a deadlock victim. Everything else goes to Store.
type ConflictingStore struct {
	library.Store
	Failures int

	mu       sync.Mutex
	attempts int
}

// WithConflicts wraps store so its first n transactions fail with ErrConflict.
func WithConflicts(store library.Store, n int) *ConflictingStore {
	return &ConflictingStore{Store: store, Failures: n}
}

func (s *ConflictingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx library.Repositories) error) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.Failures
	s.mu.Unlock()

	if fail {
		return errors.Join(library.ErrConflict, errors.New("deadlock detected"))
	}
	return s.Store.WithinTx(ctx, fn)
}

// Attempts reports how many transactions were started.
func (s *ConflictingStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
