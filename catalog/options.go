package catalog

import (
	"errors"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// ActiveLoanChecker answers whether a book is currently on loan.
// The loan ledger implements it.
type ActiveLoanChecker interface {
	HasActiveLoanForBook(isbn library.ISBN) bool
}

// ErrNilWriteLock is returned by WithWriteLock for a nil lock.
var ErrNilWriteLock = errors.New("write lock must not be nil")

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
func WithLogger(logger library.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithActiveLoanChecker makes Delete refuse books that are on loan.
func WithActiveLoanChecker(checker ActiveLoanChecker) Option {
	return func(s *Store) error {
		s.activeLoans = checker
		return nil
	}
}

// WithWriteLock replaces the Store's own write lock, typically with the one the coordinator holds.
func WithWriteLock(lock sync.Locker) Option {
	return func(s *Store) error {
		if lock == nil {
			return ErrNilWriteLock
		}

		s.writeLock = lock

		return nil
	}
}
