package customers

import (
	"errors"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// ActiveLoanChecker answers whether a customer currently borrows any book.
type ActiveLoanChecker interface {
	HasActiveLoanForCustomer(id library.CustomerID) bool
}

// ErrNilWriteLock is returned by WithWriteLock for a nil lock.
var ErrNilWriteLock = errors.New("write lock must not be nil")

// Option defines a functional option for configuring the Registry.
type Option func(*Registry) error

// WithLogger sets the logger for the Registry.
func WithLogger(logger library.Logger) Option {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

// WithActiveLoanChecker makes Delete refuse customers with active loans.
func WithActiveLoanChecker(checker ActiveLoanChecker) Option {
	return func(r *Registry) error {
		r.activeLoans = checker
		return nil
	}
}

// WithWriteLock makes Register and Delete serialize on the given lock instead of the Registry's own.
// Pass the coordinator's lock, otherwise a Delete may slip in while an issue is being committed.
func WithWriteLock(lock sync.Locker) Option {
	return func(r *Registry) error {
		if lock == nil {
			return ErrNilWriteLock
		}

		r.writeLock = lock

		return nil
	}
}
