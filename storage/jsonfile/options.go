package jsonfile

import (
	"errors"
	"path/filepath"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// ErrInvalidFileName is returned when a configured file name is empty or contains a path separator.
var ErrInvalidFileName = errors.New("file name must be a plain, non-empty name")

// Default file names, as used by the legacy Python dashboard.
const (
	DefaultBooksFile     = "book_database.json"
	DefaultCustomersFile = "customers.json"
	DefaultLoansFile     = "loan_records.json"
)

// Option defines a functional option for configuring the Backend.
type Option func(*Backend) error

// WithLogger sets the logger for the Backend.
func WithLogger(logger library.Logger) Option {
	return func(b *Backend) error {
		b.logger = logger
		return nil
	}
}

// WithFileNames overrides the names of the three files inside the data directory.
func WithFileNames(books, customers, loans string) Option {
	return func(b *Backend) error {
		for _, name := range []string{books, customers, loans} {
			if name == "" || filepath.Base(name) != name {
				return errors.Join(ErrInvalidFileName, errors.New(name))
			}
		}

		b.booksFile = books
		b.customersFile = customers
		b.loansFile = loans

		return nil
	}
}
