package library

import "errors"

// The error taxonomy of the circulation domain.
// Operations return one of these joined with a more specific cause, so callers should use errors.Is.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an identity key is already taken on create.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConflict is returned when a state precondition is violated.
	ErrConflict = errors.New("conflict")

	// ErrForbidden is returned when the acting customer is not registered.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstreamUnavailable is returned when the bibliographic lookup failed or was rate-limited.
	ErrUpstreamUnavailable = errors.New("upstream unavailable, try again later")

	// ErrInvalidInput is returned when an entity fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInconsistentState is returned when book availability disagrees with the loan ledger.
	ErrInconsistentState = errors.New("book availability disagrees with loan ledger")

	// ErrCommitFailed is returned when a changeset could not be persisted.
	ErrCommitFailed = errors.New("committing changes failed")

	// ErrLoadFailed is returned when a collection could not be loaded from the backend.
	ErrLoadFailed = errors.New("loading collection failed")

	// ErrConcurrencyConflict is returned by a backend when a guarded row was changed by someone else.
	ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")

	// ErrNilBackend is returned when a store is constructed without a backend.
	ErrNilBackend = errors.New("backend must not be nil")
)

// Specific causes, joined with the taxonomy errors above.
var (
	ErrBookNotFound          = errors.New("book is not in the catalog")
	ErrBookAlreadyCataloged  = errors.New("book with this isbn already exists")
	ErrBookNotAvailable      = errors.New("book is currently not available for loan")
	ErrBookAlreadyAvailable  = errors.New("book is already marked as available, no return needed")
	ErrBookOnLoan            = errors.New("book is currently on loan and cannot be deleted")
	ErrCustomerNotFound      = errors.New("customer is not registered")
	ErrCustomerAlreadyExists = errors.New("customer with this id already exists")
	ErrCustomerHasLoans      = errors.New("customer has active loans and cannot be deleted")
	ErrNoActiveLoan          = errors.New("no active loan record found for this isbn")
	ErrEmptyISBN             = errors.New("isbn must not be empty")
)
