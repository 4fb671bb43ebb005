package coordinator

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/lookup"
)

// ErrNilDependency is returned when the Coordinator is constructed with a missing collaborator.
var ErrNilDependency = errors.New("coordinator dependency must not be nil")

// ErrLookupNotConfigured is joined with library.ErrUpstreamUnavailable when no lookup was configured.
var ErrLookupNotConfigured = errors.New("no bibliographic lookup configured")

// ErrBookUnknownUpstream is joined with library.ErrNotFound when the lookup knows no such volume.
var ErrBookUnknownUpstream = errors.New("book not found in the bibliographic service")

// BookCatalog is what the Coordinator needs from the Catalog Store.
type BookCatalog interface {
	Get(isbn library.ISBN) (library.Book, error)
	Contains(isbn library.ISBN) bool
	All() []library.Book
	Insert(ctx context.Context, book library.Book) error
	StageAvailability(isbn library.ISBN, available bool) (library.Changeset, error)
	StageDelete(isbn library.ISBN) (library.Changeset, error)
	Apply(changes library.Changeset)
}

// CustomerDirectory is what the Coordinator needs from the Customer Registry.
type CustomerDirectory interface {
	Exists(id library.CustomerID) bool
	StageDelete(id library.CustomerID) (library.Changeset, error)
	Apply(changes library.Changeset)
}

// LoanLedger is what the Coordinator needs from the Loan Ledger.
type LoanLedger interface {
	StageIssue(loan library.Loan) library.Changeset
	StageReturn(loan library.Loan, at time.Time) library.Changeset
	FindActiveLoan(isbn library.ISBN) (library.Loan, error)
	FindActiveLoanFor(isbn library.ISBN, customerID library.CustomerID) (library.Loan, error)
	HasActiveLoanForBook(isbn library.ISBN) bool
	HasActiveLoanForCustomer(id library.CustomerID) bool
	ActiveLoanCount(isbn library.ISBN) int
	ActiveLoans() []library.Loan
	HistoryFor(customerID library.CustomerID) iter.Seq[library.Loan]
	Apply(changes library.Changeset)
}

// BookLookup resolves an ISBN to bibliographic data. The lookup.Client implements it.
type BookLookup interface {
	Lookup(ctx context.Context, isbn string) (lookup.Result, error)
}

// Coordinator serializes issue, return, and deletions, and keeps book availability
// in line with the loan ledger.
type Coordinator struct {
	committer library.Committer
	catalog   BookCatalog
	customers CustomerDirectory
	ledger    LoanLedger
	lookup    BookLookup

	clock     func() time.Time
	newLoanID func() (library.LoanID, error)

	logger           library.Logger
	contextualLogger library.ContextualLogger
	metricsCollector library.MetricsCollector
	tracingCollector library.TracingCollector

	mu sync.Locker
}

// NewCoordinator wires the stores and the backend they share.
// The stores must be loaded from the same backend that is passed as committer.
// When the stores are also mutated directly, give all of them the same lock with WithWriteLock.
func NewCoordinator(
	committer library.Committer,
	catalog BookCatalog,
	customers CustomerDirectory,
	ledger LoanLedger,
	options ...Option,
) (*Coordinator, error) {
	if committer == nil {
		return nil, library.ErrNilBackend
	}

	if catalog == nil || customers == nil || ledger == nil {
		return nil, ErrNilDependency
	}

	coordinator := &Coordinator{
		committer: committer,
		catalog:   catalog,
		customers: customers,
		ledger:    ledger,
		clock:     time.Now,
		newLoanID: uuid.NewV7,
		mu:        &sync.Mutex{},
	}

	for _, option := range options {
		if err := option(coordinator); err != nil {
			return nil, err
		}
	}

	return coordinator, nil
}

// commit persists the changes and, only on success, applies them to every store.
// Must be called with the mutex held.
func (c *Coordinator) commit(ctx context.Context, changes library.Changeset) error {
	if changes.IsEmpty() {
		return nil
	}

	if err := c.committer.Commit(ctx, changes); err != nil {
		c.recordCommitFailure(ctx, err)
		return errors.Join(library.ErrCommitFailed, err)
	}

	c.catalog.Apply(changes)
	c.customers.Apply(changes)
	c.ledger.Apply(changes)

	return nil
}

func normalize(rawISBN string) (library.ISBN, error) {
	isbn, err := library.NormalizeISBN(rawISBN)
	if err != nil {
		return "", errors.Join(library.ErrInvalidInput, err)
	}

	return isbn, nil
}
