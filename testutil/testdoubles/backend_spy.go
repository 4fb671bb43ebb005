package testdoubles

import (
	"context"
	"slices"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// BackendSpy is an in-memory library.Backend that records commits for testing.
// Committed changes are applied to its own collections, so a reload after a commit
// sees the same state as a durable backend would.
type BackendSpy struct {
	books       map[library.ISBN]library.Book
	customers   map[library.CustomerID]library.Customer
	loans       []library.Loan
	commits     []library.Changeset
	commitErr   error
	loadErr     error
	commitHook  func(ctx context.Context, changes library.Changeset) error
	commitCalls int
	mu          sync.Mutex
}

// NewBackendSpy creates an empty BackendSpy.
func NewBackendSpy() *BackendSpy {
	return &BackendSpy{
		books:     make(map[library.ISBN]library.Book),
		customers: make(map[library.CustomerID]library.Customer),
	}
}

// SeedBooks stores books as if they had been committed earlier.
func (s *BackendSpy) SeedBooks(books ...library.Book) *BackendSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range books {
		s.books[book.ISBN] = book
	}

	return s
}

// SeedCustomers stores customers as if they had been committed earlier.
func (s *BackendSpy) SeedCustomers(customers ...library.Customer) *BackendSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, customer := range customers {
		s.customers[customer.ID] = customer
	}

	return s
}

// SeedLoans appends loans as if they had been committed earlier.
func (s *BackendSpy) SeedLoans(loans ...library.Loan) *BackendSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loans = append(s.loans, loans...)

	return s
}

// FailCommitsWith makes every following Commit fail with err. Pass nil to heal the backend.
func (s *BackendSpy) FailCommitsWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitErr = err
}

// FailLoadsWith makes every following Load* call fail with err.
func (s *BackendSpy) FailLoadsWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadErr = err
}

// OnCommit registers a hook that runs before each commit is applied. A hook error fails the commit.
// The hook runs without holding the spy's lock, so it may block.
func (s *BackendSpy) OnCommit(hook func(ctx context.Context, changes library.Changeset) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitHook = hook
}

// LoadBooks implements library.BookLoader.
func (s *BackendSpy) LoadBooks(_ context.Context) ([]library.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	books := make([]library.Book, 0, len(s.books))
	for _, book := range s.books {
		books = append(books, book)
	}

	return books, nil
}

// LoadCustomers implements library.CustomerLoader.
func (s *BackendSpy) LoadCustomers(_ context.Context) ([]library.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	customers := make([]library.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		customers = append(customers, customer)
	}

	return customers, nil
}

// LoadLoans implements library.LoanLoader.
func (s *BackendSpy) LoadLoans(_ context.Context) ([]library.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	return slices.Clone(s.loans), nil
}

// Commit implements library.Committer.
func (s *BackendSpy) Commit(ctx context.Context, changes library.Changeset) error {
	s.mu.Lock()
	s.commitCalls++
	hook := s.commitHook
	commitErr := s.commitErr
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, changes); err != nil {
			return err
		}
	}

	if commitErr != nil {
		return commitErr
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, book := range changes.InsertedBooks {
		s.books[book.ISBN] = book
	}

	for _, book := range changes.UpdatedBooks {
		s.books[book.ISBN] = book
	}

	for _, isbn := range changes.DeletedBooks {
		delete(s.books, isbn)
	}

	for _, customer := range changes.InsertedCustomers {
		s.customers[customer.ID] = customer
	}

	for _, id := range changes.DeletedCustomers {
		delete(s.customers, id)
	}

	s.loans = append(s.loans, changes.AppendedLoans...)

	for _, updated := range changes.UpdatedLoans {
		for i := range s.loans {
			if s.loans[i].ID == updated.ID {
				s.loans[i] = updated
			}
		}
	}

	s.commits = append(s.commits, changes)

	return nil
}

// Commits returns all successfully committed changesets in commit order.
func (s *BackendSpy) Commits() []library.Changeset {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.commits)
}

// CommitCalls returns the number of Commit calls, including failed ones.
func (s *BackendSpy) CommitCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitCalls
}

// PersistedBook returns the durable state of one book.
func (s *BackendSpy) PersistedBook(isbn library.ISBN) (library.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[isbn]

	return book, ok
}

// PersistedCustomer returns the durable state of one customer.
func (s *BackendSpy) PersistedCustomer(id library.CustomerID) (library.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]

	return customer, ok
}

// PersistedLoans returns the durable loan log.
func (s *BackendSpy) PersistedLoans() []library.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.loans)
}
