package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/catalog"
	"github.com/AntonStoeckl/library-circulation-go/coordinator"
	"github.com/AntonStoeckl/library-circulation-go/customers"
	"github.com/AntonStoeckl/library-circulation-go/ledger"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

var fakeNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	backend     *testdoubles.BackendSpy
	books       *catalog.Store
	registry    *customers.Registry
	loans       *ledger.Ledger
	coordinator *coordinator.Coordinator
	now         time.Time
}

func newFixture(t *testing.T, seed func(backend *testdoubles.BackendSpy), options ...coordinator.Option) *fixture {
	t.Helper()

	ctx := context.Background()
	f := &fixture{backend: testdoubles.NewBackendSpy(), now: fakeNow}

	if seed != nil {
		seed(f.backend)
	}

	var err error

	writeLock := &sync.Mutex{}

	f.loans, err = ledger.NewLedger(f.backend)
	require.NoError(t, err)

	f.books, err = catalog.NewStore(f.backend, catalog.WithWriteLock(writeLock), catalog.WithActiveLoanChecker(f.loans))
	require.NoError(t, err)

	f.registry, err = customers.NewRegistry(f.backend, customers.WithWriteLock(writeLock), customers.WithActiveLoanChecker(f.loans))
	require.NoError(t, err)

	require.NoError(t, f.loans.Load(ctx))
	require.NoError(t, f.books.Load(ctx))
	require.NoError(t, f.registry.Load(ctx))

	options = append([]coordinator.Option{
		coordinator.WithClock(func() time.Time { return f.now }),
		coordinator.WithWriteLock(writeLock),
	}, options...)

	f.coordinator, err = coordinator.NewCoordinator(f.backend, f.books, f.registry, f.loans, options...)
	require.NoError(t, err)

	return f
}

func book(isbn library.ISBN) library.Book {
	return library.Book{
		ISBN:      isbn,
		Title:     "Title of " + isbn,
		Author:    "Some Author",
		Pages:     200,
		Genre:     "General",
		Available: true,
	}
}

func customer(id library.CustomerID) library.Customer {
	return library.Customer{ID: id, Name: "Customer", Email: "customer@example.com"}
}

// seedLibrary registers customers 1001 and 1002 and catalogs the given books.
func seedLibrary(isbns ...library.ISBN) func(backend *testdoubles.BackendSpy) {
	return func(backend *testdoubles.BackendSpy) {
		backend.SeedCustomers(customer(1001), customer(1002))

		for _, isbn := range isbns {
			backend.SeedBooks(book(isbn))
		}
	}
}

// assertAvailabilityMatchesLedger checks, in memory and in the backend, that a book is unavailable
// exactly when one active loan references it.
func assertAvailabilityMatchesLedger(t *testing.T, f *fixture) {
	t.Helper()

	for _, b := range f.books.All() {
		active := f.loans.ActiveLoanCount(b.ISBN)
		assert.LessOrEqual(t, active, 1, "isbn %s", b.ISBN)
		assert.Equal(t, !b.Available, active == 1, "isbn %s", b.ISBN)

		persisted, ok := f.backend.PersistedBook(b.ISBN)
		if assert.True(t, ok, "isbn %s", b.ISBN) {
			assert.Equal(t, b.Available, persisted.Available, "isbn %s", b.ISBN)
		}
	}

	loans := f.loans.All()
	persisted := f.backend.PersistedLoans()
	if assert.Len(t, persisted, len(loans)) {
		for i := range loans {
			assert.Equal(t, loans[i], persisted[i])
		}
	}
}

func mustGetBook(t *testing.T, f *fixture, isbn library.ISBN) library.Book {
	t.Helper()

	b, err := f.books.Get(isbn)
	require.NoError(t, err)

	return b
}
