package customers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/customers"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

type activeLoansStub map[library.CustomerID]bool

func (s activeLoansStub) HasActiveLoanForCustomer(id library.CustomerID) bool {
	return s[id]
}

func newLoadedRegistry(t *testing.T, backend *testdoubles.BackendSpy, options ...customers.Option) *customers.Registry {
	t.Helper()

	registry, err := customers.NewRegistry(backend, options...)
	require.NoError(t, err)
	require.NoError(t, registry.Load(context.Background()))

	return registry
}

func Test_Registry_Register_Success(t *testing.T) {
	// arrange
	backend := testdoubles.NewBackendSpy()
	registry := newLoadedRegistry(t, backend)
	customer := library.Customer{ID: 1001, Name: "John Doe", Email: "john@example.com"}

	// act
	err := registry.Register(context.Background(), customer)

	// assert
	require.NoError(t, err)
	assert.True(t, registry.Exists(1001))
	stored, err := registry.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, customer, stored)
	_, persisted := backend.PersistedCustomer(1001)
	assert.True(t, persisted)
}

func Test_Registry_Register_DuplicateKey(t *testing.T) {
	// arrange
	backend := testdoubles.NewBackendSpy().SeedCustomers(library.Customer{ID: 1001, Name: "John Doe"})
	registry := newLoadedRegistry(t, backend)

	// act
	err := registry.Register(context.Background(), library.Customer{ID: 1001, Name: "Jane Smith"})

	// assert
	assert.ErrorIs(t, err, library.ErrDuplicateKey)
	stored, _ := registry.Get(1001)
	assert.Equal(t, "John Doe", stored.Name, "registered customers are immutable")
}

func Test_Registry_Register_InvalidEmail(t *testing.T) {
	registry := newLoadedRegistry(t, testdoubles.NewBackendSpy())

	err := registry.Register(context.Background(), library.Customer{ID: 1001, Name: "John Doe", Email: "john"})

	assert.ErrorIs(t, err, library.ErrInvalidInput)
	assert.False(t, registry.Exists(1001))
}

func Test_Registry_Register_CommitFailure(t *testing.T) {
	// arrange
	backend := testdoubles.NewBackendSpy()
	backend.FailCommitsWith(errors.New("write failed"))
	registry := newLoadedRegistry(t, backend)

	// act
	err := registry.Register(context.Background(), library.Customer{ID: 1001, Name: "John Doe"})

	// assert
	assert.ErrorIs(t, err, library.ErrCommitFailed)
	assert.False(t, registry.Exists(1001))
}

func Test_Registry_Get_NotFound(t *testing.T) {
	registry := newLoadedRegistry(t, testdoubles.NewBackendSpy())

	_, err := registry.Get(42)

	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.ErrorIs(t, err, library.ErrCustomerNotFound)
}

func Test_Registry_Delete(t *testing.T) {
	testCases := []struct {
		description string
		id          library.CustomerID
		hasLoans    bool
		expectedErr error
	}{
		{description: "no active loans", id: 1001},
		{description: "active loans", id: 1001, hasLoans: true, expectedErr: library.ErrConflict},
		{description: "unknown customer", id: 42, expectedErr: library.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			backend := testdoubles.NewBackendSpy().SeedCustomers(library.Customer{ID: 1001, Name: "John Doe"})
			checker := activeLoansStub{1001: tc.hasLoans}
			registry := newLoadedRegistry(t, backend, customers.WithActiveLoanChecker(checker))

			// act
			err := registry.Delete(context.Background(), tc.id)

			// assert
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.True(t, registry.Exists(1001))

				return
			}

			assert.NoError(t, err)
			assert.False(t, registry.Exists(tc.id))
			_, persisted := backend.PersistedCustomer(tc.id)
			assert.False(t, persisted)
		})
	}
}

func Test_Registry_All_IsOrderedByID(t *testing.T) {
	// arrange
	backend := testdoubles.NewBackendSpy().SeedCustomers(
		library.Customer{ID: 3, Name: "C"},
		library.Customer{ID: 1, Name: "A"},
		library.Customer{ID: 2, Name: "B"},
	)
	registry := newLoadedRegistry(t, backend)

	// act
	all := registry.All()

	// assert
	require.Len(t, all, 3)
	assert.Equal(t, []library.CustomerID{1, 2, 3}, []library.CustomerID{all[0].ID, all[1].ID, all[2].ID})
}

func Test_NewRegistry_NilWriteLock(t *testing.T) {
	_, err := customers.NewRegistry(testdoubles.NewBackendSpy(), customers.WithWriteLock(nil))

	assert.ErrorIs(t, err, customers.ErrNilWriteLock)
}
