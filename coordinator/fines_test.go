package coordinator_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

func Test_Coordinator_CustomerFines(t *testing.T) {
	// arrange
	overdue := library.BuildLoan(uuid.New(), "A", 1001, fakeNow.Add(-33*24*time.Hour))
	returnedLate := library.BuildLoan(uuid.New(), "B", 1001, fakeNow.Add(-300*24*time.Hour)).
		MarkReturned(fakeNow.Add(-200 * 24 * time.Hour))
	notDue := library.BuildLoan(uuid.New(), "C", 1001, fakeNow.Add(-24*time.Hour))
	othersLoan := library.BuildLoan(uuid.New(), "D", 1002, fakeNow.Add(-40*24*time.Hour))

	f := newFixture(t, func(backend *testdoubles.BackendSpy) {
		seedLibrary()(backend)
		backend.SeedLoans(overdue, returnedLate, notDue, othersLoan)
	})

	// act
	statement, err := f.coordinator.CustomerFines(1001, fakeNow)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 15, statement.Total)
	require.Len(t, statement.Loans, 1)
	assert.Equal(t, overdue.ID, statement.Loans[0].Loan.ID)
	assert.Equal(t, 3, statement.Loans[0].OverdueDays)
	assert.Equal(t, 15, statement.Loans[0].Fine)
	assert.Equal(t, library.CivilDate(fakeNow), statement.Today)
}

func Test_Coordinator_CustomerFines_UnknownCustomer(t *testing.T) {
	f := newFixture(t, seedLibrary())

	_, err := f.coordinator.CustomerFines(4711, fakeNow)

	assert.ErrorIs(t, err, library.ErrNotFound)
}
