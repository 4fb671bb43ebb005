package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/coordinator"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

func seedInconsistentLibrary(backend *testdoubles.BackendSpy) {
	backend.SeedCustomers(customer(1001), customer(1002))
	backend.SeedBooks(
		book("A"),                         // available, but on loan
		book("B").WithAvailability(false), // unavailable without a loan
		book("C"),                         // fine
		book("E").WithAvailability(false), // two active loans
	)
	backend.SeedLoans(
		library.BuildLoan(uuid.New(), "A", 1001, fakeNow.Add(-time.Hour)),
		library.BuildLoan(uuid.New(), "D", 1001, fakeNow.Add(-time.Hour)),
		library.BuildLoan(uuid.New(), "E", 1001, fakeNow.Add(-2*time.Hour)),
		library.BuildLoan(uuid.New(), "E", 1002, fakeNow.Add(-time.Hour)),
	)
}

func Test_Coordinator_CheckConsistency_Consistent(t *testing.T) {
	// arrange
	f := newFixture(t, seedLibrary("A", "B"))
	_, err := f.coordinator.IssueBook(context.Background(), "A", 1001)
	require.NoError(t, err)

	// act
	findings, err := f.coordinator.CheckConsistency()

	// assert
	assert.NoError(t, err)
	assert.Empty(t, findings)
}

func Test_Coordinator_CheckConsistency_Findings(t *testing.T) {
	// arrange
	f := newFixture(t, seedInconsistentLibrary)

	// act
	findings, err := f.coordinator.CheckConsistency()

	// assert
	assert.ErrorIs(t, err, library.ErrInconsistentState)
	assert.ElementsMatch(t, []coordinator.Inconsistency{
		{ISBN: "A", Kind: coordinator.KindAvailableWhileOnLoan, ActiveLoans: 1},
		{ISBN: "B", Kind: coordinator.KindUnavailableWithoutLoan},
		{ISBN: "E", Kind: coordinator.KindMultipleActiveLoans, ActiveLoans: 2},
		{ISBN: "D", Kind: coordinator.KindLoanForUnknownBook, ActiveLoans: 1},
	}, findings)
}

func Test_Coordinator_RepairConsistency(t *testing.T) {
	// arrange
	f := newFixture(t, seedInconsistentLibrary)

	// act
	repaired, err := f.coordinator.RepairConsistency(context.Background())

	// assert
	require.NoError(t, err)
	assert.ElementsMatch(t, []library.ISBN{"A", "B"}, []library.ISBN{repaired[0].ISBN, repaired[1].ISBN})
	assert.False(t, mustGetBook(t, f, "A").Available)
	assert.True(t, mustGetBook(t, f, "B").Available)
	require.Len(t, f.backend.Commits(), 1, "all repairs are committed together")

	persistedA, _ := f.backend.PersistedBook("A")
	assert.False(t, persistedA.Available)

	remaining, err := f.coordinator.CheckConsistency()
	assert.ErrorIs(t, err, library.ErrInconsistentState)
	assert.ElementsMatch(t, []coordinator.InconsistencyKind{
		coordinator.KindMultipleActiveLoans,
		coordinator.KindLoanForUnknownBook,
	}, []coordinator.InconsistencyKind{remaining[0].Kind, remaining[1].Kind})
}

func Test_Coordinator_RepairConsistency_CommitFailure(t *testing.T) {
	// arrange
	f := newFixture(t, seedInconsistentLibrary)
	f.backend.FailCommitsWith(errors.New("read-only file system"))

	// act
	_, err := f.coordinator.RepairConsistency(context.Background())

	// assert
	assert.ErrorIs(t, err, library.ErrCommitFailed)
	assert.True(t, mustGetBook(t, f, "A").Available, "memory stays untouched")
}

func Test_Coordinator_RepairConsistency_NothingToDo(t *testing.T) {
	f := newFixture(t, seedLibrary("A"))

	repaired, err := f.coordinator.RepairConsistency(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, repaired)
	assert.Equal(t, 0, f.backend.CommitCalls())
}
