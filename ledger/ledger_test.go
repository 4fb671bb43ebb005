package ledger_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/ledger"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/testutil/testdoubles"
)

var fakeClock = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newLoan(isbn library.ISBN, customerID library.CustomerID, issuedAt time.Time) library.Loan {
	return library.BuildLoan(uuid.Must(uuid.NewV7()), isbn, customerID, issuedAt)
}

func newLoadedLedger(t *testing.T, loans ...library.Loan) *ledger.Ledger {
	t.Helper()

	backend := testdoubles.NewBackendSpy().SeedLoans(loans...)
	loanLedger, err := ledger.NewLedger(backend)
	require.NoError(t, err)
	require.NoError(t, loanLedger.Load(context.Background()))

	return loanLedger
}

func collect(seq func(func(library.Loan) bool)) []library.Loan {
	var loans []library.Loan
	for loan := range seq {
		loans = append(loans, loan)
	}

	return loans
}

func Test_NewLedger_NilLoader(t *testing.T) {
	_, err := ledger.NewLedger(nil)

	assert.ErrorIs(t, err, library.ErrNilBackend)
}

func Test_Ledger_Load_BackendFailure(t *testing.T) {
	// arrange
	backend := testdoubles.NewBackendSpy()
	backend.FailLoadsWith(errors.New("corrupt file"))
	loanLedger, err := ledger.NewLedger(backend)
	require.NoError(t, err)

	// act
	err = loanLedger.Load(context.Background())

	// assert
	assert.ErrorIs(t, err, library.ErrLoadFailed)
}

func Test_Ledger_StageIssue_DoesNotMutateUntilApplied(t *testing.T) {
	// arrange
	loanLedger := newLoadedLedger(t)
	loan := newLoan("A", 1001, fakeClock)

	// act
	changes := loanLedger.StageIssue(loan)

	// assert
	assert.Equal(t, 0, loanLedger.Len())
	assert.False(t, loanLedger.HasActiveLoanForBook("A"))

	loanLedger.Apply(changes)

	assert.Equal(t, 1, loanLedger.Len())
	assert.True(t, loanLedger.HasActiveLoanForBook("A"))
	assert.True(t, loanLedger.HasActiveLoanForCustomer(1001))
}

func Test_Ledger_StageReturn_InvalidatesIndices(t *testing.T) {
	// arrange
	loan := newLoan("A", 1001, fakeClock)
	loanLedger := newLoadedLedger(t, loan)

	// act
	changes := loanLedger.StageReturn(loan, fakeClock.Add(24*time.Hour))
	loanLedger.Apply(changes)

	// assert
	assert.False(t, loanLedger.HasActiveLoanForBook("A"))
	assert.False(t, loanLedger.HasActiveLoanForCustomer(1001))
	_, err := loanLedger.FindActiveLoan("A")
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.Equal(t, 1, loanLedger.Len(), "loans are never removed")
	assert.True(t, loanLedger.All()[0].Returned)
}

func Test_Ledger_FindActiveLoanFor(t *testing.T) {
	// arrange
	returned := newLoan("A", 1001, fakeClock).MarkReturned(fakeClock.Add(time.Hour))
	active := newLoan("A", 1001, fakeClock.Add(2*time.Hour))
	loanLedger := newLoadedLedger(t, returned, active)

	// act
	found, err := loanLedger.FindActiveLoanFor("A", 1001)

	// assert
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = loanLedger.FindActiveLoanFor("A", 2002)
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.ErrorIs(t, err, library.ErrNoActiveLoan)

	_, err = loanLedger.FindActiveLoanFor("B", 1001)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func Test_Ledger_FindActiveLoanFor_LegacyDuplicateActives(t *testing.T) {
	// arrange
	older := newLoan("A", 1001, fakeClock)
	newer := newLoan("A", 2002, fakeClock.Add(time.Hour))
	newest := newLoan("A", 1001, fakeClock.Add(2*time.Hour))
	loanLedger := newLoadedLedger(t, older, newer, newest)

	// act
	forFirst, errFirst := loanLedger.FindActiveLoanFor("A", 1001)
	forSecond, errSecond := loanLedger.FindActiveLoanFor("A", 2002)

	// assert
	require.NoError(t, errFirst)
	require.NoError(t, errSecond)
	assert.Equal(t, newest.ID, forFirst.ID, "the most recently issued loan wins")
	assert.Equal(t, newer.ID, forSecond.ID, "falls back to a reverse scan when the index points elsewhere")
}

func Test_Ledger_Return_ReindexesRemainingLegacyActive(t *testing.T) {
	// arrange
	older := newLoan("A", 1001, fakeClock)
	newer := newLoan("A", 2002, fakeClock.Add(time.Hour))
	loanLedger := newLoadedLedger(t, older, newer)

	// act
	loanLedger.Apply(loanLedger.StageReturn(newer, fakeClock.Add(2*time.Hour)))

	// assert
	found, err := loanLedger.FindActiveLoan("A")
	require.NoError(t, err)
	assert.Equal(t, older.ID, found.ID)
	assert.True(t, loanLedger.HasActiveLoanForBook("A"))
	assert.False(t, loanLedger.HasActiveLoanForCustomer(2002))
}

func Test_Ledger_HistoryFor_IsOrderedAndRestartable(t *testing.T) {
	// arrange
	first := newLoan("A", 1001, fakeClock).MarkReturned(fakeClock.Add(time.Hour))
	other := newLoan("B", 2002, fakeClock.Add(2*time.Hour))
	second := newLoan("C", 1001, fakeClock.Add(3*time.Hour))
	loanLedger := newLoadedLedger(t, first, other, second)

	// act
	history := loanLedger.HistoryFor(1001)

	// assert
	expected := []library.Loan{first, second}
	if diff := cmp.Diff(expected, collect(history)); diff != "" {
		t.Errorf("first iteration mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(expected, collect(history)); diff != "" {
		t.Errorf("second iteration mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, collect(loanLedger.HistoryFor(4711)))
}

func Test_Ledger_HistoryFor_StopsEarly(t *testing.T) {
	// arrange
	loanLedger := newLoadedLedger(t,
		newLoan("A", 1001, fakeClock),
		newLoan("B", 1001, fakeClock.Add(time.Hour)),
		newLoan("C", 1001, fakeClock.Add(2*time.Hour)),
	)

	// act
	var seen []library.ISBN
	for loan := range loanLedger.HistoryFor(1001) {
		seen = append(seen, loan.ISBN)
		if len(seen) == 2 {
			break
		}
	}

	// assert
	assert.Equal(t, []library.ISBN{"A", "B"}, seen)
}

func Test_Ledger_OverdueLoans(t *testing.T) {
	// arrange
	today := fakeClock.Add(40 * 24 * time.Hour)
	overdue := newLoan("A", 1001, fakeClock)
	returned := newLoan("B", 1001, fakeClock).MarkReturned(fakeClock.Add(time.Hour))
	notDue := newLoan("C", 2002, today.Add(-24*time.Hour))
	loanLedger := newLoadedLedger(t, overdue, returned, notDue)

	// act
	result := collect(loanLedger.OverdueLoans(today))

	// assert
	require.Len(t, result, 1)
	assert.Equal(t, overdue.ID, result[0].ID)
	assert.Equal(t, 10, result[0].OverdueDays(today))
}

func Test_Ledger_ActiveLoans(t *testing.T) {
	// arrange
	active1 := newLoan("A", 1001, fakeClock)
	returned := newLoan("B", 1001, fakeClock).MarkReturned(fakeClock)
	active2 := newLoan("C", 2002, fakeClock)
	loanLedger := newLoadedLedger(t, active1, returned, active2)

	// act
	active := loanLedger.ActiveLoans()

	// assert
	ids := make([]library.LoanID, 0, len(active))
	for _, loan := range active {
		ids = append(ids, loan.ID)
	}
	assert.Equal(t, []library.LoanID{active1.ID, active2.ID}, ids)
	assert.True(t, slices.ContainsFunc(loanLedger.All(), func(l library.Loan) bool { return l.ID == returned.ID }))
}

func Test_Ledger_ActiveLoanCount(t *testing.T) {
	// arrange
	first := newLoan("A", 1001, fakeClock)
	second := newLoan("A", 2002, fakeClock.Add(time.Hour))
	loanLedger := newLoadedLedger(t, first, second)

	// act & assert
	assert.Equal(t, 2, loanLedger.ActiveLoanCount("A"))

	loanLedger.Apply(loanLedger.StageReturn(first, fakeClock.Add(2*time.Hour)))
	assert.Equal(t, 1, loanLedger.ActiveLoanCount("A"))

	loanLedger.Apply(loanLedger.StageReturn(second, fakeClock.Add(3*time.Hour)))
	assert.Equal(t, 0, loanLedger.ActiveLoanCount("A"))
	assert.False(t, loanLedger.HasActiveLoanForBook("A"))
}
