package coordinator

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// IssueBook lends an available book to a registered customer.
//
// The new loan is due library.LoanPeriod after now. The loan and the availability change
// are committed as one changeset.
//
// Errors:
//   - library.ErrForbidden if the customer is not registered
//   - library.ErrNotFound if the book is not cataloged
//   - library.ErrConflict if the book is on loan
//   - library.ErrCommitFailed if the backend could not persist the change
func (c *Coordinator) IssueBook(ctx context.Context, rawISBN string, customerID library.CustomerID) (loan library.Loan, err error) {
	ctx, observation := c.startOperation(ctx, OperationIssueBook, rawISBN, customerID)
	defer func() { observation.finish(err) }()

	isbn, err := normalize(rawISBN)
	if err != nil {
		return library.Loan{}, err
	}

	if !c.customers.Exists(customerID) {
		return library.Loan{}, errors.Join(library.ErrForbidden, library.ErrCustomerNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// customer deletion is serialized with issuing, this closes the gap since the check above
	if !c.customers.Exists(customerID) {
		return library.Loan{}, errors.Join(library.ErrForbidden, library.ErrCustomerNotFound)
	}

	book, err := c.catalog.Get(isbn)
	if err != nil {
		return library.Loan{}, err
	}

	if !book.Available {
		return library.Loan{}, errors.Join(library.ErrConflict, library.ErrBookNotAvailable)
	}

	loanID, err := c.newLoanID()
	if err != nil {
		return library.Loan{}, err
	}

	loan = library.BuildLoan(loanID, isbn, customerID, c.clock())

	changes, err := c.catalog.StageAvailability(isbn, false)
	if err != nil {
		return library.Loan{}, err
	}

	if err = c.commit(ctx, changes.Merge(c.ledger.StageIssue(loan))); err != nil {
		return library.Loan{}, err
	}

	return loan, nil
}

// ReturnBook closes the customer's active loan for the book and makes the book available again.
// With more than one matching active loan, the most recently issued one is closed.
//
// Errors:
//   - library.ErrNotFound if the book is not cataloged or the customer has no active loan for it
//   - library.ErrConflict if the book is marked available although the loan is active, see RepairConsistency
//   - library.ErrCommitFailed if the backend could not persist the change
func (c *Coordinator) ReturnBook(ctx context.Context, rawISBN string, customerID library.CustomerID) (loan library.Loan, err error) {
	ctx, observation := c.startOperation(ctx, OperationReturnBook, rawISBN, customerID)
	defer func() { observation.finish(err) }()

	isbn, err := normalize(rawISBN)
	if err != nil {
		return library.Loan{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.returnBook(ctx, isbn, func() (library.Loan, error) {
		return c.ledger.FindActiveLoanFor(isbn, customerID)
	})
}

// ReturnBookByISBN closes the most recent active loan for the book, whoever borrowed it.
// It has the same errors as ReturnBook.
func (c *Coordinator) ReturnBookByISBN(ctx context.Context, rawISBN string) (loan library.Loan, err error) {
	ctx, observation := c.startOperation(ctx, OperationReturnBookByISBN, rawISBN, 0)
	defer func() { observation.finish(err) }()

	isbn, err := normalize(rawISBN)
	if err != nil {
		return library.Loan{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.returnBook(ctx, isbn, func() (library.Loan, error) {
		return c.ledger.FindActiveLoan(isbn)
	})
}

// returnBook must be called with the mutex held.
func (c *Coordinator) returnBook(
	ctx context.Context,
	isbn library.ISBN,
	findLoan func() (library.Loan, error),
) (library.Loan, error) {
	book, err := c.catalog.Get(isbn)
	if err != nil {
		return library.Loan{}, err
	}

	loan, err := findLoan()
	if err != nil {
		if book.Available {
			return library.Loan{}, errors.Join(err, library.ErrBookAlreadyAvailable)
		}

		return library.Loan{}, err
	}

	// an active loan for an available book only exists in inconsistent legacy data
	if book.Available {
		return library.Loan{}, errors.Join(library.ErrConflict, library.ErrBookAlreadyAvailable)
	}

	changes := c.ledger.StageReturn(loan, c.clock())

	// with legacy duplicates another loan may still hold the book
	if c.ledger.ActiveLoanCount(isbn) <= 1 {
		availability, stageErr := c.catalog.StageAvailability(isbn, true)
		if stageErr != nil {
			return library.Loan{}, stageErr
		}

		changes = changes.Merge(availability)
	}

	if err = c.commit(ctx, changes); err != nil {
		return library.Loan{}, err
	}

	return changes.UpdatedLoans[0], nil
}
