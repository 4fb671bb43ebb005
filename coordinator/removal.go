package coordinator

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// DeleteBook removes a book from the catalog unless it is on loan.
// Its loans stay in the ledger as history.
func (c *Coordinator) DeleteBook(ctx context.Context, rawISBN string) (err error) {
	ctx, observation := c.startOperation(ctx, OperationDeleteBook, rawISBN, 0)
	defer func() { observation.finish(err) }()

	isbn, err := normalize(rawISBN)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changes, err := c.catalog.StageDelete(isbn)
	if err != nil {
		return err
	}

	if c.ledger.HasActiveLoanForBook(isbn) {
		return errors.Join(library.ErrConflict, library.ErrBookOnLoan)
	}

	return c.commit(ctx, changes)
}

// DeleteCustomer removes a customer unless they still borrow a book.
func (c *Coordinator) DeleteCustomer(ctx context.Context, customerID library.CustomerID) (err error) {
	ctx, observation := c.startOperation(ctx, OperationDeleteCustomer, "", customerID)
	defer func() { observation.finish(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	changes, err := c.customers.StageDelete(customerID)
	if err != nil {
		return err
	}

	if c.ledger.HasActiveLoanForCustomer(customerID) {
		return errors.Join(library.ErrConflict, library.ErrCustomerHasLoans)
	}

	return c.commit(ctx, changes)
}
