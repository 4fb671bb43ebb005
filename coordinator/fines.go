package coordinator

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// LoanFine is the outstanding fine of one overdue loan.
type LoanFine struct {
	Loan        library.Loan
	OverdueDays int
	Fine        int
}

// FineStatement lists the outstanding fines of a customer as of a given day.
type FineStatement struct {
	CustomerID library.CustomerID
	Today      time.Time
	Loans      []LoanFine
	Total      int
}

// CustomerFines computes the outstanding fines of a registered customer. Fines are never stored,
// they are derived from the loan history and today's date.
func (c *Coordinator) CustomerFines(customerID library.CustomerID, today time.Time) (FineStatement, error) {
	if !c.customers.Exists(customerID) {
		return FineStatement{}, errors.Join(library.ErrNotFound, library.ErrCustomerNotFound)
	}

	statement := FineStatement{CustomerID: customerID, Today: library.CivilDate(today)}

	for loan := range c.ledger.HistoryFor(customerID) {
		fine := loan.Fine(today)
		if fine == 0 {
			continue
		}

		statement.Loans = append(statement.Loans, LoanFine{
			Loan:        loan,
			OverdueDays: loan.OverdueDays(today),
			Fine:        fine,
		})
		statement.Total += fine
	}

	return statement, nil
}
