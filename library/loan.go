package library

import (
	"time"

	"github.com/google/uuid"
)

const (
	// LoanPeriod is the time between issue and due date.
	LoanPeriod = 30 * 24 * time.Hour

	// DailyFineRate is the fine in currency units per overdue day.
	DailyFineRate = 5
)

// LoanID addresses a single loan row in the ledger and the backends.
type LoanID = uuid.UUID

// Loan is one issue/return cycle. Loans are never deleted, the ledger is the audit trail.
type Loan struct {
	ID         LoanID     `json:"id"`
	ISBN       ISBN       `json:"isbn"`
	CustomerID CustomerID `json:"customer_id"`
	IssueDate  Timestamp  `json:"issue_date"`
	DueDate    Timestamp  `json:"due_date"`
	Returned   bool       `json:"returned"`
	ReturnedAt *Timestamp `json:"returned_at,omitempty"`
}

// BuildLoan is a factory method for a new active Loan, due LoanPeriod after issuedAt.
func BuildLoan(id LoanID, isbn ISBN, customerID CustomerID, issuedAt time.Time) Loan {
	issueDate := ToTimestamp(issuedAt)

	return Loan{
		ID:         id,
		ISBN:       isbn,
		CustomerID: customerID,
		IssueDate:  issueDate,
		DueDate:    issueDate.Add(LoanPeriod),
		Returned:   false,
	}
}

// IsActive reports whether the loan is not yet returned.
func (l Loan) IsActive() bool {
	return !l.Returned
}

// MarkReturned returns a copy of the loan, returned at the given time.
func (l Loan) MarkReturned(at time.Time) Loan {
	returnedAt := ToTimestamp(at)
	l.Returned = true
	l.ReturnedAt = &returnedAt

	return l
}

// OverdueDays is the number of whole calendar days the active loan is past its due date.
// Returned loans are never overdue.
func (l Loan) OverdueDays(today time.Time) int {
	if l.Returned {
		return 0
	}

	days := int(CivilDate(today).Sub(CivilDate(l.DueDate)).Hours() / 24)

	return max(0, days)
}

// Fine is the outstanding fine of the loan as of today. It is derived, never stored.
func (l Loan) Fine(today time.Time) int {
	return l.OverdueDays(today) * DailyFineRate
}
