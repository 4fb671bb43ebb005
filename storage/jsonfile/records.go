package jsonfile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const dateOnly = "2006-01-02"

var (
	// ErrMissingCustomerID is returned for a loan record without any customer id key.
	ErrMissingCustomerID = errors.New("loan record has no customer id")

	// ErrInvalidDate is returned for a loan date that is neither RFC 3339 nor YYYY-MM-DD.
	ErrInvalidDate = errors.New("loan record has an invalid date")
)

// legacyLoanNamespace seeds the ids of loans that were written without one.
var legacyLoanNamespace = uuid.MustParse("6f1c2d7e-3a4b-5c6d-8e9f-0a1b2c3d4e5f")

// loanRecord is the on-disk layout of a loan. It reads both the current and the legacy layout
// and always writes the current one.
type loanRecord struct {
	ID               string `json:"id,omitempty"`
	ISBN             string `json:"isbn"`
	CustomerID       *int64 `json:"customer_id,omitempty"`
	LegacyCustomerID *int64 `json:"coustomer_id,omitempty"`
	IssueDate        string `json:"issue_date"`
	DueDate          string `json:"due_date"`
	Returned         bool   `json:"returned"`
	ReturnedAt       string `json:"returned_at,omitempty"`
}

func toLoanRecord(loan library.Loan) loanRecord {
	customerID := loan.CustomerID
	record := loanRecord{
		ID:         loan.ID.String(),
		ISBN:       loan.ISBN,
		CustomerID: &customerID,
		IssueDate:  loan.IssueDate.UTC().Format(time.RFC3339Nano),
		DueDate:    loan.DueDate.UTC().Format(time.RFC3339Nano),
		Returned:   loan.Returned,
	}

	if loan.ReturnedAt != nil {
		record.ReturnedAt = loan.ReturnedAt.UTC().Format(time.RFC3339Nano)
	}

	return record
}

// toLoan converts a record at the given position of the loan file.
func (r loanRecord) toLoan(position int) (library.Loan, error) {
	var customerID library.CustomerID

	switch {
	case r.CustomerID != nil:
		customerID = *r.CustomerID
	case r.LegacyCustomerID != nil:
		customerID = *r.LegacyCustomerID
	default:
		return library.Loan{}, errors.Join(ErrMissingCustomerID, fmt.Errorf("position %d", position))
	}

	issueDate, err := parseDate(r.IssueDate)
	if err != nil {
		return library.Loan{}, fmt.Errorf("position %d issue_date: %w", position, err)
	}

	dueDate, err := parseDate(r.DueDate)
	if err != nil {
		return library.Loan{}, fmt.Errorf("position %d due_date: %w", position, err)
	}

	loan := library.Loan{
		ISBN:       r.ISBN,
		CustomerID: customerID,
		IssueDate:  issueDate,
		DueDate:    dueDate,
		Returned:   r.Returned,
	}

	if r.ReturnedAt != "" {
		returnedAt, parseErr := parseDate(r.ReturnedAt)
		if parseErr != nil {
			return library.Loan{}, fmt.Errorf("position %d returned_at: %w", position, parseErr)
		}

		loan.ReturnedAt = &returnedAt
	}

	if r.ID == "" {
		loan.ID = legacyLoanID(position, r)
		return loan, nil
	}

	loan.ID, err = uuid.Parse(r.ID)
	if err != nil {
		return library.Loan{}, fmt.Errorf("position %d id: %w", position, err)
	}

	return loan, nil
}

func legacyLoanID(position int, r loanRecord) library.LoanID {
	var customerID int64
	if r.LegacyCustomerID != nil {
		customerID = *r.LegacyCustomerID
	} else if r.CustomerID != nil {
		customerID = *r.CustomerID
	}

	name := fmt.Sprintf("%d|%s|%d|%s", position, r.ISBN, customerID, r.IssueDate)

	return uuid.NewSHA1(legacyLoanNamespace, []byte(name))
}

func parseDate(value string) (library.Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return library.ToTimestamp(t), nil
	}

	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return library.Timestamp{}, errors.Join(ErrInvalidDate, fmt.Errorf("%q", value))
	}

	return library.ToTimestamp(t), nil
}
