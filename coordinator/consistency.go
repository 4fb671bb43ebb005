package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// InconsistencyKind classifies a disagreement between the catalog and the ledger.
type InconsistencyKind string

const (
	// KindAvailableWhileOnLoan is a book marked available with an active loan. Repairable.
	KindAvailableWhileOnLoan InconsistencyKind = "available_while_on_loan"

	// KindUnavailableWithoutLoan is a book marked unavailable without any active loan. Repairable.
	KindUnavailableWithoutLoan InconsistencyKind = "unavailable_without_loan"

	// KindMultipleActiveLoans is a book with more than one active loan. Needs a librarian.
	KindMultipleActiveLoans InconsistencyKind = "multiple_active_loans"

	// KindLoanForUnknownBook is an active loan for a book that is not cataloged. Needs a librarian.
	KindLoanForUnknownBook InconsistencyKind = "loan_for_unknown_book"
)

// Inconsistency is one finding of CheckConsistency.
type Inconsistency struct {
	ISBN        library.ISBN
	Kind        InconsistencyKind
	ActiveLoans int
}

// Repairable reports whether RepairConsistency can fix the finding from the ledger alone.
func (i Inconsistency) Repairable() bool {
	return i.Kind == KindAvailableWhileOnLoan || i.Kind == KindUnavailableWithoutLoan
}

// CheckConsistency verifies that every book is unavailable exactly when one active loan references it.
// Data written by older, non-transactional versions may violate this.
// The findings are returned together with library.ErrInconsistentState.
func (c *Coordinator) CheckConsistency() ([]Inconsistency, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	findings := c.inspect()
	if len(findings) > 0 {
		return findings, errors.Join(
			library.ErrInconsistentState,
			fmt.Errorf("%d inconsistencies found", len(findings)),
		)
	}

	return nil, nil
}

// RepairConsistency sets the availability of every book to what the ledger says, in one commit.
// It returns the repaired findings. Findings that need a librarian are only logged.
func (c *Coordinator) RepairConsistency(ctx context.Context) (repaired []Inconsistency, err error) {
	ctx, observation := c.startOperation(ctx, OperationRepairConsistency, "", 0)
	defer func() { observation.finish(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	var changes library.Changeset

	for _, finding := range c.inspect() {
		if !finding.Repairable() {
			c.logWarn(ctx, LogMsgUnrepairable, LogAttrISBN, finding.ISBN, LogAttrInconsistency, string(finding.Kind))
			continue
		}

		availability, stageErr := c.catalog.StageAvailability(finding.ISBN, finding.ActiveLoans == 0)
		if stageErr != nil {
			return nil, stageErr
		}

		changes = changes.Merge(availability)
		repaired = append(repaired, finding)
	}

	if err = c.commit(ctx, changes); err != nil {
		return nil, err
	}

	return repaired, nil
}

// inspect must be called with the mutex held.
func (c *Coordinator) inspect() []Inconsistency {
	var findings []Inconsistency

	for _, book := range c.catalog.All() {
		active := c.ledger.ActiveLoanCount(book.ISBN)

		switch {
		case book.Available && active > 0:
			findings = append(findings, Inconsistency{ISBN: book.ISBN, Kind: KindAvailableWhileOnLoan, ActiveLoans: active})
		case !book.Available && active == 0:
			findings = append(findings, Inconsistency{ISBN: book.ISBN, Kind: KindUnavailableWithoutLoan})
		}

		if active > 1 {
			findings = append(findings, Inconsistency{ISBN: book.ISBN, Kind: KindMultipleActiveLoans, ActiveLoans: active})
		}
	}

	reported := make(map[library.ISBN]bool)
	for _, loan := range c.ledger.ActiveLoans() {
		if reported[loan.ISBN] || c.catalog.Contains(loan.ISBN) {
			continue
		}

		reported[loan.ISBN] = true
		findings = append(findings, Inconsistency{
			ISBN:        loan.ISBN,
			Kind:        KindLoanForUnknownBook,
			ActiveLoans: c.ledger.ActiveLoanCount(loan.ISBN),
		})
	}

	return findings
}
