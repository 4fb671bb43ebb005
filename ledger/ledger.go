package ledger

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	logMsgLoaded          = "loan ledger loaded"
	logMsgUnknownLoan     = "update for unknown loan ignored"
	logMsgDuplicateActive = "more than one active loan for isbn"
	logAttrLoanCount      = "loan_count"
	logAttrActiveCount    = "active_count"
	logAttrLoanID         = "loan_id"
	logAttrISBN           = "isbn"
)

// Option defines a functional option for configuring the Ledger.
type Option func(*Ledger) error

// WithLogger sets the logger for the Ledger.
func WithLogger(logger library.Logger) Option {
	return func(l *Ledger) error {
		l.logger = logger
		return nil
	}
}

// Ledger is the in-memory loan log with its derived indices.
type Ledger struct {
	loader library.LoanLoader
	logger library.Logger

	mu               sync.RWMutex
	loans            []library.Loan
	positions        map[library.LoanID]int
	activeByISBN     map[library.ISBN]int
	activeCount      map[library.ISBN]int
	byCustomer       map[library.CustomerID][]int
	activeByCustomer map[library.CustomerID]int
}

// NewLedger creates an empty Ledger. Call Load to fill it from the backend.
func NewLedger(loader library.LoanLoader, options ...Option) (*Ledger, error) {
	if loader == nil {
		return nil, library.ErrNilBackend
	}

	ledger := &Ledger{loader: loader}
	ledger.reset(0)

	for _, option := range options {
		if err := option(ledger); err != nil {
			return nil, err
		}
	}

	return ledger, nil
}

// Load replaces the in-memory log with the loans of the backend, in their stored order.
func (l *Ledger) Load(ctx context.Context) error {
	loans, err := l.loader.LoadLoans(ctx)
	if err != nil {
		return errors.Join(library.ErrLoadFailed, err)
	}

	l.mu.Lock()
	l.reset(len(loans))
	for _, loan := range loans {
		l.append(loan)
	}
	activeBooks := len(l.activeByISBN)
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Info(logMsgLoaded, logAttrLoanCount, len(loans), logAttrActiveCount, activeBooks)
	}

	return nil
}

// StageIssue builds the Changeset that appends a new loan.
// Appending always succeeds, the coordinator has validated the preconditions.
func (l *Ledger) StageIssue(loan library.Loan) library.Changeset {
	return library.Changeset{AppendedLoans: []library.Loan{loan}}
}

// StageReturn builds the Changeset that marks the loan as returned at the given time.
func (l *Ledger) StageReturn(loan library.Loan, at time.Time) library.Changeset {
	return library.Changeset{UpdatedLoans: []library.Loan{loan.MarkReturned(at)}}
}

// Apply applies the loan part of an already committed Changeset to memory.
func (l *Ledger) Apply(changes library.Changeset) {
	if !changes.TouchesLoans() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, loan := range changes.AppendedLoans {
		l.append(loan)
	}

	for _, loan := range changes.UpdatedLoans {
		l.update(loan)
	}
}

// FindActiveLoan returns the most recently appended active loan for the isbn.
func (l *Ledger) FindActiveLoan(isbn library.ISBN) (library.Loan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	position, ok := l.activeByISBN[isbn]
	if !ok {
		return library.Loan{}, errors.Join(library.ErrNotFound, library.ErrNoActiveLoan)
	}

	return l.loans[position], nil
}

// FindActiveLoanFor returns the most recently appended active loan for the isbn and customer.
//
// The isbn index holds only the newest active loan. If it belongs to someone else, which can only
// happen with legacy data that has more than one active loan per book, the customer's own loans
// are scanned from newest to oldest.
func (l *Ledger) FindActiveLoanFor(isbn library.ISBN, customerID library.CustomerID) (library.Loan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if position, ok := l.activeByISBN[isbn]; ok && l.loans[position].CustomerID == customerID {
		return l.loans[position], nil
	}

	positions := l.byCustomer[customerID]
	for i := len(positions) - 1; i >= 0; i-- {
		loan := l.loans[positions[i]]
		if loan.ISBN == isbn && loan.IsActive() {
			return loan, nil
		}
	}

	return library.Loan{}, errors.Join(library.ErrNotFound, library.ErrNoActiveLoan)
}

// HasActiveLoanForBook reports whether the book is currently on loan.
func (l *Ledger) HasActiveLoanForBook(isbn library.ISBN) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.activeByISBN[isbn]

	return ok
}

// ActiveLoanCount returns the number of unreturned loans for the isbn.
// Anything above one means the stored data violates the single-active-loan rule.
func (l *Ledger) ActiveLoanCount(isbn library.ISBN) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.activeCount[isbn]
}

// HasActiveLoanForCustomer reports whether the customer currently borrows any book.
func (l *Ledger) HasActiveLoanForCustomer(id library.CustomerID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.activeByCustomer[id] > 0
}

// ActiveLoans returns all unreturned loans in append order.
func (l *Ledger) ActiveLoans() []library.Loan {
	l.mu.RLock()
	defer l.mu.RUnlock()

	active := make([]library.Loan, 0, len(l.activeByISBN))
	for _, loan := range l.loans {
		if loan.IsActive() {
			active = append(active, loan)
		}
	}

	return active
}

// HistoryFor yields all loans of the customer, returned and active, in append order.
//
// The sequence is lazy and can be ranged over more than once. Each iteration sees the loans
// the customer had when it started, with their state at the time they are yielded.
func (l *Ledger) HistoryFor(customerID library.CustomerID) iter.Seq[library.Loan] {
	return func(yield func(library.Loan) bool) {
		l.mu.RLock()
		positions := slices.Clone(l.byCustomer[customerID])
		l.mu.RUnlock()

		for _, position := range positions {
			if !yield(l.loanAt(position)) {
				return
			}
		}
	}
}

// OverdueLoans yields the active loans that are past their due date as of today, in append order.
func (l *Ledger) OverdueLoans(today time.Time) iter.Seq[library.Loan] {
	return func(yield func(library.Loan) bool) {
		for position := range l.Len() {
			loan := l.loanAt(position)
			if loan.OverdueDays(today) == 0 {
				continue
			}

			if !yield(loan) {
				return
			}
		}
	}
}

// All returns a snapshot of the complete log in append order.
func (l *Ledger) All() []library.Loan {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.loans)
}

// Len returns the number of loans in the log.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.loans)
}

func (l *Ledger) loanAt(position int) library.Loan {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.loans[position]
}

func (l *Ledger) reset(capacity int) {
	l.loans = make([]library.Loan, 0, capacity)
	l.positions = make(map[library.LoanID]int, capacity)
	l.activeByISBN = make(map[library.ISBN]int)
	l.activeCount = make(map[library.ISBN]int)
	l.byCustomer = make(map[library.CustomerID][]int)
	l.activeByCustomer = make(map[library.CustomerID]int)
}

// append must be called with the write lock held.
func (l *Ledger) append(loan library.Loan) {
	position := len(l.loans)
	l.loans = append(l.loans, loan)
	l.positions[loan.ID] = position
	l.byCustomer[loan.CustomerID] = append(l.byCustomer[loan.CustomerID], position)

	if !loan.IsActive() {
		return
	}

	if _, exists := l.activeByISBN[loan.ISBN]; exists && l.logger != nil {
		l.logger.Warn(logMsgDuplicateActive, logAttrISBN, loan.ISBN)
	}

	l.activeByISBN[loan.ISBN] = position
	l.activeCount[loan.ISBN]++
	l.activeByCustomer[loan.CustomerID]++
}

// update must be called with the write lock held.
func (l *Ledger) update(loan library.Loan) {
	position, ok := l.positions[loan.ID]
	if !ok {
		if l.logger != nil {
			l.logger.Warn(logMsgUnknownLoan, logAttrLoanID, loan.ID.String())
		}

		return
	}

	previous := l.loans[position]
	l.loans[position] = loan

	if !previous.IsActive() || loan.IsActive() {
		return
	}

	l.activeByCustomer[loan.CustomerID]--
	if l.activeByCustomer[loan.CustomerID] <= 0 {
		delete(l.activeByCustomer, loan.CustomerID)
	}

	l.activeCount[loan.ISBN]--
	if l.activeCount[loan.ISBN] <= 0 {
		delete(l.activeCount, loan.ISBN)
	}

	if l.activeByISBN[loan.ISBN] == position {
		l.reindexISBN(loan.ISBN, position)
	}
}

// reindexISBN points the isbn index to the newest remaining active loan before the given position.
func (l *Ledger) reindexISBN(isbn library.ISBN, before int) {
	delete(l.activeByISBN, isbn)

	for i := before - 1; i >= 0; i-- {
		if l.loans[i].ISBN == isbn && l.loans[i].IsActive() {
			l.activeByISBN[isbn] = i
			return
		}
	}
}
