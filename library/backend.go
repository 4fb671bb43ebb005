package library

import "context"

// BookLoader loads the book collection at startup.
type BookLoader interface {
	LoadBooks(ctx context.Context) ([]Book, error)
}

// CustomerLoader loads the customer collection at startup.
type CustomerLoader interface {
	LoadCustomers(ctx context.Context) ([]Customer, error)
}

// LoanLoader loads the loan log at startup, in append order.
type LoanLoader interface {
	LoadLoans(ctx context.Context) ([]Loan, error)
}

// Committer persists a Changeset atomically: either all changes are durable, or none.
type Committer interface {
	Commit(ctx context.Context, changes Changeset) error
}

// Backend is the persistence boundary: three independently loadable collections and one atomic commit.
type Backend interface {
	BookLoader
	CustomerLoader
	LoanLoader
	Committer
}
