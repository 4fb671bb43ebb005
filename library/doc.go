// Package library provides the core types of the library circulation domain.
//
// It defines the entities shared by all stores and the coordinator:
//   - Book: a catalog entry keyed by its normalized ISBN
//   - Customer: a registered borrower keyed by a caller-assigned CustomerID
//   - Loan: one issue/return cycle of a book to a customer
//
// Besides the entities, the package holds the error taxonomy used across the module,
// the Changeset that is committed atomically to a persistence backend, and the
// dependency-free observability interfaces (Logger, MetricsCollector, TracingCollector, ...).
//
// Typical flow of a mutating operation:
//
//	cs, err := catalogStore.StageAvailability(isbn, false)
//	if err != nil {
//		// handle error
//	}
//
//	cs = cs.Merge(ledgerStore.StageIssue(loan))
//
//	if err := backend.Commit(ctx, cs); err != nil {
//		// nothing was applied in memory, report the failure
//	}
//
//	catalogStore.Apply(cs)
//	ledgerStore.Apply(cs)
package library
