// Package coordinator provides the Loan Coordinator, the single mutation path for everything
// that touches more than one store.
//
// Per ISBN a book moves through Available -> OnLoan -> Available -> ... and the coordinator
// guarantees that a book is unavailable exactly when one unreturned loan references it.
//
// Every mutating operation runs under one mutex and follows the same steps:
//   - validate the preconditions against the in-memory stores
//   - stage the changes of each store into one library.Changeset
//   - commit the changeset through the backend
//   - apply the changeset to the stores
//
// If the commit fails nothing is applied, so memory never runs ahead of the durable state.
// Customer existence is checked before the lock is taken, and the bibliographic lookup runs
// entirely outside of it. Nothing is retried automatically, retry policy belongs to the caller.
package coordinator
