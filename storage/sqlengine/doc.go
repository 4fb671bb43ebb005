// Package sqlengine provides a relational library.Backend for PostgreSQL and SQLite.
//
// Statements are built with goqu for the matching dialect and executed through one of the
// adapters for pgxpool.Pool, sql.DB, or sqlx.DB. A Commit runs inside one transaction:
//
//   - updated and deleted rows must exist, otherwise the commit fails
//   - a loan can only be returned while it is still active in the database
//   - a partial unique index allows at most one active loan per book
//   - books and customers are only deleted while no active loan references them
//
// A violated guard rolls the transaction back and returns library.ErrConflict joined with
// library.ErrConcurrencyConflict, which means another process changed the data since it was loaded.
//
// Timestamps are stored as unix microseconds, the precision of library.Timestamp, so both dialects
// share one schema layout.
package sqlengine
