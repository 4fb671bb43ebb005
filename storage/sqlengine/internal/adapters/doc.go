// Package adapters provide database adapter implementations for the SQL backend.
//
// This package implements the adapter pattern to support multiple database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, including transactions, so the engine works the same
// with any supported connection type and driver (PostgreSQL or SQLite behind sql.DB).
package adapters
