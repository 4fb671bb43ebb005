package sqlengine_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/storage/sqlengine"
)

var issuedAt = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// openSQLite opens a private in-memory database. One connection keeps the database alive.
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newEngine(t *testing.T, db *sql.DB, options ...sqlengine.Option) *sqlengine.Engine {
	t.Helper()

	engine, err := sqlengine.NewFromSQLite(db, options...)
	require.NoError(t, err)
	require.NoError(t, engine.CreateSchema(context.Background()))

	return engine
}

func someBook(isbn library.ISBN) library.Book {
	return library.Book{ISBN: isbn, Title: "Title " + isbn, Author: "Author", Pages: 321, Genre: "General", Available: true}
}

func someCustomer(id library.CustomerID) library.Customer {
	return library.Customer{ID: id, Name: "Customer", Email: "customer@example.com"}
}
