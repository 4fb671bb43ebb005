package sqlengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when a configured table name is empty.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrBuildingQueryFailed is returned when goqu cannot render a statement.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingFailed is returned when a select statement fails.
	ErrQueryingFailed = errors.New("querying rows failed")

	// ErrScanningRowFailed is returned when a result row cannot be scanned.
	ErrScanningRowFailed = errors.New("scanning db row failed")

	// ErrCreatingSchemaFailed is returned when CreateSchema fails.
	ErrCreatingSchemaFailed = errors.New("creating schema failed")

	// ErrBeginTransactionFailed is returned when no transaction could be started.
	ErrBeginTransactionFailed = errors.New("starting transaction failed")

	// ErrExecutingStatementFailed is returned when a statement inside a commit fails.
	ErrExecutingStatementFailed = errors.New("executing statement failed")

	// ErrGettingRowsAffectedFailed is returned when the driver cannot report affected rows.
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")

	// ErrCommitTransactionFailed is returned when the final COMMIT fails.
	ErrCommitTransactionFailed = errors.New("committing transaction failed")
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognizes unique and primary key violations of the supported drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
