package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/storage/sqlengine/internal/adapters"
)

// Dialect names as registered with goqu.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

const (
	defaultBooksTable     = "books"
	defaultCustomersTable = "customers"
	defaultLoansTable     = "loans"

	colISBN         = "isbn"
	colTitle        = "title"
	colAuthor       = "author"
	colPages        = "pages"
	colGenre        = "genre"
	colAvailable    = "available"
	colCustomerID   = "customer_id"
	colName         = "name"
	colEmail        = "email"
	colPhone        = "phone"
	colSeq          = "seq"
	colLoanID       = "loan_id"
	colIssuedAtUS   = "issued_at_us"
	colDueAtUS      = "due_at_us"
	colReturned     = "returned"
	colReturnedAtUS = "returned_at_us"
)

// Engine is a library.Backend on top of a relational database.
type Engine struct {
	db               adapters.DBAdapter
	dialect          string
	booksTable       string
	customersTable   string
	loansTable       string
	logger           library.Logger
	contextualLogger library.ContextualLogger
	metricsCollector library.MetricsCollector
	tracingCollector library.TracingCollector
}

// NewFromPGXPool creates a new PostgreSQL Engine using a pgx Pool with optional configuration.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), DialectPostgres, options)
}

// NewFromSQLDB creates a new PostgreSQL Engine using a sql.DB (e.g. opened with lib/pq) with optional configuration.
func NewFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), DialectPostgres, options)
}

// NewFromSQLX creates a new PostgreSQL Engine using a sqlx.DB with optional configuration.
func NewFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), DialectPostgres, options)
}

// NewFromSQLite creates a new SQLite Engine using a sql.DB opened with the "sqlite" driver.
// For in-memory databases the pool must be limited to one connection, see config.OpenSQLite.
func NewFromSQLite(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), DialectSQLite, options)
}

func newEngine(db adapters.DBAdapter, dialect string, options []Option) (*Engine, error) {
	e := &Engine{
		db:             db,
		dialect:        dialect,
		booksTable:     defaultBooksTable,
		customersTable: defaultCustomersTable,
		loansTable:     defaultLoansTable,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// CreateSchema creates the tables and indexes if they do not exist yet.
func (e *Engine) CreateSchema(ctx context.Context) error {
	for _, statement := range e.schemaStatements() {
		start := time.Now()
		_, err := e.db.Exec(ctx, statement)
		e.logQueryWithDuration(ctx, statement, actionSchema, time.Since(start))

		if err != nil {
			e.logError(ctx, logMsgSchemaFailed, err, logAttrQuery, statement)
			return errors.Join(ErrCreatingSchemaFailed, err)
		}
	}

	return nil
}

func (e *Engine) schemaStatements() []string {
	seqColumn, loanIDColumn, activeCondition := "seq BIGSERIAL UNIQUE", "loan_id TEXT PRIMARY KEY", "NOT returned"
	if e.dialect == DialectSQLite {
		seqColumn, loanIDColumn, activeCondition = "seq INTEGER PRIMARY KEY AUTOINCREMENT", "loan_id TEXT NOT NULL UNIQUE", "returned = 0"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	isbn TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	pages INTEGER NOT NULL,
	genre TEXT NOT NULL,
	available BOOLEAN NOT NULL
)`, e.booksTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	customer_id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL
)`, e.customersTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	%s,
	isbn TEXT NOT NULL,
	customer_id BIGINT NOT NULL,
	issued_at_us BIGINT NOT NULL,
	due_at_us BIGINT NOT NULL,
	returned BOOLEAN NOT NULL,
	returned_at_us BIGINT
)`, e.loansTable, seqColumn, loanIDColumn),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_isbn ON %s (isbn) WHERE %s`,
			e.loansTable, e.loansTable, activeCondition),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_by_customer ON %s (customer_id)`, e.loansTable, e.loansTable),
	}
}

// LoadBooks implements library.BookLoader. Books are returned ordered by ISBN.
func (e *Engine) LoadBooks(ctx context.Context) ([]library.Book, error) {
	query, _, err := e.builder().
		From(e.booksTable).
		Select(colISBN, colTitle, colAuthor, colPages, colGenre, colAvailable).
		Order(goqu.C(colISBN).Asc()).
		ToSQL()

	books := make([]library.Book, 0)

	err = e.load(ctx, collectionBooks, query, err, func(rows adapters.DBRows) error {
		var book library.Book
		if scanErr := rows.Scan(&book.ISBN, &book.Title, &book.Author, &book.Pages, &book.Genre, &book.Available); scanErr != nil {
			return scanErr
		}

		books = append(books, book)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return books, nil
}

// LoadCustomers implements library.CustomerLoader. Customers are returned ordered by id.
func (e *Engine) LoadCustomers(ctx context.Context) ([]library.Customer, error) {
	query, _, err := e.builder().
		From(e.customersTable).
		Select(colCustomerID, colName, colEmail, colPhone).
		Order(goqu.C(colCustomerID).Asc()).
		ToSQL()

	customers := make([]library.Customer, 0)

	err = e.load(ctx, collectionCustomers, query, err, func(rows adapters.DBRows) error {
		var customer library.Customer
		if scanErr := rows.Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Phone); scanErr != nil {
			return scanErr
		}

		customers = append(customers, customer)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return customers, nil
}

// LoadLoans implements library.LoanLoader. Loans are returned in the order they were appended.
func (e *Engine) LoadLoans(ctx context.Context) ([]library.Loan, error) {
	query, _, err := e.builder().
		From(e.loansTable).
		Select(colLoanID, colISBN, colCustomerID, colIssuedAtUS, colDueAtUS, colReturned, colReturnedAtUS).
		Order(goqu.C(colSeq).Asc()).
		ToSQL()

	loans := make([]library.Loan, 0)

	err = e.load(ctx, collectionLoans, query, err, func(rows adapters.DBRows) error {
		var (
			row        loanRow
			returnedAt sql.NullInt64
		)

		if scanErr := rows.Scan(
			&row.id, &row.isbn, &row.customerID, &row.issuedAtUS, &row.dueAtUS, &row.returned, &returnedAt,
		); scanErr != nil {
			return scanErr
		}

		if returnedAt.Valid {
			row.returnedAtUS = &returnedAt.Int64
		}

		loan, convErr := row.toLoan()
		if convErr != nil {
			return convErr
		}

		loans = append(loans, loan)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return loans, nil
}

// load runs a select statement and hands every row to scan, with the engine's instrumentation around it.
func (e *Engine) load(
	ctx context.Context,
	collection string,
	query string,
	buildErr error,
	scan func(rows adapters.DBRows) error,
) error {
	ctx, tracing := e.startLoadTracing(ctx, collection)
	metrics := e.startLoadMetrics(ctx, collection)
	start := time.Now()

	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrCollection, collection)
		tracing.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return errors.Join(library.ErrLoadFailed, ErrBuildingQueryFailed, buildErr)
	}

	rows, err := e.db.Query(ctx, query)
	e.logQueryWithDuration(ctx, query, actionLoad, time.Since(start))

	if err != nil {
		duration := time.Since(start)
		e.logError(ctx, logMsgQueryFailed, err, logAttrQuery, query)
		tracing.finishError(errorTypeQuery, duration)
		metrics.recordError(errorTypeQuery, duration)

		return errors.Join(library.ErrLoadFailed, ErrQueryingFailed, err)
	}
	defer e.closeRows(ctx, rows)

	count := 0

	for rows.Next() {
		if err = scan(rows); err != nil {
			duration := time.Since(start)
			e.logError(ctx, logMsgScanRowFailed, err, logAttrCollection, collection)
			tracing.finishError(errorTypeScan, duration)
			metrics.recordError(errorTypeScan, duration)

			return errors.Join(library.ErrLoadFailed, ErrScanningRowFailed, err)
		}

		count++
	}

	duration := time.Since(start)

	if err = rows.Err(); err != nil {
		e.logError(ctx, logMsgQueryFailed, err, logAttrQuery, query)
		tracing.finishError(errorTypeQuery, duration)
		metrics.recordError(errorTypeQuery, duration)

		return errors.Join(library.ErrLoadFailed, ErrQueryingFailed, err)
	}

	tracing.finishSuccess(count, duration)
	metrics.recordSuccess(count, duration)
	e.logOperation(ctx, logMsgLoaded,
		logAttrCollection, collection,
		logAttrRecordCount, count,
		logAttrDurationMS, e.toMilliseconds(duration))

	return nil
}

func (e *Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (e *Engine) builder() goqu.DialectWrapper {
	return goqu.Dialect(e.dialect)
}

// loanRow is the relational layout of a loan.
type loanRow struct {
	id           string
	isbn         string
	customerID   int64
	issuedAtUS   int64
	dueAtUS      int64
	returned     bool
	returnedAtUS *int64
}

func (r loanRow) toLoan() (library.Loan, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return library.Loan{}, fmt.Errorf("loan id %q: %w", r.id, err)
	}

	loan := library.Loan{
		ID:         id,
		ISBN:       r.isbn,
		CustomerID: r.customerID,
		IssueDate:  library.ToTimestamp(time.UnixMicro(r.issuedAtUS)),
		DueDate:    library.ToTimestamp(time.UnixMicro(r.dueAtUS)),
		Returned:   r.returned,
	}

	if r.returnedAtUS != nil {
		returnedAt := library.ToTimestamp(time.UnixMicro(*r.returnedAtUS))
		loan.ReturnedAt = &returnedAt
	}

	return loan, nil
}
