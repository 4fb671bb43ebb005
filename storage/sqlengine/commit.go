package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/storage/sqlengine/internal/adapters"
)

// statement is one SQL statement of a commit.
// A guarded statement must affect exactly one row, otherwise the commit is a concurrency conflict.
type statement struct {
	sql     string
	guarded bool
	subject string
}

// Commit implements library.Committer. The whole changeset runs in one transaction.
func (e *Engine) Commit(ctx context.Context, changes library.Changeset) error {
	if changes.IsEmpty() {
		return nil
	}

	ctx, tracing := e.startCommitTracing(ctx, changes.Size())
	metrics := e.startCommitMetrics(ctx)

	statements, buildErr := e.buildCommitStatements(changes)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrChangeCount, changes.Size())
		tracing.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return errors.Join(ErrBuildingQueryFailed, buildErr)
	}

	start := time.Now()
	rowsAffected, errorType, err := e.runInTransaction(ctx, statements)
	duration := time.Since(start)

	switch {
	case err == nil:
		tracing.finishSuccess(int(rowsAffected), duration)
		metrics.recordSuccess(changes.Size(), duration)
		e.logOperation(ctx, logMsgCommitted,
			logAttrChangeCount, changes.Size(),
			logAttrRowsAffected, rowsAffected,
			logAttrDurationMS, e.toMilliseconds(duration))

	case errors.Is(err, library.ErrConcurrencyConflict):
		tracing.finishError(errorTypeConcurrencyConflict, duration)
		metrics.recordConcurrencyConflict(duration)
		e.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrChangeCount, changes.Size(),
			logAttrError, err.Error())

	default:
		tracing.finishError(errorType, duration)
		metrics.recordError(errorType, duration)
	}

	return err
}

// runInTransaction executes the statements in one transaction and rolls back on the first failure.
// It returns the total number of affected rows and, on failure, the error type for instrumentation.
func (e *Engine) runInTransaction(ctx context.Context, statements []statement) (int64, string, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		e.logError(ctx, logMsgBeginFailed, err)
		return 0, errorTypeBegin, errors.Join(ErrBeginTransactionFailed, err)
	}

	var total int64

	for _, stmt := range statements {
		start := time.Now()
		result, execErr := tx.Exec(ctx, stmt.sql)
		e.logQueryWithDuration(ctx, stmt.sql, actionCommit, time.Since(start))

		if execErr != nil {
			e.rollback(ctx, tx)

			if isUniqueViolation(execErr) {
				return 0, errorTypeConcurrencyConflict, errors.Join(
					library.ErrConflict, library.ErrConcurrencyConflict, fmt.Errorf("%s: %w", stmt.subject, execErr))
			}

			e.logError(ctx, logMsgExecFailed, execErr, logAttrQuery, stmt.sql)

			return 0, errorTypeExec, errors.Join(ErrExecutingStatementFailed, execErr)
		}

		rowsAffected, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			e.rollback(ctx, tx)
			e.logError(ctx, logMsgRowsAffectedFailed, rowsErr)

			return 0, errorTypeRowsAffected, errors.Join(ErrGettingRowsAffectedFailed, rowsErr)
		}

		if stmt.guarded && rowsAffected != 1 {
			e.rollback(ctx, tx)

			return 0, errorTypeConcurrencyConflict, errors.Join(
				library.ErrConflict,
				library.ErrConcurrencyConflict,
				fmt.Errorf("%s: %d rows affected", stmt.subject, rowsAffected),
			)
		}

		total += rowsAffected
	}

	if err = tx.Commit(ctx); err != nil {
		e.logError(ctx, logMsgCommitFailed, err)
		return 0, errorTypeCommit, errors.Join(ErrCommitTransactionFailed, err)
	}

	return total, "", nil
}

func (e *Engine) rollback(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		e.logWarn(ctx, logMsgRollbackFailed, logAttrError, err.Error())
	}
}

// buildCommitStatements renders the changeset in an order that keeps the guards meaningful:
// rows are inserted and updated before anything is deleted.
func (e *Engine) buildCommitStatements(changes library.Changeset) ([]statement, error) {
	builder := e.builder()
	statements := make([]statement, 0, changes.Size())

	add := func(ds interface {
		ToSQL() (string, []any, error)
	}, guarded bool, subject string) error {
		sqlQuery, _, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("%s: %w", subject, err)
		}

		statements = append(statements, statement{sql: sqlQuery, guarded: guarded, subject: subject})

		return nil
	}

	for _, book := range changes.InsertedBooks {
		ds := builder.Insert(e.booksTable).Rows(bookRecord(book))
		if err := add(ds, false, "insert book "+book.ISBN); err != nil {
			return nil, err
		}
	}

	for _, book := range changes.UpdatedBooks {
		ds := builder.Update(e.booksTable).
			Set(bookRecord(book)).
			Where(goqu.C(colISBN).Eq(book.ISBN))
		if err := add(ds, true, "update book "+book.ISBN); err != nil {
			return nil, err
		}
	}

	for _, customer := range changes.InsertedCustomers {
		ds := builder.Insert(e.customersTable).Rows(goqu.Record{
			colCustomerID: customer.ID,
			colName:       customer.Name,
			colEmail:      customer.Email,
			colPhone:      customer.Phone,
		})
		if err := add(ds, false, fmt.Sprintf("insert customer %d", customer.ID)); err != nil {
			return nil, err
		}
	}

	for _, loan := range changes.AppendedLoans {
		ds := builder.Insert(e.loansTable).Rows(loanRecord(loan))
		if err := add(ds, false, "append loan "+loan.ID.String()); err != nil {
			return nil, err
		}
	}

	for _, loan := range changes.UpdatedLoans {
		ds := builder.Update(e.loansTable).
			Set(goqu.Record{
				colReturned:     loan.Returned,
				colReturnedAtUS: returnedAtMicros(loan),
			}).
			Where(goqu.C(colLoanID).Eq(loan.ID.String()), goqu.C(colReturned).IsFalse())
		if err := add(ds, true, "update loan "+loan.ID.String()); err != nil {
			return nil, err
		}
	}

	for _, isbn := range changes.DeletedBooks {
		activeLoans := builder.From(e.loansTable).
			Select(goqu.L("1")).
			Where(goqu.C(colISBN).Eq(isbn), goqu.C(colReturned).IsFalse())
		ds := builder.Delete(e.booksTable).
			Where(goqu.C(colISBN).Eq(isbn), goqu.L("NOT EXISTS ?", activeLoans))
		if err := add(ds, true, "delete book "+isbn); err != nil {
			return nil, err
		}
	}

	for _, id := range changes.DeletedCustomers {
		activeLoans := builder.From(e.loansTable).
			Select(goqu.L("1")).
			Where(goqu.C(colCustomerID).Eq(id), goqu.C(colReturned).IsFalse())
		ds := builder.Delete(e.customersTable).
			Where(goqu.C(colCustomerID).Eq(id), goqu.L("NOT EXISTS ?", activeLoans))
		if err := add(ds, true, fmt.Sprintf("delete customer %d", id)); err != nil {
			return nil, err
		}
	}

	return statements, nil
}

func bookRecord(book library.Book) goqu.Record {
	return goqu.Record{
		colISBN:      book.ISBN,
		colTitle:     book.Title,
		colAuthor:    book.Author,
		colPages:     book.Pages,
		colGenre:     book.Genre,
		colAvailable: book.Available,
	}
}

func loanRecord(loan library.Loan) goqu.Record {
	return goqu.Record{
		colLoanID:       loan.ID.String(),
		colISBN:         loan.ISBN,
		colCustomerID:   loan.CustomerID,
		colIssuedAtUS:   loan.IssueDate.UnixMicro(),
		colDueAtUS:      loan.DueDate.UnixMicro(),
		colReturned:     loan.Returned,
		colReturnedAtUS: returnedAtMicros(loan),
	}
}

func returnedAtMicros(loan library.Loan) any {
	if loan.ReturnedAt == nil {
		return nil
	}

	return loan.ReturnedAt.UnixMicro()
}
