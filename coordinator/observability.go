package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	// OperationDurationMetric tracks coordinator operation duration (OpenTelemetry-compatible).
	OperationDurationMetric = "coordinator_operation_duration_seconds"

	// OperationCallsMetric tracks total coordinator operation calls.
	OperationCallsMetric = "coordinator_operation_calls_total"

	// RejectedOperationsMetric tracks operations refused by a business rule.
	RejectedOperationsMetric = "coordinator_rejected_operations_total"

	// CommitFailuresMetric tracks changesets the backend could not persist.
	CommitFailuresMetric = "coordinator_commit_failures_total"

	// ConcurrencyConflictsMetric tracks commits refused because another process changed a guarded row.
	ConcurrencyConflictsMetric = "coordinator_concurrency_conflicts_total"

	// StatusSuccess indicates successful completion.
	StatusSuccess = "success"

	// StatusRejected indicates a violated precondition, e.g. a book that is not available.
	StatusRejected = "rejected"

	// StatusError indicates a technical failure.
	StatusError = "error"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// StatusConcurrencyConflict indicates the backend refused the commit because of a concurrent change.
	StatusConcurrencyConflict = "concurrency_conflict"

	OperationIssueBook         = "IssueBook"
	OperationReturnBook        = "ReturnBook"
	OperationReturnBookByISBN  = "ReturnBookByISBN"
	OperationDeleteBook        = "DeleteBook"
	OperationDeleteCustomer    = "DeleteCustomer"
	OperationLookupBook        = "LookupBook"
	OperationAddBookFromLookup = "AddBookFromLookup"
	OperationRepairConsistency = "RepairConsistency"

	// SpanNameOperation is the tracing span name for coordinator operations.
	SpanNameOperation = "coordinator.operation"

	LogMsgOperationStarted   = "coordinator operation started"
	LogMsgOperationCompleted = "coordinator operation completed"
	LogMsgOperationRejected  = "coordinator operation rejected"
	LogMsgOperationFailed    = "coordinator operation failed"
	LogMsgUnrepairable       = "inconsistency needs manual repair"

	LogAttrOperation       = "operation"
	LogAttrStatus          = "status"
	LogAttrBusinessOutcome = "business_outcome"
	LogAttrDurationMS      = "duration_ms"
	LogAttrError           = "error"
	LogAttrISBN            = "isbn"
	LogAttrCustomerID      = "customer_id"
	LogAttrInconsistency   = "inconsistency"
)

// operationObservation carries the instrumentation state of one running operation.
type operationObservation struct {
	coordinator *Coordinator
	ctx         context.Context
	operation   string
	span        library.SpanContext
	start       time.Time
}

func (c *Coordinator) startOperation(
	ctx context.Context,
	operation string,
	isbn string,
	customerID library.CustomerID,
) (context.Context, operationObservation) {
	observation := operationObservation{coordinator: c, operation: operation}

	if c.tracingCollector != nil {
		attrs := map[string]string{LogAttrOperation: operation}
		if isbn != "" {
			attrs[LogAttrISBN] = isbn
		}
		if customerID != 0 {
			attrs[LogAttrCustomerID] = strconv.FormatInt(customerID, 10)
		}

		ctx, observation.span = c.tracingCollector.StartSpan(ctx, SpanNameOperation, attrs)
	}

	c.logDebug(ctx, LogMsgOperationStarted, LogAttrOperation, operation)

	observation.ctx = ctx
	observation.start = time.Now()

	return ctx, observation
}

// finish records metrics, span status, and the log line for the outcome of the operation.
func (o operationObservation) finish(err error) {
	c := o.coordinator
	duration := time.Since(o.start)
	status := statusOf(err)
	outcome := businessOutcomeOf(err)

	labels := map[string]string{
		LogAttrOperation: o.operation,
		LogAttrStatus:    status,
	}

	c.recordDuration(o.ctx, OperationDurationMetric, duration, labels)
	c.incrementCounter(o.ctx, OperationCallsMetric, labels)

	switch status {
	case StatusRejected:
		c.incrementCounter(o.ctx, RejectedOperationsMetric, map[string]string{
			LogAttrOperation:       o.operation,
			LogAttrBusinessOutcome: outcome,
		})
	case StatusConcurrencyConflict:
		c.incrementCounter(o.ctx, ConcurrencyConflictsMetric, map[string]string{LogAttrOperation: o.operation})
	}

	if c.tracingCollector != nil && o.span != nil {
		attrs := map[string]string{
			LogAttrStatus:          status,
			LogAttrBusinessOutcome: outcome,
			LogAttrDurationMS:      fmt.Sprintf("%.2f", durationToMilliseconds(duration)),
		}
		if err != nil {
			attrs[LogAttrError] = err.Error()
		}

		c.tracingCollector.FinishSpan(o.span, status, attrs)
	}

	args := []any{
		LogAttrOperation, o.operation,
		LogAttrStatus, status,
		LogAttrBusinessOutcome, outcome,
		LogAttrDurationMS, durationToMilliseconds(duration),
	}

	switch {
	case err == nil:
		c.logInfo(o.ctx, LogMsgOperationCompleted, args...)
	case status == StatusRejected:
		c.logInfo(o.ctx, LogMsgOperationRejected, append(args, LogAttrError, err.Error())...)
	default:
		c.logError(o.ctx, LogMsgOperationFailed, append(args, LogAttrError, err.Error())...)
	}
}

func (c *Coordinator) recordCommitFailure(ctx context.Context, err error) {
	c.incrementCounter(ctx, CommitFailuresMetric, map[string]string{LogAttrStatus: statusOf(err)})
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, library.ErrConcurrencyConflict):
		return StatusConcurrencyConflict
	case errors.Is(err, library.ErrCommitFailed),
		errors.Is(err, library.ErrUpstreamUnavailable),
		errors.Is(err, library.ErrLoadFailed):
		return StatusError
	case errors.Is(err, library.ErrNotFound),
		errors.Is(err, library.ErrDuplicateKey),
		errors.Is(err, library.ErrConflict),
		errors.Is(err, library.ErrForbidden),
		errors.Is(err, library.ErrInvalidInput):
		return StatusRejected
	default:
		return StatusError
	}
}

// businessOutcomeOf maps an error to a low-cardinality label.
func businessOutcomeOf(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, library.ErrCommitFailed):
		return "commit_failed"
	case errors.Is(err, library.ErrNotFound):
		return "not_found"
	case errors.Is(err, library.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, library.ErrConflict):
		return "conflict"
	case errors.Is(err, library.ErrForbidden):
		return "forbidden"
	case errors.Is(err, library.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, library.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}

func (c *Coordinator) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if c.metricsCollector == nil {
		return
	}

	if contextual, ok := c.metricsCollector.(library.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	c.metricsCollector.RecordDuration(metric, duration, labels)
}

func (c *Coordinator) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if c.metricsCollector == nil {
		return
	}

	if contextual, ok := c.metricsCollector.(library.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metric, labels)
}

func (c *Coordinator) logDebug(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.DebugContext(ctx, msg, args...)
	} else if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Coordinator) logInfo(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, msg, args...)
	} else if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Coordinator) logWarn(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, msg, args...)
	} else if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Coordinator) logError(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with precision.
func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
