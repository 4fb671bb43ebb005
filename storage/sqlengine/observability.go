package sqlengine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	// Metric names (OpenTelemetry-compatible).
	metricLoadDuration         = "sqlengine_load_duration_seconds"
	metricCommitDuration       = "sqlengine_commit_duration_seconds"
	metricRecordsLoaded        = "sqlengine_records_loaded"
	metricRecordsCommitted     = "sqlengine_records_committed"
	metricConcurrencyConflicts = "sqlengine_concurrency_conflicts_total"
	metricDatabaseErrors       = "sqlengine_database_errors_total"

	// Span names.
	spanNameLoad   = "sqlengine.load"
	spanNameCommit = "sqlengine.commit"

	// Span and metric attribute keys.
	spanAttrOperation    = "operation"
	spanAttrCollection   = "collection"
	spanAttrRecordCount  = "record_count"
	spanAttrChangeCount  = "change_count"
	spanAttrRowsAffected = "rows_affected"
	spanAttrDurationMS   = "duration_ms"
	spanAttrErrorType    = "error_type"
	attrStatus           = "status"

	operationLoad   = "load"
	operationCommit = "commit"

	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "concurrency_conflict"

	collectionBooks     = "books"
	collectionCustomers = "customers"
	collectionLoans     = "loans"

	errorTypeBuildQuery          = "build_query"
	errorTypeQuery               = "query"
	errorTypeScan                = "scan"
	errorTypeBegin               = "begin"
	errorTypeExec                = "exec"
	errorTypeRowsAffected        = "rows_affected"
	errorTypeCommit              = "commit"
	errorTypeConcurrencyConflict = "concurrency_conflict"

	logMsgOperation           = "sqlengine operation: "
	logMsgSQLExecuted         = "executed sql for: "
	logMsgLoaded              = "collection loaded"
	logMsgCommitted           = "changes committed"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgBuildQueryFailed    = "failed to build query"
	logMsgQueryFailed         = "database query execution failed"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgSchemaFailed        = "failed to create schema"
	logMsgBeginFailed         = "failed to begin transaction"
	logMsgExecFailed          = "database execution failed during commit"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgCommitFailed        = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrCollection   = "collection"
	logAttrRecordCount  = "record_count"
	logAttrChangeCount  = "change_count"
	logAttrRowsAffected = "rows_affected"
	logAttrDurationMS   = "duration_ms"

	actionLoad   = "load"
	actionCommit = "commit"
	actionSchema = "schema"
)

// === Tracing Observer Pattern ===

// tracingObserver encapsulates the span lifecycle of one load or commit.
type tracingObserver struct {
	e    *Engine
	span library.SpanContext
}

func (e *Engine) startLoadTracing(ctx context.Context, collection string) (context.Context, *tracingObserver) {
	return e.startTracing(ctx, spanNameLoad, map[string]string{
		spanAttrOperation:  operationLoad,
		spanAttrCollection: collection,
	})
}

func (e *Engine) startCommitTracing(ctx context.Context, changeCount int) (context.Context, *tracingObserver) {
	return e.startTracing(ctx, spanNameCommit, map[string]string{
		spanAttrOperation:   operationCommit,
		spanAttrChangeCount: strconv.Itoa(changeCount),
	})
}

func (e *Engine) startTracing(ctx context.Context, name string, attrs map[string]string) (context.Context, *tracingObserver) {
	observer := &tracingObserver{e: e}

	if e.tracingCollector != nil {
		ctx, observer.span = e.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, observer
}

// finishSuccess completes the span; count is the number of loaded records or affected rows.
func (o *tracingObserver) finishSuccess(count int, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusSuccess)
	o.e.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
		spanAttrRecordCount: strconv.Itoa(count),
		spanAttrDurationMS:  o.formatDuration(duration),
	})
}

// finishError completes the span with error details.
func (o *tracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	status := statusError
	if errorType == errorTypeConcurrencyConflict {
		status = statusConflict
	}

	attrs := map[string]string{spanAttrErrorType: errorType}
	if duration > 0 {
		attrs[spanAttrDurationMS] = o.formatDuration(duration)
	}

	o.span.SetStatus(status)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.e.tracingCollector.FinishSpan(o.span, status, attrs)
}

func (o *tracingObserver) formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", o.e.toMilliseconds(duration))
}

// === Metrics Observer Pattern ===

// metricsObserver encapsulates the metrics of one load or commit.
type metricsObserver struct {
	e          *Engine
	ctx        context.Context
	operation  string
	collection string
}

func (e *Engine) startLoadMetrics(ctx context.Context, collection string) *metricsObserver {
	return &metricsObserver{e: e, ctx: ctx, operation: operationLoad, collection: collection}
}

func (e *Engine) startCommitMetrics(ctx context.Context) *metricsObserver {
	return &metricsObserver{e: e, ctx: ctx, operation: operationCommit}
}

func (m *metricsObserver) labels(status string) map[string]string {
	labels := map[string]string{spanAttrOperation: m.operation, attrStatus: status}
	if m.collection != "" {
		labels[spanAttrCollection] = m.collection
	}

	return labels
}

func (m *metricsObserver) durationMetric() string {
	if m.operation == operationLoad {
		return metricLoadDuration
	}

	return metricCommitDuration
}

// recordSuccess records duration and the number of loaded or committed records.
func (m *metricsObserver) recordSuccess(count int, duration time.Duration) {
	m.e.recordDuration(m.ctx, m.durationMetric(), duration, m.labels(statusSuccess))

	valueMetric := metricRecordsCommitted
	if m.operation == operationLoad {
		valueMetric = metricRecordsLoaded
	}

	m.e.recordValue(m.ctx, valueMetric, float64(count), m.labels(statusSuccess))
}

func (m *metricsObserver) recordError(errorType string, duration time.Duration) {
	m.e.recordDuration(m.ctx, m.durationMetric(), duration, m.labels(statusError))

	labels := m.labels(statusError)
	labels[spanAttrErrorType] = errorType
	m.e.incrementCounter(m.ctx, metricDatabaseErrors, labels)
}

func (m *metricsObserver) recordConcurrencyConflict(duration time.Duration) {
	m.e.recordDuration(m.ctx, m.durationMetric(), duration, m.labels(statusConflict))
	m.e.incrementCounter(m.ctx, metricConcurrencyConflicts, map[string]string{spanAttrOperation: m.operation})
}

func (e *Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(library.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metric, duration, labels)
}

func (e *Engine) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(library.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metric, value, labels)
}

func (e *Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(library.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

// === Logging ===
// The contextual logger wins over the plain one, so lines correlate with the active span.

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (e *Engine) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, e.toMilliseconds(duration), logAttrQuery, sqlQuery}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	} else if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	} else if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
	} else if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

// logError logs error information at the error level.
func (e *Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
	} else if e.logger != nil {
		e.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (e *Engine) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
