package sqlengine

import (
	"github.com/AntonStoeckl/library-circulation-go/library"
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// WithTableNames sets the table names for books, customers, and loans.
func WithTableNames(books, customers, loans string) Option {
	return func(e *Engine) error {
		if books == "" || customers == "" || loans == "" {
			return ErrEmptyTableName
		}

		e.booksTable = books
		e.customersTable = customers
		e.loansTable = loans

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: record counts, durations, concurrency conflicts (production-safe)
// Warn level: non-critical issues like failed rollbacks
// Error level: critical failures that cause operation failures.
func WithLogger(logger library.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// It receives load and commit durations, loaded record counts, concurrency conflicts, and database errors.
func WithMetrics(collector library.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
func WithTracing(collector library.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
// It is preferred over the plain logger, so log lines correlate with the active trace.
func WithContextualLogger(logger library.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}
