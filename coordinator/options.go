package coordinator

import (
	"sync"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library"
)

// Option defines a functional option for configuring the Coordinator.
type Option func(*Coordinator) error

// WithLogger sets the logger for the Coordinator.
// Operation starts are logged at debug level, completions and business rejections at info level,
// and technical failures at error level.
func WithLogger(logger library.Logger) Option {
	return func(c *Coordinator) error {
		c.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, which takes precedence over the basic logger.
func WithContextualLogger(logger library.ContextualLogger) Option {
	return func(c *Coordinator) error {
		c.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Coordinator.
func WithMetrics(collector library.MetricsCollector) Option {
	return func(c *Coordinator) error {
		c.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Coordinator.
func WithTracing(collector library.TracingCollector) Option {
	return func(c *Coordinator) error {
		c.tracingCollector = collector
		return nil
	}
}

// WithClock replaces time.Now, which decides issue, due, and return timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) error {
		if clock == nil {
			return ErrNilDependency
		}

		c.clock = clock

		return nil
	}
}

// WithIDGenerator replaces the generator for loan IDs (UUIDv7 by default).
func WithIDGenerator(generator func() (library.LoanID, error)) Option {
	return func(c *Coordinator) error {
		if generator == nil {
			return ErrNilDependency
		}

		c.newLoanID = generator

		return nil
	}
}

// WithLookup sets the bibliographic lookup used by LookupBook and AddBookFromLookup.
func WithLookup(lookup BookLookup) Option {
	return func(c *Coordinator) error {
		c.lookup = lookup
		return nil
	}
}

// WithWriteLock sets the lock that serializes every mutation of the Coordinator.
// The catalog and customer stores take the same lock for their own writes.
func WithWriteLock(lock sync.Locker) Option {
	return func(c *Coordinator) error {
		if lock == nil {
			return ErrNilDependency
		}

		c.mu = lock

		return nil
	}
}
