package postgresengine

import (
	"github.com/stacksys/circulation-tracker-go/circstore"
)

// Option defines a functional option for configuring CirculationStore.
type Option func(*CirculationStore) error

// WithTableNames sets the names of all four tables for the CirculationStore.
func WithTableNames(items, loans, journal, snapshots string) Option {
	return func(cs *CirculationStore) error {
		if items == "" || loans == "" || journal == "" || snapshots == "" {
			return circstore.ErrEmptyTableNameSupplied
		}

		cs.itemsTableName = items
		cs.loansTableName = loans
		cs.journalTableName = journal
		cs.snapshotsTableName = snapshots

		return nil
	}
}

// WithLogger sets the logger for the CirculationStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Record counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger circstore.Logger) Option {
	return func(cs *CirculationStore) error {
		cs.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the CirculationStore.
// The metrics collector will receive performance and operational metrics including
// read/transition durations, record counts, concurrency conflicts, and database errors.
// Collectors that also implement circstore.ContextualMetricsCollector are called
// with the operation's context for trace correlation.
func WithMetrics(collector circstore.MetricsCollector) Option {
	return func(cs *CirculationStore) error {
		cs.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the CirculationStore.
// The tracing collector will receive distributed tracing information including
// span creation for read/transition operations, context propagation, and error tracking.
func WithTracing(collector circstore.TracingCollector) Option {
	return func(cs *CirculationStore) error {
		cs.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the CirculationStore.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled, enabling unified observability.
// When both loggers are configured, the contextual logger wins.
func WithContextualLogger(logger circstore.ContextualLogger) Option {
	return func(cs *CirculationStore) error {
		cs.contextualLogger = logger
		return nil
	}
}
