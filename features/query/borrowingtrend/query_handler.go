package borrowingtrend

import (
	"context"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/shell"
)

// CirculationStore defines the interface needed by the QueryHandler for store operations.
type CirculationStore interface {
	QueryLoans(ctx context.Context, filter circstore.LoanFilter) (circstore.LoanRecords, error)
	LatestJournalSequence(ctx context.Context) (circstore.JournalSequenceUint, error)
}

// QueryHandler orchestrates the complete query processing workflow.
// It handles infrastructure concerns like store interactions and observability
// instrumentation, and delegates projection logic to the pure core functions.
type QueryHandler struct {
	store            CirculationStore
	metricsCollector shell.MetricsCollector
	tracingCollector shell.TracingCollector
	contextualLogger shell.ContextualLogger
	logger           shell.Logger
}

// NewQueryHandler creates a new QueryHandler with the provided store dependency and options.
func NewQueryHandler(store CirculationStore, opts ...Option) (QueryHandler, error) {
	h := QueryHandler{
		store: store,
	}

	for _, opt := range opts {
		if err := opt(&h); err != nil {
			return QueryHandler{}, err
		}
	}

	return h, nil
}

// Handle executes the complete query processing workflow: Load -> Map -> Project.
func (h QueryHandler) Handle(ctx context.Context, query Query) (BorrowingTrend, error) {
	queryStart := time.Now()
	ctx, span := shell.StartQuerySpan(ctx, h.tracingCollector, queryType)
	shell.LogQueryStart(ctx, h.logger, h.contextualLogger, queryType)

	ctx = circstore.WithEventualConsistency(ctx)

	sequence, err := h.store.LatestJournalSequence(ctx)
	if err != nil {
		h.recordQueryError(ctx, err, time.Since(queryStart), span)
		return BorrowingTrend{}, err
	}

	// Load phase
	records, err := h.store.QueryLoans(ctx, BuildLoanFilter(query))
	if err != nil {
		h.recordQueryError(ctx, err, time.Since(queryStart), span)
		return BorrowingTrend{}, err
	}

	// Projection phase - delegate to a pure core function
	result := ProjectBorrowingTrend(shell.LoansFromRecords(records), query, sequence)

	h.recordQuerySuccess(ctx, time.Since(queryStart), span)

	return result, nil
}

/*** Report-cache dependency accessors ***/

// ExposeJournalReader returns the journal sequence reader for report-cache wrapping.
func (h QueryHandler) ExposeJournalReader() shell.ReadsJournalSequence {
	return h.store
}

// ExposeMetricsCollector returns the metrics collector for report-cache wrapping.
func (h QueryHandler) ExposeMetricsCollector() shell.MetricsCollector {
	return h.metricsCollector
}

// ExposeTracingCollector returns the tracing collector for report-cache wrapping.
func (h QueryHandler) ExposeTracingCollector() shell.TracingCollector {
	return h.tracingCollector
}

// ExposeContextualLogger returns the contextual logger for report-cache wrapping.
func (h QueryHandler) ExposeContextualLogger() shell.ContextualLogger {
	return h.contextualLogger
}

// ExposeLogger returns the basic logger for report-cache wrapping.
func (h QueryHandler) ExposeLogger() shell.Logger {
	return h.logger
}

/*** Query Handler Options and helper methods for observability ***/

// Option defines a functional option for configuring QueryHandler.
type Option func(*QueryHandler) error

// WithMetrics sets the metrics collector for the QueryHandler.
func WithMetrics(collector shell.MetricsCollector) Option {
	return func(h *QueryHandler) error {
		h.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the QueryHandler.
func WithTracing(collector shell.TracingCollector) Option {
	return func(h *QueryHandler) error {
		h.tracingCollector = collector
		return nil
	}
}

// WithContextualLogging sets the contextual logger for the QueryHandler.
func WithContextualLogging(logger shell.ContextualLogger) Option {
	return func(h *QueryHandler) error {
		h.contextualLogger = logger
		return nil
	}
}

// WithLogging sets the basic logger for the QueryHandler.
func WithLogging(logger shell.Logger) Option {
	return func(h *QueryHandler) error {
		h.logger = logger
		return nil
	}
}

// recordQuerySuccess records successful query execution with observability.
func (h QueryHandler) recordQuerySuccess(ctx context.Context, duration time.Duration, span shell.SpanContext) {
	shell.RecordQueryMetrics(ctx, h.metricsCollector, queryType, shell.StatusSuccess, duration, "")
	shell.FinishQuerySpan(h.tracingCollector, span, shell.StatusSuccess, duration, nil)
	shell.LogQuerySuccess(ctx, h.logger, h.contextualLogger, queryType, shell.StatusSuccess, duration)
}

// recordQueryError records failed query execution with observability.
func (h QueryHandler) recordQueryError(ctx context.Context, err error, duration time.Duration, span shell.SpanContext) {
	status := shell.StatusError

	switch {
	case shell.IsCancellationError(err):
		status = shell.StatusCanceled
	case shell.IsTimeoutError(err):
		status = shell.StatusTimeout
	}

	shell.RecordQueryMetrics(ctx, h.metricsCollector, queryType, status, duration, "")
	shell.FinishQuerySpan(h.tracingCollector, span, status, duration, err)
	shell.LogQueryError(ctx, h.logger, h.contextualLogger, queryType, err)
}
