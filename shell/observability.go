package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

const (
	// CommandHandlerDurationMetric tracks command handler execution duration (OpenTelemetry-compatible).
	CommandHandlerDurationMetric = "commandhandler_handle_duration_seconds"

	// CommandHandlerCallsMetric tracks total command handler calls.
	CommandHandlerCallsMetric = "commandhandler_handle_calls_total"

	// CommandHandlerIdempotentMetric tracks idempotent operations.
	CommandHandlerIdempotentMetric = "commandhandler_idempotent_operations_total"

	// CommandHandlerRejectedMetric tracks operations refused by a business rule.
	CommandHandlerRejectedMetric = "commandhandler_rejected_operations_total"

	// CommandHandlerCanceledMetric tracks canceled operations.
	CommandHandlerCanceledMetric = "commandhandler_canceled_operations_total"

	// CommandHandlerTimeoutMetric tracks timeout operations.
	CommandHandlerTimeoutMetric = "commandhandler_timeout_operations_total"

	// CommandHandlerConcurrencyConflictMetric tracks concurrency conflict operations.
	CommandHandlerConcurrencyConflictMetric = "commandhandler_concurrency_conflicts_total"

	// QueryHandlerDurationMetric tracks query handler execution duration (OpenTelemetry-compatible).
	QueryHandlerDurationMetric = "queryhandler_handle_duration_seconds"

	// QueryHandlerCallsMetric tracks total query handler calls.
	QueryHandlerCallsMetric = "queryhandler_handle_calls_total"

	// QueryHandlerCanceledMetric tracks canceled query operations.
	QueryHandlerCanceledMetric = "queryhandler_canceled_operations_total"

	// QueryHandlerTimeoutMetric tracks timeout query operations.
	QueryHandlerTimeoutMetric = "queryhandler_timeout_operations_total"

	// CommandHandlerRetriesMetric tracks retry attempts in command handlers.
	//
	// Labels:
	//   - command_type: Type of command being retried (e.g., "CheckOutItem")
	//   - attempt_number: Which retry attempt (1, 2, 3, 4, 5)
	//   - error_type: Category of error causing retry (e.g., "concurrency_conflict")
	//
	// Cardinality: O(command_types × max_attempts × error_types)
	// Expected: ~6 commands × 5 attempts × 3 error types = ~90 series
	//
	// Use cases:
	//   - Alert on high retry rates: rate(commandhandler_retries_total[5m])
	//   - Retry success rate: (total commands - max_retries_reached) / total commands
	CommandHandlerRetriesMetric = "commandhandler_retries_total"

	// CommandHandlerRetryDelayMetric tracks retry delays in command handlers.
	//
	// Labels:
	//   - command_type: Type of command being retried
	//   - attempt_number: Which retry attempt (1, 2, 3, 4, 5)
	//
	// Cardinality: O(command_types × max_attempts)
	// Expected: ~6 commands × 5 attempts = ~30 series
	//
	// Use cases:
	//   - Monitor backoff behavior: histogram_quantile(0.95, commandhandler_retry_delay_seconds)
	//   - Detect thundering herd: sudden spikes in delay distribution
	CommandHandlerRetryDelayMetric = "commandhandler_retry_delay_seconds"

	// CommandHandlerMaxRetriesReachedMetric tracks when max retries are exhausted.
	//
	// Labels:
	//   - command_type: Type of command that exhausted retries
	//   - final_error_type: Error type that caused final failure
	//
	// Cardinality: O(command_types × error_types)
	// Expected: ~6 commands × 3 error types = ~18 series
	//
	// Use cases:
	//   - Alert on retry exhaustion: increase(commandhandler_max_retries_reached_total[5m]) > 0
	//   - Identify problematic commands: rate(commandhandler_max_retries_reached_total[1h]) by (command_type)
	CommandHandlerMaxRetriesReachedMetric = "commandhandler_max_retries_reached_total"

	// StatusSuccess indicates successful command completion.
	StatusSuccess = "success"

	// StatusError indicates a command processing error.
	StatusError = "error"

	// StatusIdempotent indicates no state change was needed.
	StatusIdempotent = "idempotent"

	// StatusRejected indicates a business rule refused the operation.
	StatusRejected = "rejected"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// StatusConcurrencyConflict indicates the operation failed due to optimistic concurrency control.
	StatusConcurrencyConflict = "concurrency_conflict"

	// LogMsgCommandStarted is logged when command processing begins.
	LogMsgCommandStarted = "command handler started"

	// LogMsgCommandCompleted is logged when command processing succeeds.
	LogMsgCommandCompleted = "command handler completed"

	// LogMsgCommandFailed is logged when command processing fails.
	LogMsgCommandFailed = "command handler failed"

	// LogMsgCommandRejected is logged when a business rule refuses the operation.
	LogMsgCommandRejected = "command rejected by business rule"

	// LogMsgBorrowerMismatch is logged when a renewal is attempted by someone other than the loan holder.
	LogMsgBorrowerMismatch = "renewal attempted by non-holder of the loan"

	// LogMsgInvariantViolated is logged when a transition would violate the item invariant.
	// This signals a bug in decision logic, not an actor mistake.
	LogMsgInvariantViolated = "item invariant violated: this is a bug"

	// LogMsgQueryStarted is logged when query processing begins.
	LogMsgQueryStarted = "query handler started"

	// LogMsgQueryCompleted is logged when query processing succeeds.
	LogMsgQueryCompleted = "query handler completed"

	// LogMsgQueryFailed is logged when query processing fails.
	LogMsgQueryFailed = "query handler failed"

	// LogMsgCachedQuerySuccess is logged when cache-aware query processing succeeds.
	LogMsgCachedQuerySuccess = "cache-aware query completed"

	// LogMsgCacheFallback is logged when cache loading fails and falls back to the base handler.
	LogMsgCacheFallback = "cache fallback to base handler"

	// LogMsgCacheHit is logged when a cached report is valid and served directly.
	LogMsgCacheHit = "report cache hit"

	// LogMsgCacheMiss is logged when no cached report exists.
	LogMsgCacheMiss = "report cache miss: recomputing"

	// LogMsgCacheStale is logged when a cached report exists but is no longer valid.
	LogMsgCacheStale = "report cache stale: recomputing"

	// LogMsgCacheSaved is logged when a recomputed report is cached.
	LogMsgCacheSaved = "report cache saved"

	// LogMsgCacheSaveError is logged when caching a recomputed report fails.
	LogMsgCacheSaveError = "report cache save error"

	// LogMsgCacheError is logged when a cache operation fails.
	LogMsgCacheError = "report cache error"

	// LogAttrCommandType identifies the command type in logs.
	LogAttrCommandType = "command_type"

	// LogAttrQueryType identifies the query type in logs.
	LogAttrQueryType = "query_type"

	// LogAttrStatus indicates the command processing status.
	LogAttrStatus = "status"

	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"

	// LogAttrBusinessOutcome classifies the business result.
	LogAttrBusinessOutcome = "business_outcome"

	// LogAttrError contains error details.
	LogAttrError = "error"

	// LogAttrItemCode identifies the item an operation touches.
	LogAttrItemCode = "item_code"

	// LogAttrBorrower identifies the borrower in circulation operations.
	LogAttrBorrower = "borrower"

	// LogAttrActor identifies the actor performing a privileged operation.
	LogAttrActor = "actor"

	// LogAttrRejectionReason identifies why a business rule refused the operation.
	LogAttrRejectionReason = "rejection_reason"

	// LogAttrCacheStatus indicates the report cache outcome (hit/miss/stale).
	LogAttrCacheStatus = "cache_status"

	// LogAttrReason indicates the reason for a fallback or failure.
	LogAttrReason = "reason"

	// LogAttrOperation indicates which cache operation was being performed.
	LogAttrOperation = "operation"

	// LogAttrSequence indicates a journal sequence number value.
	LogAttrSequence = "sequence"

	// LogAttrReportType identifies the cached report type.
	LogAttrReportType = "report_type"

	// SpanNameCommandHandle is the tracing span name for command handling.
	SpanNameCommandHandle = "commandhandler.handle"

	// SpanNameQueryHandle is the tracing span name for query handling.
	SpanNameQueryHandle = "queryhandler.handle"

	// CacheReasonError indicates that the cache lookup failed with an error.
	CacheReasonError = "cache_error"

	// CacheReasonMiss indicates that no cached report was found.
	CacheReasonMiss = "cache_miss"

	// CacheReasonStaleSequence indicates the journal advanced past the cached report.
	CacheReasonStaleSequence = "stale_sequence"

	// CacheReasonStaleAge indicates the cached report exceeded its max age.
	CacheReasonStaleAge = "stale_age"

	// CacheReasonDeserializeError indicates that the cached report could not be deserialized.
	CacheReasonDeserializeError = "deserialize_error"

	// CacheReasonHit indicates that the cached report was served.
	CacheReasonHit = "cache_hit"
)

// Interface aliases for convenience when using handler observability.
// These match the circulation store observability interfaces for consistency.

// MetricsCollector interface for collecting handler performance metrics.
type MetricsCollector = circstore.MetricsCollector

// ContextualMetricsCollector extends MetricsCollector with context-aware methods.
type ContextualMetricsCollector = circstore.ContextualMetricsCollector

// TracingCollector interface for distributed tracing in handlers.
type TracingCollector = circstore.TracingCollector

// SpanContext represents an active tracing span.
type SpanContext = circstore.SpanContext

// ContextualLogger interface for context-aware logging in handlers.
type ContextualLogger = circstore.ContextualLogger

// Logger interface for basic logging in handlers.
type Logger = circstore.Logger

// BuildCommandLabels creates standard metric labels for command handler operations.
func BuildCommandLabels(commandType, status string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		LogAttrStatus:      status,
	}
}

// BuildQueryLabels creates standard metric labels for query handler operations.
func BuildQueryLabels(queryType, status string) map[string]string {
	return map[string]string{
		LogAttrQueryType: queryType,
		LogAttrStatus:    status,
	}
}

// BuildRetryLabels creates standard metric labels for retry operations.
func BuildRetryLabels(commandType string, attemptNumber int, errorType string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		"attempt_number":   fmt.Sprintf("%d", attemptNumber),
		"error_type":       errorType,
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds with precision.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// RecordCommandMetrics is a helper function to record all relevant metrics for a command operation.
// It handles both context-aware and basic metrics collectors automatically.
func RecordCommandMetrics(
	ctx context.Context,
	collector MetricsCollector,
	commandType string,
	status string,
	duration time.Duration,
) {
	if collector == nil {
		return
	}

	labels := BuildCommandLabels(commandType, status)

	// Record duration metric
	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, CommandHandlerDurationMetric, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, CommandHandlerCallsMetric, labels)
	} else {
		collector.RecordDuration(CommandHandlerDurationMetric, duration, labels)
		collector.IncrementCounter(CommandHandlerCallsMetric, labels)
	}

	// Record idempotent operations separately
	if status == StatusIdempotent {
		incrementCommandCounter(ctx, collector, CommandHandlerIdempotentMetric, commandType, StatusIdempotent)
	}

	// Record rejected operations separately
	if status == StatusRejected {
		incrementCommandCounter(ctx, collector, CommandHandlerRejectedMetric, commandType, StatusRejected)
	}

	// Record canceled operations separately
	if status == StatusCanceled {
		incrementCommandCounter(ctx, collector, CommandHandlerCanceledMetric, commandType, StatusCanceled)
	}

	// Record timeout operations separately
	if status == StatusTimeout {
		incrementCommandCounter(ctx, collector, CommandHandlerTimeoutMetric, commandType, StatusTimeout)
	}

	// Record concurrency conflict operations separately
	if status == StatusConcurrencyConflict {
		incrementCommandCounter(ctx, collector, CommandHandlerConcurrencyConflictMetric, commandType, StatusConcurrencyConflict)
	}
}

// incrementCommandCounter increments a status-specific command counter,
// preferring the context-aware collector when available.
func incrementCommandCounter(
	ctx context.Context,
	collector MetricsCollector,
	metric string,
	commandType string,
	status string,
) {
	labels := BuildCommandLabels(commandType, status)

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		collector.IncrementCounter(metric, labels)
	}
}

// RecordQueryMetrics is a helper function to record all relevant metrics for a query operation.
// It handles both context-aware and basic metrics collectors automatically.
func RecordQueryMetrics(
	ctx context.Context,
	collector MetricsCollector,
	queryType string,
	status string,
	duration time.Duration,
	cacheReason string,
) {
	if collector == nil {
		return
	}

	labels := BuildQueryLabels(queryType, status)

	// Add the cache_status label if provided
	if cacheReason != "" {
		labels[LogAttrCacheStatus] = cacheReason
	}

	// Record duration metric
	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, QueryHandlerDurationMetric, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, QueryHandlerCallsMetric, labels)
	} else {
		collector.RecordDuration(QueryHandlerDurationMetric, duration, labels)
		collector.IncrementCounter(QueryHandlerCallsMetric, labels)
	}

	// Record canceled operations separately
	if status == StatusCanceled {
		canceledLabels := BuildQueryLabels(queryType, StatusCanceled)
		if cacheReason != "" {
			canceledLabels[LogAttrCacheStatus] = cacheReason
		}
		if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, QueryHandlerCanceledMetric, canceledLabels)
		} else {
			collector.IncrementCounter(QueryHandlerCanceledMetric, canceledLabels)
		}
	}

	// Record timeout operations separately
	if status == StatusTimeout {
		timeoutLabels := BuildQueryLabels(queryType, StatusTimeout)
		if cacheReason != "" {
			timeoutLabels[LogAttrCacheStatus] = cacheReason
		}
		if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, QueryHandlerTimeoutMetric, timeoutLabels)
		} else {
			collector.IncrementCounter(QueryHandlerTimeoutMetric, timeoutLabels)
		}
	}
}

// StartCommandSpan starts a distributed tracing span for command operations.
// Returns the updated context and span context, or original context and nil if tracing is disabled.
func StartCommandSpan(
	ctx context.Context,
	tracingCollector TracingCollector,
	commandType string,
) (context.Context, SpanContext) {
	if tracingCollector == nil {
		return ctx, nil
	}

	attrs := map[string]string{
		LogAttrCommandType: commandType,
	}

	return tracingCollector.StartSpan(ctx, SpanNameCommandHandle, attrs)
}

// FinishCommandSpan completes a distributed tracing span with the operation outcome.
func FinishCommandSpan(
	tracingCollector TracingCollector,
	span SpanContext,
	status string,
	duration time.Duration,
	err error,
) {
	if tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: formatDurationMS(duration),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracingCollector.FinishSpan(span, status, attrs)
}

// StartQuerySpan starts a distributed tracing span for query operations.
// Returns the updated context and span context, or original context and nil if tracing is disabled.
func StartQuerySpan(
	ctx context.Context,
	tracingCollector TracingCollector,
	queryType string,
) (context.Context, SpanContext) {
	if tracingCollector == nil {
		return ctx, nil
	}

	attrs := map[string]string{
		LogAttrQueryType: queryType,
	}

	return tracingCollector.StartSpan(ctx, SpanNameQueryHandle, attrs)
}

// FinishQuerySpan completes a distributed tracing span with the operation outcome.
func FinishQuerySpan(
	tracingCollector TracingCollector,
	span SpanContext,
	status string,
	duration time.Duration,
	err error,
) {
	if tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: formatDurationMS(duration),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracingCollector.FinishSpan(span, status, attrs)
}

// LogCommandStart logs the beginning of command processing.
func LogCommandStart(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
) {
	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgCommandStarted, LogAttrCommandType, commandType)
	} else if logger != nil {
		logger.Info(LogMsgCommandStarted, LogAttrCommandType, commandType)
	}
}

// LogCommandSuccess logs successful command completion.
func LogCommandSuccess(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	businessOutcome string,
	duration time.Duration,
) {
	args := []any{
		LogAttrCommandType, commandType,
		LogAttrBusinessOutcome, businessOutcome,
		LogAttrDurationMS, ToMilliseconds(duration),
	}

	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgCommandCompleted, args...)
	} else if logger != nil {
		logger.Info(LogMsgCommandCompleted, args...)
	}
}

// LogCommandRejection logs a business rule refusing a command at Info level.
// Rejections are final answers to the actor, not failures.
func LogCommandRejection(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	reason string,
	message string,
) {
	args := []any{
		LogAttrCommandType, commandType,
		LogAttrRejectionReason, reason,
		LogAttrError, message,
	}

	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgCommandRejected, args...)
	} else if logger != nil {
		logger.Info(LogMsgCommandRejected, args...)
	}
}

// LogCommandSecurityRejection logs a security-relevant rejection at Warn
// level, e.g. a renewal attempted by someone who does not hold the loan.
func LogCommandSecurityRejection(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	reason string,
	message string,
) {
	args := []any{
		LogAttrCommandType, commandType,
		LogAttrRejectionReason, reason,
		LogAttrError, message,
	}

	if contextualLogger != nil {
		contextualLogger.WarnContext(ctx, LogMsgCommandRejected, args...)
	} else if logger != nil {
		logger.Warn(LogMsgCommandRejected, args...)
	}
}

// LogCommandError logs command processing errors.
func LogCommandError(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	err error,
) {
	args := []any{
		LogAttrCommandType, commandType,
		LogAttrError, err.Error(),
	}

	if contextualLogger != nil {
		contextualLogger.ErrorContext(ctx, LogMsgCommandFailed, args...)
	} else if logger != nil {
		logger.Error(LogMsgCommandFailed, args...)
	}
}

// LogQueryStart logs the beginning of query processing.
func LogQueryStart(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	queryType string,
) {
	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgQueryStarted, LogAttrQueryType, queryType)
	} else if logger != nil {
		logger.Info(LogMsgQueryStarted, LogAttrQueryType, queryType)
	}
}

// LogQuerySuccess logs successful query completion.
func LogQuerySuccess(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	queryType string,
	businessOutcome string,
	duration time.Duration,
) {
	args := []any{
		LogAttrQueryType, queryType,
		LogAttrBusinessOutcome, businessOutcome,
		LogAttrDurationMS, ToMilliseconds(duration),
	}

	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgQueryCompleted, args...)
	} else if logger != nil {
		logger.Info(LogMsgQueryCompleted, args...)
	}
}

// LogQueryError logs query processing errors.
func LogQueryError(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	queryType string,
	err error,
) {
	args := []any{
		LogAttrQueryType, queryType,
		LogAttrError, err.Error(),
	}

	if contextualLogger != nil {
		contextualLogger.ErrorContext(ctx, LogMsgQueryFailed, args...)
	} else if logger != nil {
		logger.Error(LogMsgQueryFailed, args...)
	}
}

// formatDurationMS formats duration in milliseconds for span attributes.
func formatDurationMS(duration time.Duration) string {
	return fmt.Sprintf("%.2f", ToMilliseconds(duration))
}

// IsCancellationError checks if an error is due to context cancellation.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeoutError checks if an error is due to context deadline exceeded.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsConcurrencyConflictError checks if an error is due to optimistic concurrency control failure.
func IsConcurrencyConflictError(err error) bool {
	return errors.Is(err, circstore.ErrConcurrencyConflict)
}
