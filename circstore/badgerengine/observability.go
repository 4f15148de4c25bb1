package badgerengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

const (
	logMsgOperationExecuted   = "executed store operation: "
	logMsgOperation           = "circulation store operation: "
	logMsgReadFailed          = "circulation store read failed"
	logMsgTransitionFailed    = "circulation store transition failed"
	logMsgConcurrencyConflict = "concurrency conflict detected"

	logAttrOperation = "operation"

	metricQueryDuration        = "circulationstore_query_duration_seconds"
	metricTransitionDuration   = "circulationstore_transition_duration_seconds"
	metricRecordsRead          = "circulationstore_records_read"
	metricDatabaseErrors       = "circulationstore_database_errors"
	metricConcurrencyConflicts = "circulationstore_concurrency_conflicts"

	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "conflict"

	spanNameRead       = "circulationstore.read"
	spanNameTransition = "circulationstore.execute_transition"

	spanAttrOperation      = "operation"
	spanAttrErrorType      = "error_type"
	spanAttrRecordCount    = "record_count"
	spanAttrItemCode       = "item_code"
	spanAttrTransitionType = "transition_type"
	spanAttrDurationMS     = "duration_ms"

	errorTypeConflict     = "concurrency_conflict"
	errorTypeBuildQuery   = "build_query"
	errorTypeQuery        = "query"
	errorTypeBuildRecord  = "build_record"
	errorTypeEncodeRecord = "encode_record"
	errorTypeSnapshot     = "snapshot"
	errorTypeDatabase     = "database"
)

// logOperationWithDuration logs write operations with execution time at debug level
// if a logger is configured. The contextual logger wins when both loggers are configured.
func (cs *CirculationStore) logOperationWithDuration(ctx context.Context, action string, duration time.Duration) {
	if cs.contextualLogger != nil {
		cs.contextualLogger.DebugContext(ctx, logMsgOperationExecuted+action, logAttrDurationMS, cs.toMilliseconds(duration))
		return
	}

	if cs.logger != nil {
		cs.logger.Debug(logMsgOperationExecuted+action, logAttrDurationMS, cs.toMilliseconds(duration))
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (cs *CirculationStore) logOperation(ctx context.Context, action string, args ...any) {
	cs.logInfo(ctx, logMsgOperation+action, args...)
}

// logInfo logs at info level, preferring the contextual logger.
func (cs *CirculationStore) logInfo(ctx context.Context, message string, args ...any) {
	if cs.contextualLogger != nil {
		cs.contextualLogger.InfoContext(ctx, message, args...)
		return
	}

	if cs.logger != nil {
		cs.logger.Info(message, args...)
	}
}

// logError logs error information at the error level, preferring the contextual logger.
func (cs *CirculationStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if cs.contextualLogger != nil {
		cs.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if cs.logger != nil {
		cs.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (cs *CirculationStore) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetricsContext records duration metrics with context if the collector supports it.
func (cs *CirculationStore) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		}

		// Use context-aware method if available
		if contextualCollector, ok := cs.metricsCollector.(circstore.ContextualMetricsCollector); ok {
			contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		} else {
			cs.metricsCollector.RecordDuration(metricName, duration, labels)
		}
	}
}

// recordValueMetricsContext records value metrics with context if the collector supports it.
func (cs *CirculationStore) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	operation, status string,
) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		}

		// Use context-aware method if available
		if contextualCollector, ok := cs.metricsCollector.(circstore.ContextualMetricsCollector); ok {
			contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		} else {
			cs.metricsCollector.RecordValue(metricName, value, labels)
		}
	}
}

// recordErrorMetricsContext records error metrics with context if the collector supports it.
func (cs *CirculationStore) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          statusError,
			spanAttrErrorType: errorType,
		}

		// Use context-aware method if available
		if contextualCollector, ok := cs.metricsCollector.(circstore.ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		} else {
			cs.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
		}
	}
}

// recordConcurrencyConflictMetrics records concurrency conflict metrics if the metrics collector is configured.
func (cs *CirculationStore) recordConcurrencyConflictMetrics(operation string) {
	if cs.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"conflict_type":   "concurrency",
		}
		cs.metricsCollector.IncrementCounter(metricConcurrencyConflicts, labels)
	}
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (cs *CirculationStore) startTraceSpan(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (context.Context, circstore.SpanContext) {
	if cs.tracingCollector != nil {
		return cs.tracingCollector.StartSpan(ctx, operation, attrs)
	}

	return ctx, nil
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (cs *CirculationStore) finishTraceSpan(
	spanCtx circstore.SpanContext,
	status string,
	attrs map[string]string,
) {
	if cs.tracingCollector != nil && spanCtx != nil {
		cs.tracingCollector.FinishSpan(spanCtx, status, attrs)
	}
}

// errorTypeOf maps a store error onto the label value used in error metrics
// and span attributes.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, circstore.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, circstore.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, circstore.ErrBuildingRecordFailed):
		return errorTypeBuildRecord
	case errors.Is(err, ErrEncodingRecordFailed):
		return errorTypeEncodeRecord
	case errors.Is(err, circstore.ErrLoadingSnapshotFailed),
		errors.Is(err, circstore.ErrSavingSnapshotFailed),
		errors.Is(err, circstore.ErrDeletingSnapshotFailed):
		return errorTypeSnapshot
	case errors.Is(err, circstore.ErrQueryingRecordsFailed):
		return errorTypeQuery
	default:
		return errorTypeDatabase
	}
}

// === Observer Pattern ===
// These observers simplify span, metrics, and log lifecycle management by
// encapsulating the completion bookkeeping of each store operation.

// readObserver encapsulates the observability lifecycle of one read operation.
type readObserver struct {
	cs      *CirculationStore
	ctx     context.Context
	action  string
	span    circstore.SpanContext
	started time.Time
}

// startReadObservation creates a new observer for a read operation.
func (cs *CirculationStore) startReadObservation(ctx context.Context, action string) (*readObserver, context.Context) {
	newCtx, span := cs.startTraceSpan(ctx, spanNameRead, map[string]string{spanAttrOperation: action})

	return &readObserver{
		cs:      cs,
		ctx:     newCtx,
		action:  action,
		span:    span,
		started: time.Now(),
	}, newCtx
}

// finishSuccess completes the read observation for successful operations.
func (ro *readObserver) finishSuccess(recordCount int) {
	duration := time.Since(ro.started)

	ro.cs.recordDurationMetricsContext(ro.ctx, metricQueryDuration, duration, ro.action, statusSuccess)
	ro.cs.recordValueMetricsContext(ro.ctx, metricRecordsRead, float64(recordCount), ro.action, statusSuccess)

	if ro.span != nil {
		ro.span.SetStatus(statusSuccess)
		ro.span.AddAttribute(spanAttrRecordCount, fmt.Sprintf("%d", recordCount))
		ro.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", ro.cs.toMilliseconds(duration)))
	}

	ro.cs.finishTraceSpan(ro.span, statusSuccess, map[string]string{
		spanAttrRecordCount: fmt.Sprintf("%d", recordCount),
	})

	ro.cs.logOperation(ro.ctx, ro.action,
		logAttrRecordCount, recordCount,
		logAttrDurationMS, ro.cs.toMilliseconds(duration))
}

// finishError completes the read observation with error details.
func (ro *readObserver) finishError(err error) {
	duration := time.Since(ro.started)
	errorType := errorTypeOf(err)

	ro.cs.recordDurationMetricsContext(ro.ctx, metricQueryDuration, duration, ro.action, statusError)
	ro.cs.recordErrorMetricsContext(ro.ctx, ro.action, errorType)

	if ro.span != nil {
		ro.span.SetStatus(statusError)
		ro.span.AddAttribute(spanAttrErrorType, errorType)
	}

	ro.cs.finishTraceSpan(ro.span, statusError, map[string]string{spanAttrErrorType: errorType})

	ro.cs.logError(ro.ctx, logMsgReadFailed, err, logAttrOperation, ro.action)
}

// transitionObserver encapsulates the observability lifecycle of one transition.
type transitionObserver struct {
	cs      *CirculationStore
	ctx     context.Context
	record  circstore.TransitionRecord
	span    circstore.SpanContext
	started time.Time
}

// startTransitionObservation creates a new observer for a transition.
func (cs *CirculationStore) startTransitionObservation(
	ctx context.Context,
	record circstore.TransitionRecord,
) (*transitionObserver, context.Context) {
	newCtx, span := cs.startTraceSpan(ctx, spanNameTransition, map[string]string{
		spanAttrOperation:      logActionExecuteTransition,
		spanAttrTransitionType: record.TransitionType,
		spanAttrItemCode:       record.ItemCode,
	})

	return &transitionObserver{
		cs:      cs,
		ctx:     newCtx,
		record:  record,
		span:    span,
		started: time.Now(),
	}, newCtx
}

// finishSuccess completes the transition observation for successful commits.
func (to *transitionObserver) finishSuccess() {
	duration := time.Since(to.started)

	to.cs.recordDurationMetricsContext(to.ctx, metricTransitionDuration, duration, logActionExecuteTransition, statusSuccess)

	if to.span != nil {
		to.span.SetStatus(statusSuccess)
		to.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", to.cs.toMilliseconds(duration)))
	}

	to.cs.finishTraceSpan(to.span, statusSuccess, map[string]string{
		spanAttrTransitionType: to.record.TransitionType,
	})

	to.cs.logOperation(to.ctx, logActionExecuteTransition,
		logAttrTransitionType, to.record.TransitionType,
		logAttrItemCode, to.record.ItemCode,
		logAttrDurationMS, to.cs.toMilliseconds(duration))
}

// finishError completes the transition observation with error details.
// Concurrency conflicts are expected under contention and are observed
// separately from real errors.
func (to *transitionObserver) finishError(err error) {
	duration := time.Since(to.started)

	if errors.Is(err, circstore.ErrConcurrencyConflict) {
		to.finishConflict(duration)
		return
	}

	errorType := errorTypeOf(err)

	to.cs.recordDurationMetricsContext(to.ctx, metricTransitionDuration, duration, logActionExecuteTransition, statusError)
	to.cs.recordErrorMetricsContext(to.ctx, logActionExecuteTransition, errorType)

	if to.span != nil {
		to.span.SetStatus(statusError)
		to.span.AddAttribute(spanAttrErrorType, errorType)
	}

	to.cs.finishTraceSpan(to.span, statusError, map[string]string{spanAttrErrorType: errorType})

	to.cs.logError(to.ctx, logMsgTransitionFailed, err,
		logAttrTransitionType, to.record.TransitionType,
		logAttrItemCode, to.record.ItemCode)
}

func (to *transitionObserver) finishConflict(duration time.Duration) {
	to.cs.recordDurationMetricsContext(to.ctx, metricTransitionDuration, duration, logActionExecuteTransition, statusConflict)
	to.cs.recordConcurrencyConflictMetrics(logActionExecuteTransition)

	if to.span != nil {
		to.span.SetStatus(statusConflict)
		to.span.AddAttribute(spanAttrErrorType, errorTypeConflict)
	}

	to.cs.finishTraceSpan(to.span, statusConflict, map[string]string{
		spanAttrTransitionType: to.record.TransitionType,
	})

	to.cs.logInfo(to.ctx, logMsgConcurrencyConflict,
		logAttrTransitionType, to.record.TransitionType,
		logAttrItemCode, to.record.ItemCode)
}
