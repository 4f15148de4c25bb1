// Package reportcache provides cached-report optimization for query handlers.
//
// Reports are projections over current items and loan history. Computing them
// on every dashboard refresh hammers the store, so the wrapper keeps the last
// computed report as a snapshot and serves it while it is still valid. A
// snapshot is valid while the transition journal has not moved past the
// sequence it was computed at and, for time-sensitive reports, while it is
// younger than the configured max age.
package reportcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	// reportSaveTimeout is the timeout for snapshot save operations to prevent hanging.
	reportSaveTimeout = 60 * time.Second
)

var (
	// ErrStoreNotReportCacheCapable is returned when the base handler's store doesn't support report snapshots.
	ErrStoreNotReportCacheCapable = errors.New("base handler's store does not support report snapshot operations")
)

// SavesAndLoadsReportSnapshots defines the interface needed for report-cache operations.
// The circulation store engines implement it natively; a separate redis-backed
// store can be plugged in via WithReportStore for deployments that keep report
// caches out of the primary database.
type SavesAndLoadsReportSnapshots interface {
	LoadReportSnapshot(ctx context.Context, reportType string, filterHash string) (*circstore.ReportSnapshot, error)
	SaveReportSnapshot(ctx context.Context, snapshot circstore.ReportSnapshot) error
	DeleteReportSnapshot(ctx context.Context, reportType string, filterHash string) error
}

// FilterHashFunc computes the cache key fragment identifying a query's parameters.
// Parameter-less queries return a constant; parameterized queries hash their
// filter so distinct parameters get distinct cache entries.
type FilterHashFunc[Q shell.Query] func(query Q) string

// QueryWrapper provides cached-report optimization for any query handler.
// It wraps a base handler, serves valid cached reports directly, and
// recomputes through the base handler when the cache misses or goes stale.
// Concurrent recomputations of the same report are deduplicated so a
// dashboard burst costs one projection, not one per request.
type QueryWrapper[Q shell.Query, R shell.QueryResult] struct {
	baseHandler      shell.QueryHandler[Q, R]
	journalReader    shell.ReadsJournalSequence
	reportStore      SavesAndLoadsReportSnapshots
	filterHashFunc   FilterHashFunc[Q]
	maxAge           time.Duration
	flight           singleflight.Group
	metricsCollector shell.MetricsCollector
	tracingCollector shell.TracingCollector
	contextualLogger shell.ContextualLogger
	logger           shell.Logger
}

// NewQueryWrapper creates a new cache-aware wrapper around the base query handler.
// Observability components and the journal reader are extracted from the base
// handler. By default the report snapshots live in the same store the journal
// is read from; returns ErrStoreNotReportCacheCapable if that store cannot
// hold snapshots and no WithReportStore option was given.
func NewQueryWrapper[Q shell.Query, R shell.QueryResult](
	baseHandler shell.QueryHandler[Q, R],
	filterHashFunc FilterHashFunc[Q],
	opts ...Option[Q, R],
) (*QueryWrapper[Q, R], error) {
	wrapper := &QueryWrapper[Q, R]{
		baseHandler:      baseHandler,
		journalReader:    baseHandler.ExposeJournalReader(),
		filterHashFunc:   filterHashFunc,
		metricsCollector: baseHandler.ExposeMetricsCollector(),
		tracingCollector: baseHandler.ExposeTracingCollector(),
		contextualLogger: baseHandler.ExposeContextualLogger(),
		logger:           baseHandler.ExposeLogger(),
	}

	for _, opt := range opts {
		if err := opt(wrapper); err != nil {
			return nil, err
		}
	}

	if wrapper.reportStore == nil {
		snapshotCapableStore, ok := wrapper.journalReader.(SavesAndLoadsReportSnapshots)
		if !ok {
			return nil, errors.Join(
				ErrStoreNotReportCacheCapable,
				fmt.Errorf("store type %T does not support report snapshots", wrapper.journalReader),
			)
		}

		wrapper.reportStore = snapshotCapableStore
	}

	return wrapper, nil
}

// Option defines a functional option for configuring QueryWrapper.
type Option[Q shell.Query, R shell.QueryResult] func(*QueryWrapper[Q, R]) error

// WithReportStore sets a dedicated report snapshot store, e.g. a redis cache,
// instead of the circulation store the base handler reads from.
func WithReportStore[Q shell.Query, R shell.QueryResult](store SavesAndLoadsReportSnapshots) Option[Q, R] {
	return func(w *QueryWrapper[Q, R]) error {
		if store == nil {
			return errors.New("report store must not be nil")
		}

		w.reportStore = store
		return nil
	}
}

// WithMaxAge bounds the age of served reports. Time-sensitive reports whose
// content changes with the clock even when no transition commits (overdue
// buckets) need this; zero disables the age check.
func WithMaxAge[Q shell.Query, R shell.QueryResult](maxAge time.Duration) Option[Q, R] {
	return func(w *QueryWrapper[Q, R]) error {
		if maxAge < 0 {
			return errors.New("max age must not be negative")
		}

		w.maxAge = maxAge
		return nil
	}
}

// Handle executes the cache-aware query processing workflow.
// It serves a valid cached report directly and recomputes through the base
// handler otherwise, caching the fresh result for subsequent calls.
func (w *QueryWrapper[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	// Start query handler instrumentation
	queryStart := time.Now()
	queryType := query.QueryType()
	ctx, span := shell.StartQuerySpan(ctx, w.tracingCollector, queryType)
	shell.LogQueryStart(ctx, w.logger, w.contextualLogger, queryType)

	reportType := query.ReportType()
	filterHash := w.filterHashFunc(query)

	// Validity check needs the current journal position
	currentSequence, err := w.journalReader.LatestJournalSequence(ctx)
	if err != nil {
		return w.recordFallbackAndExecute(ctx, query, queryStart, span, shell.CacheReasonError)
	}

	// Cache Load phase
	snapshot, err := w.executeSnapshotLoad(ctx, reportType, filterHash)
	if err != nil {
		return w.recordFallbackAndExecute(ctx, query, queryStart, span, shell.CacheReasonError)
	}

	if snapshot == nil {
		return w.recomputeAndCache(ctx, query, queryStart, span, shell.CacheReasonMiss)
	}

	// Staleness checks: journal moved on, or the report outlived its max age
	if snapshot.SequenceNumber < currentSequence {
		w.logCacheStale(ctx, reportType, snapshot.SequenceNumber, currentSequence)
		return w.recomputeAndCache(ctx, query, queryStart, span, shell.CacheReasonStaleSequence)
	}

	if w.maxAge > 0 && time.Since(snapshot.CreatedAt) > w.maxAge {
		w.logCacheStale(ctx, reportType, snapshot.SequenceNumber, currentSequence)
		return w.recomputeAndCache(ctx, query, queryStart, span, shell.CacheReasonStaleAge)
	}

	// Deserialization phase
	var result R
	if err := jsoniter.ConfigFastest.Unmarshal(snapshot.Data, &result); err != nil {
		w.recordCacheError(ctx, "snapshot deserialization", err)
		return w.recomputeAndCache(ctx, query, queryStart, span, shell.CacheReasonDeserializeError)
	}

	w.recordQuerySuccess(ctx, queryType, time.Since(queryStart), span, shell.CacheReasonHit)

	return result, nil
}

// BuildReportType returns the report type string for this handler.
// Tests use this to query for saved snapshots.
func (w *QueryWrapper[Q, R]) BuildReportType(query Q) string {
	return query.ReportType()
}

/*** Phase execution methods for clean observability patterns ***/

// executeSnapshotLoad handles the snapshot loading phase with proper observability.
func (w *QueryWrapper[Q, R]) executeSnapshotLoad(
	ctx context.Context,
	reportType string,
	filterHash string,
) (*circstore.ReportSnapshot, error) {
	snapshot, err := w.reportStore.LoadReportSnapshot(ctx, reportType, filterHash)

	if err != nil {
		// Actual error (not just "not found")
		w.recordCacheError(ctx, "snapshot load", err)
		return nil, err
	}

	if snapshot == nil {
		// Snapshot isn't found (normal case)
		if w.contextualLogger != nil {
			w.contextualLogger.InfoContext(ctx, shell.LogMsgCacheMiss, shell.LogAttrReportType, reportType)
		} else if w.logger != nil {
			w.logger.Info(shell.LogMsgCacheMiss, shell.LogAttrReportType, reportType)
		}
		return nil, nil
	}

	return snapshot, nil
}

// recomputeAndCache recomputes the report through the base handler and caches
// the result. Concurrent recomputations for the same report key are collapsed
// into a single base handler call whose result all callers share.
func (w *QueryWrapper[Q, R]) recomputeAndCache(
	ctx context.Context,
	query Q,
	queryStart time.Time,
	span shell.SpanContext,
	cacheReason string,
) (R, error) {
	reportType := query.ReportType()
	filterHash := w.filterHashFunc(query)
	flightKey := reportType + "/" + filterHash

	flightResult, err, _ := w.flight.Do(flightKey, func() (interface{}, error) {
		result, handleErr := w.baseHandler.Handle(ctx, query)
		if handleErr != nil {
			return nil, handleErr
		}

		w.saveReportSnapshot(ctx, reportType, filterHash, result)

		return result, nil
	})

	duration := time.Since(queryStart)

	if err != nil {
		// The base handler records its own failure metrics; the wrapper
		// finishes its span and is done.
		shell.FinishQuerySpan(w.tracingCollector, span, shell.StatusError, duration, err)

		var zero R
		return zero, err
	}

	result := flightResult.(R)

	shell.FinishQuerySpan(w.tracingCollector, span, shell.StatusSuccess, duration, nil)
	w.logCacheAwareSuccess(ctx, query.QueryType(), duration, cacheReason)

	return result, nil
}

// recordFallbackAndExecute handles cache infrastructure failures: the base
// handler serves the query directly and nothing is cached.
func (w *QueryWrapper[Q, R]) recordFallbackAndExecute(
	ctx context.Context,
	query Q,
	queryStart time.Time,
	span shell.SpanContext,
	fallbackReason string,
) (R, error) {
	if w.contextualLogger != nil {
		w.contextualLogger.InfoContext(ctx, shell.LogMsgCacheFallback, shell.LogAttrReason, fallbackReason)
	} else if w.logger != nil {
		w.logger.Info(shell.LogMsgCacheFallback, shell.LogAttrReason, fallbackReason)
	}

	result, err := w.baseHandler.Handle(ctx, query)

	duration := time.Since(queryStart)

	if err != nil {
		shell.FinishQuerySpan(w.tracingCollector, span, shell.StatusError, duration, err)
		return result, err
	}

	shell.FinishQuerySpan(w.tracingCollector, span, shell.StatusSuccess, duration, nil)
	w.logCacheAwareSuccess(ctx, query.QueryType(), duration, fallbackReason)

	return result, nil
}

// saveReportSnapshot saves the recomputed report for subsequent calls.
// This is called synchronously to ensure reliable snapshot storage.
// Uses a timeout inherited from the parent context to avoid hanging.
func (w *QueryWrapper[Q, R]) saveReportSnapshot(
	parentCtx context.Context,
	reportType string,
	filterHash string,
	result R,
) {
	ctx, cancel := context.WithTimeout(parentCtx, reportSaveTimeout)
	defer cancel()

	data, err := jsoniter.ConfigFastest.Marshal(result)
	if err != nil {
		w.recordCacheError(ctx, "JSON serialization", err)
		return
	}

	snapshot, err := circstore.BuildReportSnapshot(
		reportType,
		filterHash,
		result.GetSequenceNumber(),
		data,
	)
	if err != nil {
		w.recordCacheError(ctx, "snapshot build", err)
		return
	}

	if err := w.reportStore.SaveReportSnapshot(ctx, snapshot); err != nil {
		w.recordCacheError(ctx, "snapshot save", err)
		return
	}

	if w.contextualLogger != nil {
		w.contextualLogger.InfoContext(ctx, shell.LogMsgCacheSaved,
			shell.LogAttrReportType, reportType,
			shell.LogAttrSequence, result.GetSequenceNumber())
	} else if w.logger != nil {
		w.logger.Info(shell.LogMsgCacheSaved,
			shell.LogAttrReportType, reportType,
			shell.LogAttrSequence, result.GetSequenceNumber())
	}
}

/*** Observability helper methods ***/

// recordQuerySuccess records a query served from cache with observability.
func (w *QueryWrapper[Q, R]) recordQuerySuccess(
	ctx context.Context,
	queryType string,
	duration time.Duration,
	span shell.SpanContext,
	cacheReason string,
) {
	// Served from cache: the base handler never ran, so the wrapper owns the
	// metrics for this call.
	shell.RecordQueryMetrics(ctx, w.metricsCollector, queryType, shell.StatusSuccess, duration, cacheReason)
	shell.FinishQuerySpan(w.tracingCollector, span, shell.StatusSuccess, duration, nil)

	if w.contextualLogger != nil {
		w.contextualLogger.InfoContext(ctx, shell.LogMsgCacheHit,
			shell.LogAttrQueryType, queryType,
			shell.LogAttrDurationMS, shell.ToMilliseconds(duration))
	} else if w.logger != nil {
		w.logger.Info(shell.LogMsgCacheHit,
			shell.LogAttrQueryType, queryType,
			shell.LogAttrDurationMS, shell.ToMilliseconds(duration))
	}
}

// logCacheAwareSuccess logs a completed recompute or fallback with its cache reason.
func (w *QueryWrapper[Q, R]) logCacheAwareSuccess(
	ctx context.Context,
	queryType string,
	duration time.Duration,
	cacheReason string,
) {
	args := []any{
		shell.LogAttrQueryType, queryType,
		shell.LogAttrCacheStatus, cacheReason,
		shell.LogAttrDurationMS, shell.ToMilliseconds(duration),
	}

	if w.contextualLogger != nil {
		w.contextualLogger.InfoContext(ctx, shell.LogMsgCachedQuerySuccess, args...)
	} else if w.logger != nil {
		w.logger.Info(shell.LogMsgCachedQuerySuccess, args...)
	}
}

// logCacheStale logs a cached report that is no longer valid.
func (w *QueryWrapper[Q, R]) logCacheStale(
	ctx context.Context,
	reportType string,
	cachedSequence circstore.JournalSequenceUint,
	currentSequence circstore.JournalSequenceUint,
) {
	args := []any{
		shell.LogAttrReportType, reportType,
		shell.LogAttrSequence, cachedSequence,
		"journal_sequence", currentSequence,
	}

	if w.contextualLogger != nil {
		w.contextualLogger.InfoContext(ctx, shell.LogMsgCacheStale, args...)
	} else if w.logger != nil {
		w.logger.Info(shell.LogMsgCacheStale, args...)
	}
}

// recordCacheError handles error recording and logging for cache operations.
func (w *QueryWrapper[Q, R]) recordCacheError(
	ctx context.Context,
	operation string,
	err error,
) {
	if w.contextualLogger != nil {
		w.contextualLogger.ErrorContext(ctx, shell.LogMsgCacheError,
			shell.LogAttrOperation, operation,
			shell.LogAttrError, err.Error())
	} else if w.logger != nil {
		w.logger.Error(shell.LogMsgCacheError,
			shell.LogAttrOperation, operation,
			shell.LogAttrError, err.Error())
	}
}
