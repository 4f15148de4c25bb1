package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/circstore/badgerengine"
	"github.com/stacksys/circulation-tracker-go/circstore/oteladapters"
	"github.com/stacksys/circulation-tracker-go/circstore/postgresengine"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/registeritem"
	"github.com/stacksys/circulation-tracker-go/features/command/renewloan"
	"github.com/stacksys/circulation-tracker-go/features/command/retireitem"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/features/command/setitemcondition"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowerloans"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowingtrend"
	"github.com/stacksys/circulation-tracker-go/features/query/itemtypedistribution"
	"github.com/stacksys/circulation-tracker-go/features/query/listitems"
	"github.com/stacksys/circulation-tracker-go/features/query/overduereport"
	"github.com/stacksys/circulation-tracker-go/httpapi"
	"github.com/stacksys/circulation-tracker-go/scan"
	"github.com/stacksys/circulation-tracker-go/shell"
	"github.com/stacksys/circulation-tracker-go/shell/config"
	"github.com/stacksys/circulation-tracker-go/shell/observable"
	"github.com/stacksys/circulation-tracker-go/shell/reportcache"
)

// overdueReportMaxAge bounds the overdue report cache. Lateness changes with
// the clock even when no transition commits, so the report cannot be served
// from cache indefinitely.
const overdueReportMaxAge = 5 * time.Minute

// filterHashAll is the cache key fragment for parameter-less reports.
const filterHashAll = "all"

// circulationStore is the full store surface the service wires against.
// Both engines implement it.
type circulationStore interface {
	LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error)
	ListItems(ctx context.Context) (circstore.ItemRecords, error)
	LoadOpenLoan(ctx context.Context, itemCode string) (circstore.LoanRecord, bool, error)
	CountOpenLoans(ctx context.Context, borrower string, itemType string) (int, error)
	QueryLoans(ctx context.Context, filter circstore.LoanFilter) (circstore.LoanRecords, error)
	LatestJournalSequence(ctx context.Context) (circstore.JournalSequenceUint, error)
	ExecuteTransition(ctx context.Context, record circstore.TransitionRecord) error
	LoadReportSnapshot(ctx context.Context, reportType string, filterHash string) (*circstore.ReportSnapshot, error)
	SaveReportSnapshot(ctx context.Context, snapshot circstore.ReportSnapshot) error
	DeleteReportSnapshot(ctx context.Context, reportType string, filterHash string) error
}

// observability holds the telemetry adapters for the process. The zero value
// disables all instrumentation.
type observability struct {
	providers        *config.ObservabilityProviders
	metrics          shell.MetricsCollector
	tracing          shell.TracingCollector
	contextualLogger shell.ContextualLogger
}

func newObservability(enabled bool) observability {
	if !enabled {
		return observability{}
	}

	providers, err := config.NewObservabilityConfig("circulationd")
	if err != nil {
		log.Printf("Failed to create observability providers, running without telemetry: %v", err)
		return observability{}
	}

	return observability{
		providers:        providers,
		metrics:          oteladapters.NewMetricsCollector(otel.Meter("circulationd")),
		tracing:          oteladapters.NewTracingCollector(otel.Tracer("circulationd")),
		contextualLogger: oteladapters.NewSlogBridgeLogger("circulationd"),
	}
}

func (o observability) shutdown() {
	if o.providers == nil {
		return
	}

	if err := o.providers.Shutdown(); err != nil {
		log.Printf("Error during observability shutdown: %v", err)
	}
}

// openCirculationStore creates the configured storage engine and returns it
// with its cleanup function.
func openCirculationStore(ctx context.Context, cfg Config, obs observability) (circulationStore, func(), error) {
	switch cfg.StorageEngine {
	case "postgres":
		return openPostgresStore(ctx, cfg, obs)
	case "badger":
		return openBadgerStore(cfg, obs)
	default:
		return nil, nil, fmt.Errorf("unknown storage engine %q", cfg.StorageEngine)
	}
}

func openPostgresStore(ctx context.Context, cfg Config, obs observability) (circulationStore, func(), error) {
	var options []postgresengine.Option
	if obs.metrics != nil {
		options = append(options, postgresengine.WithMetrics(obs.metrics))
	}
	if obs.tracing != nil {
		options = append(options, postgresengine.WithTracing(obs.tracing))
	}
	if obs.contextualLogger != nil {
		options = append(options, postgresengine.WithContextualLogger(obs.contextualLogger))
	}

	if !cfg.ReplicaEnabled {
		pool, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolSingleConfig())
		if err != nil {
			return nil, nil, err
		}

		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			return nil, nil, pingErr
		}

		store, err := postgresengine.NewCirculationStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil
	}

	primary, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolPrimaryConfig())
	if err != nil {
		return nil, nil, err
	}

	replica, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolReplicaConfig())
	if err != nil {
		primary.Close()
		return nil, nil, err
	}

	if pingErr := primary.Ping(ctx); pingErr != nil {
		primary.Close()
		replica.Close()
		return nil, nil, pingErr
	}

	store, err := postgresengine.NewCirculationStoreFromPGXPoolWithReplica(primary, replica, options...)
	if err != nil {
		primary.Close()
		replica.Close()
		return nil, nil, err
	}

	closePools := func() {
		primary.Close()
		replica.Close()
	}

	return store, closePools, nil
}

func openBadgerStore(cfg Config, obs observability) (circulationStore, func(), error) {
	var options []badgerengine.Option
	if obs.metrics != nil {
		options = append(options, badgerengine.WithMetrics(obs.metrics))
	}
	if obs.tracing != nil {
		options = append(options, badgerengine.WithTracing(obs.tracing))
	}
	if obs.contextualLogger != nil {
		options = append(options, badgerengine.WithContextualLogger(obs.contextualLogger))
	}

	store, err := badgerengine.OpenCirculationStore(cfg.BadgerPath, options...)
	if err != nil {
		return nil, nil, err
	}

	closeStore := func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("Error closing badger store: %v", closeErr)
		}
	}

	return store, closeStore, nil
}

// buildAPI wires the feature slices, their observability wrappers, and the
// report caches into the HTTP facade.
func buildAPI(cfg Config, store circulationStore, policies core.PolicySet, obs observability) (*httpapi.API, error) {
	capabilities := shell.NewStaticCapabilityChecker(cfg.StaffActors...)

	checkOut, err := observable.NewCommandWrapper[checkoutitem.Command](
		checkoutitem.NewCommandHandler(store, policies),
		commandObservability[checkoutitem.Command](obs)...,
	)
	if err != nil {
		return nil, err
	}

	returnIt, err := observable.NewCommandWrapper[returnitem.Command](
		returnitem.NewCommandHandler(store),
		commandObservability[returnitem.Command](obs)...,
	)
	if err != nil {
		return nil, err
	}

	renew, err := observable.NewCommandWrapper[renewloan.Command](
		renewloan.NewCommandHandler(store, policies),
		commandObservability[renewloan.Command](obs)...,
	)
	if err != nil {
		return nil, err
	}

	register, err := observable.NewCommandWrapper[registeritem.Command](
		registeritem.NewCommandHandler(store, policies, capabilities),
		commandObservability[registeritem.Command](obs)...,
	)
	if err != nil {
		return nil, err
	}

	retire, err := observable.NewCommandWrapper[retireitem.Command](
		retireitem.NewCommandHandler(store, capabilities),
		commandObservability[retireitem.Command](obs)...,
	)
	if err != nil {
		return nil, err
	}

	setCondition, err := observable.NewCommandWrapper[setitemcondition.Command](
		setitemcondition.NewCommandHandler(store, capabilities),
		commandObservability[setitemcondition.Command](obs)...,
	)
	if err != nil {
		return nil, err
	}

	reportStore, err := buildReportStore(cfg)
	if err != nil {
		return nil, err
	}

	listHandler, err := listitems.NewQueryHandler(store,
		listitems.WithMetrics(obs.metrics),
		listitems.WithTracing(obs.tracing),
		listitems.WithContextualLogging(obs.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	borrowerLoansHandler, err := borrowerloans.NewQueryHandler(store,
		borrowerloans.WithMetrics(obs.metrics),
		borrowerloans.WithTracing(obs.tracing),
		borrowerloans.WithContextualLogging(obs.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	overdueHandler, err := overduereport.NewQueryHandler(store,
		overduereport.WithMetrics(obs.metrics),
		overduereport.WithTracing(obs.tracing),
		overduereport.WithContextualLogging(obs.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	overdueCached, err := reportcache.NewQueryWrapper[overduereport.Query, overduereport.OverdueReport](
		overdueHandler,
		func(overduereport.Query) string { return overduereport.BuildLoanFilter().Hash() },
		reportCacheOptions[overduereport.Query, overduereport.OverdueReport](reportStore, overdueReportMaxAge)...,
	)
	if err != nil {
		return nil, err
	}

	distributionHandler, err := itemtypedistribution.NewQueryHandler(store,
		itemtypedistribution.WithMetrics(obs.metrics),
		itemtypedistribution.WithTracing(obs.tracing),
		itemtypedistribution.WithContextualLogging(obs.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	distributionCached, err := reportcache.NewQueryWrapper[itemtypedistribution.Query, itemtypedistribution.ItemTypeDistribution](
		distributionHandler,
		func(itemtypedistribution.Query) string { return filterHashAll },
		reportCacheOptions[itemtypedistribution.Query, itemtypedistribution.ItemTypeDistribution](reportStore, 0)...,
	)
	if err != nil {
		return nil, err
	}

	trendHandler, err := borrowingtrend.NewQueryHandler(store,
		borrowingtrend.WithMetrics(obs.metrics),
		borrowingtrend.WithTracing(obs.tracing),
		borrowingtrend.WithContextualLogging(obs.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	trendCached, err := reportcache.NewQueryWrapper[borrowingtrend.Query, borrowingtrend.BorrowingTrend](
		trendHandler,
		func(query borrowingtrend.Query) string { return borrowingtrend.BuildLoanFilter(query).Hash() },
		reportCacheOptions[borrowingtrend.Query, borrowingtrend.BorrowingTrend](reportStore, 0)...,
	)
	if err != nil {
		return nil, err
	}

	intake := scan.NewIntake(checkOut, returnIt, store)

	apiOptions := []httpapi.Option{}
	if obs.contextualLogger != nil {
		apiOptions = append(apiOptions, httpapi.WithContextualLogging(obs.contextualLogger))
	}

	return httpapi.NewAPI(httpapi.Dependencies{
		CheckOutItem:         checkOut,
		ReturnItem:           returnIt,
		RenewLoan:            renew,
		RegisterItem:         register,
		RetireItem:           retire,
		SetItemCondition:     setCondition,
		ScanIntake:           intake,
		ListItems:            listHandler,
		OverdueReport:        overdueCached,
		ItemTypeDistribution: distributionCached,
		BorrowingTrend:       trendCached,
		BorrowerLoans:        borrowerLoansHandler,
		Items:                store,
		Journal:              store,
	}, apiOptions...)
}

// buildReportStore returns the dedicated report snapshot store, or nil when
// snapshots stay in the circulation store.
func buildReportStore(cfg Config) (reportcache.SavesAndLoadsReportSnapshots, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})

	return reportcache.NewRedisStore(client)
}

func reportCacheOptions[Q shell.Query, R shell.QueryResult](
	reportStore reportcache.SavesAndLoadsReportSnapshots,
	maxAge time.Duration,
) []reportcache.Option[Q, R] {
	var options []reportcache.Option[Q, R]

	if reportStore != nil {
		options = append(options, reportcache.WithReportStore[Q, R](reportStore))
	}

	if maxAge > 0 {
		options = append(options, reportcache.WithMaxAge[Q, R](maxAge))
	}

	return options
}

func commandObservability[C shell.Command](obs observability) []observable.CommandOption[C] {
	var options []observable.CommandOption[C]

	if obs.metrics != nil {
		options = append(options, observable.WithCommandMetrics[C](obs.metrics))
	}

	if obs.tracing != nil {
		options = append(options, observable.WithCommandTracing[C](obs.tracing))
	}

	if obs.contextualLogger != nil {
		options = append(options, observable.WithCommandContextualLogging[C](obs.contextualLogger))
	}

	return options
}
