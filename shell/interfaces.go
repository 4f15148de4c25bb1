package shell

import (
	"context"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ReadsJournalSequence defines the interface needed by report caching to judge snapshot freshness.
// This abstraction is shared to support report-cache wrapping while maintaining type safety.
// Note: This represents a pragmatic trade-off in the vertical slice architecture to enable
// cross-cutting report caching without duplicating wrapper logic in each feature slice.
type ReadsJournalSequence interface {
	LatestJournalSequence(ctx context.Context) (circstore.JournalSequenceUint, error)
}

// ExposesReportCacheDependencies provides access to internal components needed for report-cache wrapping.
// This interface represents a pragmatic trade-off in the vertical slice architecture to enable
// cross-cutting report caching without duplicating wrapper logic in each feature slice.
type ExposesReportCacheDependencies interface {
	ExposeJournalReader() ReadsJournalSequence
	ExposeMetricsCollector() MetricsCollector
	ExposeTracingCollector() TracingCollector
	ExposeContextualLogger() ContextualLogger
	ExposeLogger() Logger
}

// Query represents the contract for all query types in the circulation application.
// Each query encapsulates the intent and parameters needed to compute a specific report.
// The QueryType method enables polymorphic handling and observability instrumentation.
// The ReportType method names the cached projection a query produces.
// Queries can range from simple parameter-less requests to complex multi-parameter filters.
type Query interface {
	QueryType() string
	ReportType() string
}

// QueryResult represents the contract for all query result types (reports).
// Each result encapsulates a projection computed from current items and loan history.
// The GetSequenceNumber method returns the journal sequence the report was computed at,
// enabling consistency checking for cached report snapshots.
// This interface ensures all reports can participate in the report-cache workflow.
type QueryResult interface {
	GetSequenceNumber() circstore.JournalSequenceUint
}

// CoreQueryHandler defines the contract for components that process queries with pure business logic.
// Handlers orchestrate the complete query workflow: loading records, mapping, and projecting.
// The generic parameters Q and R ensure type safety between queries and their corresponding results.
// Implementations should focus purely on business logic without caching concerns.
// This interface is designed to be wrapped with report-cache decorators for complete functionality.
type CoreQueryHandler[Q Query, R QueryResult] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// QueryHandler defines the contract for components that process queries and return reports.
// Handlers orchestrate the complete query workflow: loading records, mapping, and projecting.
// The generic parameters Q and R ensure type safety between queries and their corresponding results.
// Implementations handle infrastructure concerns (store access, observability) while delegating
// business logic to pure projection functions.
type QueryHandler[Q Query, R QueryResult] interface {
	Handle(ctx context.Context, query Q) (R, error)
	ExposesReportCacheDependencies
}

// Command represents the contract for all command types in the circulation application.
// Each command encapsulates the intent and parameters needed to execute a specific business operation.
// The CommandType method enables polymorphic handling and observability instrumentation.
// Commands can range from simple parameter-less requests to complex multi-parameter operations.
type Command interface {
	CommandType() string
}

// CoreCommandHandler defines the contract for components that process commands with pure business logic.
// Handlers orchestrate the complete command workflow: loading state, mapping, business logic, and committing.
// The generic parameter C ensures type safety between commands and their corresponding handlers.
// Implementations should focus purely on business logic without observability or infrastructure concerns.
// This interface is designed to be wrapped with observability decorators for complete functionality.
// Handlers return HandlerResult containing business outcomes (idempotency) and execution metadata (retry info).
type CoreCommandHandler[C Command] interface {
	Handle(ctx context.Context, command C) (HandlerResult, error)
}

// CommandHandler defines the contract for command handlers that return only errors (compatibility interface).
// This interface is used for callers that do not care about idempotency or retry metadata.
// Typically implemented by wrapper types that convert (HandlerResult, error) to just error.
type CommandHandler[C Command] interface {
	Handle(ctx context.Context, command C) error
}

// Action identifies a privileged catalog operation subject to capability checks.
type Action string

const (
	// ActionRegisterItem guards adding new items to the registry.
	ActionRegisterItem Action = "RegisterItem"

	// ActionRetireItem guards permanently removing items from circulation.
	ActionRetireItem Action = "RetireItem"

	// ActionSetItemCondition guards maintenance and lost/found status changes.
	ActionSetItemCondition Action = "SetItemCondition"
)

// CapabilityChecker decides whether an actor may perform a privileged catalog
// operation. Identity (who the actor is) stays outside this module; the
// checker only answers the permission question.
//
// A (false, nil) answer is a clean denial; an error means the check itself
// could not be performed and the command must fail rather than fall open.
type CapabilityChecker interface {
	CanPerform(ctx context.Context, actor core.ActorIDString, action Action) (bool, error)
}

// StaticCapabilityChecker is a map-backed CapabilityChecker for demos and
// tests. The zero value denies everything.
type StaticCapabilityChecker struct {
	grants map[core.ActorIDString]map[Action]bool
}

// NewStaticCapabilityChecker creates a checker that grants the given actors
// all privileged actions. Useful for demo setups with a small staff list.
func NewStaticCapabilityChecker(actors ...core.ActorIDString) *StaticCapabilityChecker {
	checker := &StaticCapabilityChecker{
		grants: make(map[core.ActorIDString]map[Action]bool, len(actors)),
	}

	for _, actor := range actors {
		checker.grants[actor] = map[Action]bool{
			ActionRegisterItem:     true,
			ActionRetireItem:       true,
			ActionSetItemCondition: true,
		}
	}

	return checker
}

// Grant allows the actor to perform the given actions.
func (c *StaticCapabilityChecker) Grant(actor core.ActorIDString, actions ...Action) {
	if c.grants == nil {
		c.grants = make(map[core.ActorIDString]map[Action]bool)
	}

	if c.grants[actor] == nil {
		c.grants[actor] = make(map[Action]bool, len(actions))
	}

	for _, action := range actions {
		c.grants[actor][action] = true
	}
}

// CanPerform implements CapabilityChecker.
func (c *StaticCapabilityChecker) CanPerform(_ context.Context, actor core.ActorIDString, action Action) (bool, error) {
	if c == nil || c.grants == nil {
		return false, nil
	}

	return c.grants[actor][action], nil
}
