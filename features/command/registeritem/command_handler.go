package registeritem

import (
	"context"

	"github.com/google/uuid"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

// CirculationStore defines the interface needed by the CommandHandler for store operations.
type CirculationStore interface {
	LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error)
	ExecuteTransition(ctx context.Context, record circstore.TransitionRecord) error
}

// CommandHandler orchestrates the complete command processing workflow with pure business logic and retry.
// It handles the core registry workflow: Authorize -> Load -> Decide -> Execute.
// External wrappers handle all observability concerns.
type CommandHandler struct {
	store        CirculationStore
	policies     core.PolicySet
	capabilities shell.CapabilityChecker
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(
	store CirculationStore,
	policies core.PolicySet,
	capabilities shell.CapabilityChecker,
	opts ...Option,
) CommandHandler {
	handler := CommandHandler{
		store:        store,
		policies:     policies,
		capabilities: capabilities,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the complete command processing workflow with retry logic.
// The capability check runs once, before any store work: a denial is final
// and a checker failure fails closed rather than open.
//
// Resilience: Implements exponential backoff retry logic for concurrency conflicts.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	allowed, checkErr := h.capabilities.CanPerform(ctx, command.Actor, shell.ActionRegisterItem)
	if checkErr != nil {
		return shell.HandlerResult{}, checkErr
	}

	if !allowed {
		return shell.HandlerResult{}, shell.ErrActionNotPermitted
	}

	var isIdempotent bool

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		idempotent, execErr := h.executeCommand(retryCtx, command)
		isIdempotent = idempotent

		return execErr
	}, h.retryOptions...)

	if isIdempotent {
		return shell.NewIdempotentResult(retryMetrics), err
	}

	if err != nil {
		return shell.NewErrorResult(retryMetrics), err
	}

	return shell.NewSuccessResult(retryMetrics), nil
}

// executeCommand contains the core command processing logic that can be retried.
func (h CommandHandler) executeCommand(ctx context.Context, command Command) (bool, error) {
	ctx = circstore.WithStrongConsistency(ctx)

	// Load phase
	_, found, err := h.store.LoadItem(ctx, command.ItemCode)
	if err != nil {
		return false, err
	}

	// Business logic phase - delegate to pure core function
	result := Decide(state{itemExists: found}, command, h.policies)

	if rejection := result.HasError(); rejection != nil {
		return false, rejection
	}

	if !result.HasTransitionToExecute() {
		return true, nil // Idempotent success - nothing to execute
	}

	// Execute phase - insert the new item row (expected version zero)
	registered := result.Transition.(core.ItemRegistered)

	newItem, applyErr := core.ApplyTransition(core.Item{}, registered)
	if applyErr != nil {
		return false, applyErr
	}

	newRecord, recordErr := shell.ItemRecordFrom(newItem, 1, registered.OccurredAt)
	if recordErr != nil {
		return false, recordErr
	}

	uid := uuid.New()
	metadata := shell.BuildTransitionMetadata(uid, uid, uid)

	record, mapErr := shell.TransitionRecordFrom(
		registered,
		0,
		newRecord,
		circstore.LoanActionNone,
		circstore.LoanRecord{},
		metadata,
	)
	if mapErr != nil {
		return false, mapErr
	}

	if execErr := h.store.ExecuteTransition(ctx, record); execErr != nil {
		return false, execErr
	}

	return false, nil
}
