package returnitem

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
	LoadOpenLoan(ctx context.Context, itemCode string) (circstore.LoanRecord, bool, error)
	ExecuteTransition(ctx context.Context, record circstore.TransitionRecord) error
}

// CommandHandler orchestrates the complete command processing workflow with pure business logic and retry.
// It handles the core circulation workflow: Load -> Decide -> Execute.
// External wrappers handle all observability concerns.
type CommandHandler struct {
	store        CirculationStore
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
func NewCommandHandler(store CirculationStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store: store,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the complete command processing workflow with retry logic.
// It delegates business logic to executeCommand and handles retry with exponential backoff.
// Returns HandlerResult containing business outcomes and execution metadata for observability.
//
// Resilience: Implements exponential backoff retry logic for concurrency conflicts.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
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
	itemRecord, found, err := h.store.LoadItem(ctx, command.ItemCode)
	if err != nil {
		return false, err
	}

	currentState := state{itemFound: found}

	if found {
		item, mapErr := shell.ItemFromRecord(itemRecord)
		if mapErr != nil {
			return false, mapErr
		}

		currentState.item = item
	}

	// Business logic phase - delegate to pure core function
	result := Decide(currentState, command)

	if rejection := result.HasError(); rejection != nil {
		return false, rejection
	}

	if !result.HasTransitionToExecute() {
		return true, nil // Idempotent success - nothing to execute
	}

	// Execute phase - close the open loan together with the item write
	openLoan, loanFound, loanErr := h.store.LoadOpenLoan(ctx, command.ItemCode)
	if loanErr != nil {
		return false, loanErr
	}

	if !loanFound {
		// The loan vanished between the item read and here, so a concurrent
		// return has won the race; surface a conflict and let the retry
		// re-read and reject NoOpenLoan cleanly.
		return false, circstore.ErrConcurrencyConflict
	}

	returned := result.Transition.(core.ItemReturned)

	nextItem, applyErr := core.ApplyTransition(currentState.item, returned)
	if applyErr != nil {
		return false, applyErr
	}

	nextRecord, recordErr := shell.ItemRecordFrom(nextItem, itemRecord.Version+1, returned.OccurredAt)
	if recordErr != nil {
		return false, recordErr
	}

	closedLoan := openLoan
	closedLoan.ReturnedAt = returned.OccurredAt

	uid := uuid.New()
	metadata := shell.BuildTransitionMetadata(uid, uid, uid)

	record, mapErr := shell.TransitionRecordFrom(
		returned,
		itemRecord.Version,
		nextRecord,
		circstore.LoanActionClose,
		closedLoan,
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
