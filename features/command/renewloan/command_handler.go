package renewloan

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
	policies     core.PolicySet
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
func NewCommandHandler(store CirculationStore, policies core.PolicySet, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:    store,
		policies: policies,
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
	policy := core.BorrowingPolicy{}

	if found {
		item, mapErr := shell.ItemFromRecord(itemRecord)
		if mapErr != nil {
			return false, mapErr
		}

		currentState.item = item
		policy = h.policies.For(itemRecord.ItemType)

		if item.IsOnLoan() {
			openLoan, loanFound, loanErr := h.store.LoadOpenLoan(ctx, command.ItemCode)
			if loanErr != nil {
				return false, loanErr
			}

			if !loanFound {
				// A concurrent return won the race between the two reads;
				// surface a conflict so the retry re-reads a settled state.
				return false, circstore.ErrConcurrencyConflict
			}

			currentState.loan = shell.LoanFromRecord(openLoan)
		}
	}

	// Business logic phase - delegate to pure core function
	result := Decide(currentState, command, policy)

	if rejection := result.HasError(); rejection != nil {
		return false, rejection
	}

	if !result.HasTransitionToExecute() {
		return true, nil // Idempotent success - nothing to execute
	}

	// Execute phase - move the open loan together with the item write
	renewed := result.Transition.(core.LoanRenewed)

	nextItem, applyErr := core.ApplyTransition(currentState.item, renewed)
	if applyErr != nil {
		return false, applyErr
	}

	nextRecord, recordErr := shell.ItemRecordFrom(nextItem, itemRecord.Version+1, renewed.OccurredAt)
	if recordErr != nil {
		return false, recordErr
	}

	renewedLoan, loanErr := circstore.BuildLoanRecord(
		command.ItemCode,
		itemRecord.ItemType,
		command.Borrower,
		currentState.loan.CheckedOutAt,
		renewed.DueAt,
		currentState.loan.ReturnedAt,
		renewed.Renewals,
	)
	if loanErr != nil {
		return false, loanErr
	}

	uid := uuid.New()
	metadata := shell.BuildTransitionMetadata(uid, uid, uid)

	record, mapErr := shell.TransitionRecordFrom(
		renewed,
		itemRecord.Version,
		nextRecord,
		circstore.LoanActionRenew,
		renewedLoan,
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
