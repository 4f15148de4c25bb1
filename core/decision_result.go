package core

// DecisionResult represents the outcome of a business decision in a Decide function.
// This enables type-safe, functional programming style decision modeling.
//
// IMPORTANT: DecisionResult should only be constructed using the provided factory methods:
// IdempotentDecision(), SuccessDecision(transition), or ErrorDecision(rejection).
// Do not construct DecisionResult directly to ensure type safety.
type DecisionResult struct {
	Outcome    string     // "idempotent", "success", or "error"
	Transition Transition // nil unless the decision produced a state change
	Err        error
}

const (
	idempotentOutcome = "idempotent"
	successOutcome    = "success"
	errorOutcome      = "error"
)

// IdempotentDecision creates a DecisionResult indicating no state change is needed.
func IdempotentDecision() DecisionResult {
	return DecisionResult{
		Outcome:    idempotentOutcome,
		Transition: nil,
	}
}

// SuccessDecision creates a DecisionResult indicating a state change with a transition to execute.
func SuccessDecision(transition Transition) DecisionResult {
	return DecisionResult{
		Outcome:    successOutcome,
		Transition: transition,
	}
}

// ErrorDecision creates a DecisionResult indicating a business rule refused the operation.
func ErrorDecision(rejection Rejection) DecisionResult {
	return DecisionResult{
		Outcome:    errorOutcome,
		Transition: nil,
		Err:        rejection,
	}
}

// HasTransitionToExecute returns true if there is a transition to hand to the store.
func (r DecisionResult) HasTransitionToExecute() bool {
	return r.Outcome == successOutcome
}

// HasError returns the error if there is one, otherwise nil.
func (r DecisionResult) HasError() error {
	if r.Outcome == errorOutcome {
		return r.Err
	}

	return nil
}
