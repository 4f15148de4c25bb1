package checkoutitem

import (
	"github.com/stacksys/circulation-tracker-go/core"
)

const (
	rejectionItemNotFound          = "item is not registered"
	rejectionItemUnavailable       = "item is not available for checkout"
	rejectionBorrowingLimitReached = "borrower has reached the loan limit for this item type"
)

// state is the current circulation truth this decision reads: the item under
// the scanned code and the borrower's open-loan count for the item's type.
type state struct {
	itemFound     bool
	item          core.Item
	openLoanCount int
}

// Decide implements the business logic to determine whether an item should be checked out.
// This is a pure function with no side effects - it takes the current state, a command and
// the borrowing policy for the item's type and returns the transition that should be executed.
//
// Business Rules:
//
//	GIVEN: An item with ItemCode and a borrower with Borrower
//	WHEN: CheckOutItem command is received
//	THEN: ItemCheckedOut transition is generated, due = OccurredAt + policy loan period
//	ERROR: "item is not registered" if no item exists under the code
//	ERROR: "item is not available for checkout" if the item is lent to someone else or withdrawn
//	ERROR: "borrower has reached the loan limit for this item type" if the open-loan count is at the policy cap
//	IDEMPOTENCY: If the item is already checked out to this borrower, no transition is generated (no-op)
func Decide(s state, command Command, policy core.BorrowingPolicy) core.DecisionResult {
	if s.itemFound && s.item.IsOnLoan() && s.item.Borrower == command.Borrower {
		return core.IdempotentDecision() // repeat scan - the item is already with this borrower
	}

	if !s.itemFound {
		return core.ErrorDecision(core.NewRejection(core.ReasonNotFound, rejectionItemNotFound))
	}

	if s.item.IsOnLoan() || s.item.IsWithdrawn() {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemUnavailable))
	}

	if s.openLoanCount >= policy.MaxConcurrentLoans {
		return core.ErrorDecision(core.NewRejection(core.ReasonBorrowingLimitExceeded, rejectionBorrowingLimitReached))
	}

	return core.SuccessDecision(
		core.BuildItemCheckedOut(
			command.ItemCode,
			command.Borrower,
			command.OccurredAt.Add(policy.LoanPeriod),
			command.OccurredAt,
		),
	)
}
