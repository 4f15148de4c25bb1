package returnitem

import (
	"github.com/stacksys/circulation-tracker-go/core"
)

const (
	rejectionItemNotFound    = "item is not registered"
	rejectionItemUnavailable = "item is out of circulation"
	rejectionNoOpenLoan      = "item has no open loan"
)

// state is the current circulation truth this decision reads.
type state struct {
	itemFound bool
	item      core.Item
}

// Decide implements the business logic to determine whether an item should be returned.
// This is a pure function with no side effects - it takes the current state and a command
// and returns the transition that should be executed.
//
// An overdue loan returns the same way a current one does; lateness is a
// reporting concern, not a return precondition.
//
// Business Rules:
//
//	GIVEN: An item with ItemCode
//	WHEN: ReturnItem command is received
//	THEN: ItemReturned transition is generated, closing the loan held by the current borrower
//	ERROR: "item is not registered" if no item exists under the code
//	ERROR: "item is out of circulation" if the item is in Maintenance, Lost or Retired
//	ERROR: "item has no open loan" if the item is available (safe to retry after a timeout)
func Decide(s state, command Command) core.DecisionResult {
	if !s.itemFound {
		return core.ErrorDecision(core.NewRejection(core.ReasonNotFound, rejectionItemNotFound))
	}

	if s.item.IsWithdrawn() {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemUnavailable))
	}

	if !s.item.IsOnLoan() {
		return core.ErrorDecision(core.NewRejection(core.ReasonNoOpenLoan, rejectionNoOpenLoan))
	}

	return core.SuccessDecision(
		core.BuildItemReturned(
			command.ItemCode,
			s.item.Borrower,
			command.OccurredAt,
		),
	)
}
