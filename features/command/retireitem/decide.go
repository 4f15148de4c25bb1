package retireitem

import (
	"github.com/stacksys/circulation-tracker-go/core"
)

const (
	rejectionItemNotFound = "item is not registered"
	rejectionItemOnLoan   = "item is on loan and cannot be retired"
)

// state is the current registry truth this decision reads.
type state struct {
	itemFound bool
	item      core.Item
}

// Decide implements the business logic to determine whether an item should be retired.
// This is a pure function with no side effects - it takes the current state and a command
// and returns the transition that should be executed.
//
// Retirement is terminal: loan history keeps referencing the item, so the row
// stays and only the status changes. Items in Maintenance or recorded as Lost
// can be retired; items on loan must come back first.
//
// Business Rules:
//
//	GIVEN: An item with ItemCode that is not on loan
//	WHEN: RetireItem command is received
//	THEN: ItemRetired transition is generated and the item leaves circulation for good
//	ERROR: "item is not registered" if no item exists under the code
//	ERROR: "item is on loan and cannot be retired" while an open loan exists
//	IDEMPOTENCY: If the item is already retired, no transition is generated (no-op)
func Decide(s state, command Command) core.DecisionResult {
	if !s.itemFound {
		return core.ErrorDecision(core.NewRejection(core.ReasonNotFound, rejectionItemNotFound))
	}

	if s.item.Status == core.StatusRetired {
		return core.IdempotentDecision()
	}

	if s.item.IsOnLoan() {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemOnLoan))
	}

	return core.SuccessDecision(
		core.BuildItemRetired(
			command.ItemCode,
			command.OccurredAt,
		),
	)
}
