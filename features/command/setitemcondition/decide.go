package setitemcondition

import (
	"github.com/stacksys/circulation-tracker-go/core"
)

const (
	rejectionItemNotFound = "item is not registered"
	rejectionItemOnLoan   = "item is on loan and its condition cannot be changed"
	rejectionItemRetired  = "item is retired"
	rejectionItemLost     = "item is recorded as lost"
)

// state is the current registry truth this decision reads.
type state struct {
	itemFound bool
	item      core.Item
}

// Decide implements the business logic to determine whether an item's condition should change.
// This is a pure function with no side effects - it takes the current state and a command
// and returns the transition that should be executed.
//
// Condition changes move between Available and Maintenance, and from either
// into Lost. A lost item stays lost and a retired item stays retired; items
// on loan must be returned before their condition can change.
//
// Business Rules:
//
//	GIVEN: An item with ItemCode that is Available or in Maintenance
//	WHEN: SetItemCondition command is received
//	THEN: ItemConditionChanged transition is generated with the target status
//	ERROR: "item is not registered" if no item exists under the code
//	ERROR: "item is on loan and its condition cannot be changed" while an open loan exists
//	ERROR: "item is retired" if the item has been retired
//	ERROR: "item is recorded as lost" if the item is Lost and the target differs
//	IDEMPOTENCY: If the item is already in the target condition, no transition is generated (no-op)
func Decide(s state, command Command) core.DecisionResult {
	if !s.itemFound {
		return core.ErrorDecision(core.NewRejection(core.ReasonNotFound, rejectionItemNotFound))
	}

	if s.item.Status == command.TargetStatus {
		return core.IdempotentDecision()
	}

	if s.item.IsOnLoan() {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemOnLoan))
	}

	if s.item.Status == core.StatusRetired {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemRetired))
	}

	if s.item.Status == core.StatusLost {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemLost))
	}

	return core.SuccessDecision(
		core.BuildItemConditionChanged(
			command.ItemCode,
			command.TargetStatus,
			command.OccurredAt,
		),
	)
}
