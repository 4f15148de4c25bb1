package registeritem

import (
	"github.com/stacksys/circulation-tracker-go/core"
)

const (
	rejectionDuplicateItem   = "an item is already registered under this code"
	rejectionUnknownItemType = "no borrowing policy is configured for this item type"
)

// state is the current registry truth this decision reads.
type state struct {
	itemExists bool
}

// Decide implements the business logic to determine whether a new item should be registered.
// This is a pure function with no side effects - it takes the current state, a command and
// the configured policy set and returns the transition that should be executed.
//
// Business Rules:
//
//	GIVEN: An unused ItemCode and an ItemType with a configured borrowing policy
//	WHEN: RegisterItem command is received
//	THEN: ItemRegistered transition is generated and the item enters circulation as Available
//	ERROR: "an item is already registered under this code" if the code is taken
//	ERROR: "no borrowing policy is configured for this item type" if the type is unknown
func Decide(s state, command Command, policies core.PolicySet) core.DecisionResult {
	if s.itemExists {
		return core.ErrorDecision(core.NewRejection(core.ReasonDuplicateItem, rejectionDuplicateItem))
	}

	if !policies.Knows(command.ItemType) {
		return core.ErrorDecision(core.NewRejection(core.ReasonUnknownItemType, rejectionUnknownItemType))
	}

	return core.SuccessDecision(
		core.BuildItemRegistered(
			command.ItemCode,
			command.ItemType,
			command.Title,
			command.Creator,
			command.OccurredAt,
		),
	)
}
