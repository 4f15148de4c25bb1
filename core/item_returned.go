package core

import (
	"time"
)

// ItemReturnedTransitionType is the transition type identifier.
const ItemReturnedTransitionType = "ItemReturned"

// ItemReturned represents a loaned item coming back. It closes the open
// loan and makes the item Available again.
type ItemReturned struct {
	TransitionType TransitionTypeString
	ItemCode       ItemCodeString
	Borrower       BorrowerIDString
	OccurredAt     OccurredAtTS
}

// BuildItemReturned creates a new ItemReturned transition. The borrower is
// the holder of the loan being closed.
func BuildItemReturned(
	itemCode ItemCodeString,
	borrower BorrowerIDString,
	occurredAt time.Time,
) ItemReturned {
	transition := ItemReturned{
		TransitionType: ItemReturnedTransitionType,
		ItemCode:       itemCode,
		Borrower:       borrower,
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return transition
}

// IsTransitionType returns the transition type identifier.
func (t ItemReturned) IsTransitionType() string {
	return ItemReturnedTransitionType
}

// HasOccurredAt returns when this transition took effect.
func (t ItemReturned) HasOccurredAt() time.Time {
	return t.OccurredAt
}
