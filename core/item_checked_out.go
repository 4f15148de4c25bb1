package core

import (
	"time"
)

// ItemCheckedOutTransitionType is the transition type identifier.
const ItemCheckedOutTransitionType = "ItemCheckedOut"

// ItemCheckedOut represents an available item being lent to a borrower.
// It opens a new loan due at DueAt.
type ItemCheckedOut struct {
	TransitionType TransitionTypeString
	ItemCode       ItemCodeString
	Borrower       BorrowerIDString
	DueAt          time.Time
	OccurredAt     OccurredAtTS
}

// BuildItemCheckedOut creates a new ItemCheckedOut transition.
func BuildItemCheckedOut(
	itemCode ItemCodeString,
	borrower BorrowerIDString,
	dueAt time.Time,
	occurredAt time.Time,
) ItemCheckedOut {
	transition := ItemCheckedOut{
		TransitionType: ItemCheckedOutTransitionType,
		ItemCode:       itemCode,
		Borrower:       borrower,
		DueAt:          ToOccurredAt(dueAt),
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return transition
}

// IsTransitionType returns the transition type identifier.
func (t ItemCheckedOut) IsTransitionType() string {
	return ItemCheckedOutTransitionType
}

// HasOccurredAt returns when this transition took effect.
func (t ItemCheckedOut) HasOccurredAt() time.Time {
	return t.OccurredAt
}
