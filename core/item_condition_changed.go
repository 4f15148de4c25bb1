package core

import (
	"time"
)

// ItemConditionChangedTransitionType is the transition type identifier.
const ItemConditionChangedTransitionType = "ItemConditionChanged"

// ItemConditionChanged represents an off-loan item moving between
// Available, Maintenance and Lost.
type ItemConditionChanged struct {
	TransitionType TransitionTypeString
	ItemCode       ItemCodeString
	NextStatus     ItemStatus
	OccurredAt     OccurredAtTS
}

// BuildItemConditionChanged creates a new ItemConditionChanged transition.
func BuildItemConditionChanged(
	itemCode ItemCodeString,
	nextStatus ItemStatus,
	occurredAt time.Time,
) ItemConditionChanged {
	transition := ItemConditionChanged{
		TransitionType: ItemConditionChangedTransitionType,
		ItemCode:       itemCode,
		NextStatus:     nextStatus,
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return transition
}

// IsTransitionType returns the transition type identifier.
func (t ItemConditionChanged) IsTransitionType() string {
	return ItemConditionChangedTransitionType
}

// HasOccurredAt returns when this transition took effect.
func (t ItemConditionChanged) HasOccurredAt() time.Time {
	return t.OccurredAt
}
