package core

import (
	"time"
)

// ItemRetiredTransitionType is the transition type identifier.
const ItemRetiredTransitionType = "ItemRetired"

// ItemRetired represents an item leaving circulation for good. The record
// stays because loan history references it.
type ItemRetired struct {
	TransitionType TransitionTypeString
	ItemCode       ItemCodeString
	OccurredAt     OccurredAtTS
}

// BuildItemRetired creates a new ItemRetired transition.
func BuildItemRetired(itemCode ItemCodeString, occurredAt time.Time) ItemRetired {
	transition := ItemRetired{
		TransitionType: ItemRetiredTransitionType,
		ItemCode:       itemCode,
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return transition
}

// IsTransitionType returns the transition type identifier.
func (t ItemRetired) IsTransitionType() string {
	return ItemRetiredTransitionType
}

// HasOccurredAt returns when this transition took effect.
func (t ItemRetired) HasOccurredAt() time.Time {
	return t.OccurredAt
}
