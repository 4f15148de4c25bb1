package core

import (
	"time"
)

// ItemRegisteredTransitionType is the transition type identifier.
const ItemRegisteredTransitionType = "ItemRegistered"

// ItemRegistered represents a new item entering circulation as Available.
type ItemRegistered struct {
	TransitionType TransitionTypeString
	ItemCode       ItemCodeString
	ItemType       ItemTypeString
	Title          string
	Creator        string
	OccurredAt     OccurredAtTS
}

// BuildItemRegistered creates a new ItemRegistered transition.
func BuildItemRegistered(
	itemCode ItemCodeString,
	itemType ItemTypeString,
	title string,
	creator string,
	occurredAt time.Time,
) ItemRegistered {
	transition := ItemRegistered{
		TransitionType: ItemRegisteredTransitionType,
		ItemCode:       itemCode,
		ItemType:       itemType,
		Title:          title,
		Creator:        creator,
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return transition
}

// IsTransitionType returns the transition type identifier.
func (t ItemRegistered) IsTransitionType() string {
	return ItemRegisteredTransitionType
}

// HasOccurredAt returns when this transition took effect.
func (t ItemRegistered) HasOccurredAt() time.Time {
	return t.OccurredAt
}
