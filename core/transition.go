package core

import (
	"fmt"
	"time"
)

// Transitions is a slice of Transition instances.
type Transitions = []Transition

// Transition represents a committed change to an item's circulation state.
type Transition interface {
	// IsTransitionType returns the string identifier for this transition type.
	IsTransitionType() string

	// HasOccurredAt returns when this transition took effect.
	HasOccurredAt() time.Time
}

// ApplyTransition computes the item state after the given transition.
// It is the single source of truth for post-transition state and reports
// ErrInvalidTransition when the result would violate the item invariant.
func ApplyTransition(item Item, transition Transition) (Item, error) {
	next := item

	switch t := transition.(type) {
	case ItemRegistered:
		next = Item{
			Code:    t.ItemCode,
			Type:    t.ItemType,
			Title:   t.Title,
			Creator: t.Creator,
			Status:  StatusAvailable,
		}

	case ItemCheckedOut:
		next.Status = StatusCheckedOut
		next.Borrower = t.Borrower
		next.DueAt = t.DueAt

	case ItemReturned:
		next.Status = StatusAvailable
		next.Borrower = ""
		next.DueAt = time.Time{}

	case LoanRenewed:
		next.Status = StatusCheckedOut
		next.Borrower = t.Borrower
		next.DueAt = t.DueAt

	case ItemConditionChanged:
		if t.NextStatus != StatusAvailable && t.NextStatus != StatusMaintenance && t.NextStatus != StatusLost {
			return Item{}, fmt.Errorf("%w: condition change to %s", ErrInvalidTransition, t.NextStatus)
		}

		next.Status = t.NextStatus
		next.Borrower = ""
		next.DueAt = time.Time{}

	case ItemRetired:
		next.Status = StatusRetired
		next.Borrower = ""
		next.DueAt = time.Time{}

	default:
		return Item{}, fmt.Errorf("%w: unknown transition type %s", ErrInvalidTransition, transition.IsTransitionType())
	}

	if err := next.Validate(); err != nil {
		return Item{}, err
	}

	return next, nil
}
