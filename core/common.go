package core

import (
	"time"
)

// Instead of implementing full value objects, I'm using some alias types and helper methods here ...

// ItemCodeString represents an item code (barcode)
type ItemCodeString = string

// BorrowerIDString represents a borrower identifier
type BorrowerIDString = string

// ActorIDString represents an actor identifier for privileged operations
type ActorIDString = string

// ItemTypeString represents an item type category
type ItemTypeString = string

// TransitionTypeString represents a transition type identifier
type TransitionTypeString = string

// OccurredAtTS represents when a transition occurred
type OccurredAtTS = time.Time

// ToOccurredAt converts a time to OccurredAtTS with UTC normalization and microsecond precision
func ToOccurredAt(t time.Time) OccurredAtTS {
	return t.UTC().Truncate(time.Microsecond)
}
