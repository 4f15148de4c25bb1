package core

import (
	"time"
)

// LoanRenewedTransitionType is the transition type identifier.
const LoanRenewedTransitionType = "LoanRenewed"

// LoanRenewed represents an open loan being extended. DueAt is the new due
// date and Renewals the count after this renewal. A loan that had already
// run overdue reads as CheckedOut again afterwards.
type LoanRenewed struct {
	TransitionType TransitionTypeString
	ItemCode       ItemCodeString
	Borrower       BorrowerIDString
	DueAt          time.Time
	Renewals       int
	OccurredAt     OccurredAtTS
}

// BuildLoanRenewed creates a new LoanRenewed transition.
func BuildLoanRenewed(
	itemCode ItemCodeString,
	borrower BorrowerIDString,
	dueAt time.Time,
	renewals int,
	occurredAt time.Time,
) LoanRenewed {
	transition := LoanRenewed{
		TransitionType: LoanRenewedTransitionType,
		ItemCode:       itemCode,
		Borrower:       borrower,
		DueAt:          ToOccurredAt(dueAt),
		Renewals:       renewals,
		OccurredAt:     ToOccurredAt(occurredAt),
	}

	return transition
}

// IsTransitionType returns the transition type identifier.
func (t LoanRenewed) IsTransitionType() string {
	return LoanRenewedTransitionType
}

// HasOccurredAt returns when this transition took effect.
func (t LoanRenewed) HasOccurredAt() time.Time {
	return t.OccurredAt
}
