package core

import (
	"errors"
)

// RejectionReason identifies why a circulation operation was refused.
type RejectionReason string

// All reasons an operation can be refused. A rejection is a final answer to
// the actor and is never retried.
const (
	ReasonNotFound               RejectionReason = "NotFound"
	ReasonItemUnavailable        RejectionReason = "ItemUnavailable"
	ReasonNoOpenLoan             RejectionReason = "NoOpenLoan"
	ReasonBorrowingLimitExceeded RejectionReason = "BorrowingLimitExceeded"
	ReasonRenewalNotAllowed      RejectionReason = "RenewalNotAllowed"
	ReasonRenewalLimitExceeded   RejectionReason = "RenewalLimitExceeded"
	ReasonBorrowerMismatch       RejectionReason = "BorrowerMismatch"
	ReasonDuplicateItem          RejectionReason = "DuplicateItem"
	ReasonUnknownItemType        RejectionReason = "UnknownItemType"
)

// Rejection is a typed refusal of a circulation operation. It carries the
// sentence shown to the actor as its error message.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

// NewRejection creates a Rejection with the given reason and actor-facing message.
func NewRejection(reason RejectionReason, message string) Rejection {
	return Rejection{Reason: reason, Message: message}
}

func (r Rejection) Error() string {
	return r.Message
}

// AsRejection reports whether err is, or wraps, a Rejection.
func AsRejection(err error) (Rejection, bool) {
	var rejection Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}

	return Rejection{}, false
}
