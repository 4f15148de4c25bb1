package shell

import "errors"

var (
	// ErrIdempotentOperation is a sentinel error to indicate an idempotent operation that should be recorded in metrics.
	ErrIdempotentOperation = errors.New("idempotent operation - no state change needed")

	// ErrActionNotPermitted is returned when the capability check refuses an actor a privileged action.
	ErrActionNotPermitted = errors.New("actor is not permitted to perform this action")
)

// Command input validation errors. BuildCommand returns these for malformed
// input, before any handler or store is involved.
var (
	ErrMissingItemCode     = errors.New("item code must not be empty")
	ErrMissingBorrower     = errors.New("borrower id must not be empty")
	ErrMissingActor        = errors.New("actor id must not be empty")
	ErrMissingItemType     = errors.New("item type must not be empty")
	ErrMissingTitle        = errors.New("title must not be empty")
	ErrInvalidTargetStatus = errors.New("target status must be Available, Maintenance or Lost")
)

// IsCommandValidationError reports whether err is one of the command input
// validation errors, so transports can map it to a bad-request response.
func IsCommandValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrMissingItemCode,
		ErrMissingBorrower,
		ErrMissingActor,
		ErrMissingItemType,
		ErrMissingTitle,
		ErrInvalidTargetStatus,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}
