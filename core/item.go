package core

import (
	"errors"
	"fmt"
	"time"
)

// ItemStatus is the circulation status of an item.
type ItemStatus string

// All statuses an item can be observed in. Overdue is derived from the due
// date at read time (see EffectiveStatus) and is never written to storage.
const (
	StatusAvailable   ItemStatus = "Available"
	StatusCheckedOut  ItemStatus = "CheckedOut"
	StatusOverdue     ItemStatus = "Overdue"
	StatusMaintenance ItemStatus = "Maintenance"
	StatusLost        ItemStatus = "Lost"
	StatusRetired     ItemStatus = "Retired"
)

// ErrInvalidTransition signals a status/borrower/due-date combination that
// violates the item invariant. It indicates a bug, not an actor mistake.
var ErrInvalidTransition = errors.New("invalid item state transition")

// ParseItemStatus converts a stored status string into an ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch status := ItemStatus(s); status {
	case StatusAvailable, StatusCheckedOut, StatusOverdue, StatusMaintenance, StatusLost, StatusRetired:
		return status, nil
	default:
		return "", fmt.Errorf("unknown item status: %q", s)
	}
}

// Item represents the circulation view of a registered item.
type Item struct {
	Code     ItemCodeString
	Type     ItemTypeString
	Title    string
	Creator  string
	Status   ItemStatus
	Borrower BorrowerIDString
	DueAt    time.Time
}

// IsOnLoan returns true while the item is held by a borrower.
func (i Item) IsOnLoan() bool {
	return i.Status == StatusCheckedOut || i.Status == StatusOverdue
}

// IsWithdrawn returns true when the item is out of circulation and
// no checkout, return or renewal may touch it.
func (i Item) IsWithdrawn() bool {
	return i.Status == StatusMaintenance || i.Status == StatusLost || i.Status == StatusRetired
}

// Validate checks the item invariant: borrower and due date are both set
// or both unset, and both are unset unless the item is on loan.
func (i Item) Validate() error {
	return ValidateCirculationState(i.Status, i.Borrower, i.DueAt)
}

// ValidateCirculationState checks a status/borrower/due-date combination
// against the item invariant and reports ErrInvalidTransition on violation.
func ValidateCirculationState(status ItemStatus, borrower BorrowerIDString, dueAt time.Time) error {
	if _, err := ParseItemStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	onLoan := status == StatusCheckedOut || status == StatusOverdue
	hasBorrower := borrower != ""
	hasDueDate := !dueAt.IsZero()

	if hasBorrower != onLoan {
		return fmt.Errorf("%w: status %s with borrower %q", ErrInvalidTransition, status, borrower)
	}

	if hasDueDate != onLoan {
		return fmt.Errorf("%w: status %s with due date %v", ErrInvalidTransition, status, dueAt)
	}

	return nil
}
