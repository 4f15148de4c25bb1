package core

import (
	"time"
)

// Loan represents a borrowing record. Its identity is the pair of item code
// and checkout time; a closed loan keeps its row forever as audit trail.
type Loan struct {
	ItemCode     ItemCodeString
	Borrower     BorrowerIDString
	CheckedOutAt time.Time
	DueAt        time.Time
	ReturnedAt   time.Time
	Renewals     int
}

// IsOpen returns true while no return has been recorded.
func (l Loan) IsOpen() bool {
	return l.ReturnedAt.IsZero()
}

// IsOverdueAt returns true when the loan is open and its due date has
// passed at the given time.
func (l Loan) IsOverdueAt(now time.Time) bool {
	return l.IsOpen() && now.After(l.DueAt)
}
