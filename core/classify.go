package core

import (
	"time"
)

// Bucket boundaries measured as elapsed time past the due date.
const (
	overdueOneWeekBoundary  = 7 * 24 * time.Hour
	overdueTwoWeeksBoundary = 14 * 24 * time.Hour
)

// OverdueSnapshot buckets the open loans that have passed their due date by
// how long ago that was. The total is derived from the buckets (see
// TotalOverdue), never stored, so it cannot drift from its components.
type OverdueSnapshot struct {
	Overdue1Week          int
	Overdue2Weeks         int
	OverdueMoreThan2Weeks int
}

// TotalOverdue returns the sum of all buckets.
func (s OverdueSnapshot) TotalOverdue() int {
	return s.Overdue1Week + s.Overdue2Weeks + s.OverdueMoreThan2Weeks
}

// ClassifyOverdue buckets the given loans by elapsed time past their due
// date at the given time. Closed loans and open loans still within their
// due date contribute nothing. Elapsed time up to seven days lands in
// Overdue1Week, up to fourteen days in Overdue2Weeks, anything longer in
// OverdueMoreThan2Weeks.
func ClassifyOverdue(loans []Loan, now time.Time) OverdueSnapshot {
	var snapshot OverdueSnapshot

	for _, loan := range loans {
		if !loan.IsOverdueAt(now) {
			continue
		}

		switch elapsed := now.Sub(loan.DueAt); {
		case elapsed <= overdueOneWeekBoundary:
			snapshot.Overdue1Week++
		case elapsed <= overdueTwoWeeksBoundary:
			snapshot.Overdue2Weeks++
		default:
			snapshot.OverdueMoreThan2Weeks++
		}
	}

	return snapshot
}

// EffectiveStatus derives the externally observed status at the given time.
// A stored CheckedOut whose due date has passed reads as Overdue; every
// other status reads as stored.
func EffectiveStatus(status ItemStatus, dueAt time.Time, now time.Time) ItemStatus {
	if status == StatusCheckedOut && !dueAt.IsZero() && now.After(dueAt) {
		return StatusOverdue
	}

	return status
}
