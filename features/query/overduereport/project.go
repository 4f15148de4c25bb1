package overduereport

import (
	"slices"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ProjectOverdueReport implements the query logic to bucket overdue open loans.
// This is a pure function with no side effects - it takes the open loans, the
// registered items (for titles), the projection time and the journal sequence
// and returns the projected report.
//
// Query Logic:
//
//	GIVEN: All open loans and the current time
//	WHEN: OverdueReport query is executed
//	THEN: OverdueReport is returned with one entry per overdue loan, oldest due date first
//	EXCLUDES: Loans still within their due date
//	BUCKETS: Up to 7 days late -> Overdue1Week, up to 14 -> Overdue2Weeks, beyond -> OverdueMoreThan2Weeks
//	DERIVES: TotalOverdue as the sum of the buckets, never as a separately tracked count
func ProjectOverdueReport(
	openLoans []core.Loan,
	items []core.Item,
	now time.Time,
	sequence circstore.JournalSequenceUint,
) OverdueReport {
	titles := make(map[core.ItemCodeString]string, len(items))
	types := make(map[core.ItemCodeString]core.ItemTypeString, len(items))

	for _, item := range items {
		titles[item.Code] = item.Title
		types[item.Code] = item.Type
	}

	snapshot := core.ClassifyOverdue(openLoans, now)

	entries := make([]OverdueEntry, 0, snapshot.TotalOverdue())

	for _, loan := range openLoans {
		if !loan.IsOverdueAt(now) {
			continue
		}

		elapsed := now.Sub(loan.DueAt)

		entries = append(entries, OverdueEntry{
			ItemCode:    loan.ItemCode,
			Title:       titles[loan.ItemCode],
			ItemType:    types[loan.ItemCode],
			Borrower:    loan.Borrower,
			DueAt:       loan.DueAt,
			DaysOverdue: int(elapsed / (24 * time.Hour)),
			Bucket:      bucketFor(elapsed),
		})
	}

	// Sort by due date (most overdue first)
	slices.SortFunc(entries, func(a, b OverdueEntry) int {
		return a.DueAt.Compare(b.DueAt)
	})

	return OverdueReport{
		Overdue1Week:          snapshot.Overdue1Week,
		Overdue2Weeks:         snapshot.Overdue2Weeks,
		OverdueMoreThan2Weeks: snapshot.OverdueMoreThan2Weeks,
		Entries:               entries,
		ProjectedAt:           now,
		SequenceNumber:        sequence,
	}
}

func bucketFor(elapsed time.Duration) string {
	switch {
	case elapsed <= 7*24*time.Hour:
		return BucketOverdue1Week
	case elapsed <= 14*24*time.Hour:
		return BucketOverdue2Weeks
	default:
		return BucketOverdueMoreThan2Weeks
	}
}

// BuildLoanFilter creates the filter selecting the open loans the report is
// computed from.
func BuildLoanFilter() circstore.LoanFilter {
	return circstore.BuildLoanFilter().
		OpenOnly().
		Finalize()
}
