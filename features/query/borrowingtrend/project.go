package borrowingtrend

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

const dayFormat = "2006-01-02"

// ProjectBorrowingTrend implements the query logic for per-day checkout counts.
// This is a pure function with no side effects - it takes the loans checked
// out inside the range, the query and the journal sequence and returns the
// projected trend.
//
// Loans are never deleted, so the checkout history is complete: closed loans
// count for the day they were checked out just like open ones.
//
// Query Logic:
//
//	GIVEN: All loans checked out between From and To (inclusive)
//	WHEN: BorrowingTrend query is executed
//	THEN: BorrowingTrend is returned with one entry per UTC day of the range, in date order
//	ZERO-FILLS: Days without checkouts appear with CheckoutCount zero
func ProjectBorrowingTrend(
	loans []core.Loan,
	query Query,
	sequence circstore.JournalSequenceUint,
) BorrowingTrend {
	countsByDay := make(map[string]int)

	for _, loan := range loans {
		countsByDay[loan.CheckedOutAt.UTC().Format(dayFormat)]++
	}

	firstDay := truncateToDay(query.From)
	lastDay := truncateToDay(query.To)

	days := make([]DayCheckouts, 0, int(lastDay.Sub(firstDay)/(24*time.Hour))+1)

	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		date := day.Format(dayFormat)

		days = append(days, DayCheckouts{
			Date:          date,
			CheckoutCount: countsByDay[date],
		})
	}

	return BorrowingTrend{
		Days:           days,
		SequenceNumber: sequence,
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildLoanFilter creates the filter selecting the loans checked out inside
// the query's range. Its hash doubles as the report-cache key, so two
// requests for different ranges never share a cached trend.
func BuildLoanFilter(query Query) circstore.LoanFilter {
	return circstore.BuildLoanFilter().
		CheckedOutFrom(query.From).
		AndCheckedOutUntil(query.To).
		Finalize()
}
