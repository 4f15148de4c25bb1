package overduereport_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/query/overduereport"
)

func Test_ProjectOverdueReport_BucketsLoansByElapsedTime(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	loans := []core.Loan{
		givenOpenLoan("ITEM-001", "borrower-1", now.Add(-3*24*time.Hour)),  // 3 days late
		givenOpenLoan("ITEM-002", "borrower-2", now.Add(-10*24*time.Hour)), // 10 days late
		givenOpenLoan("ITEM-003", "borrower-3", now.Add(-30*24*time.Hour)), // 30 days late
		givenOpenLoan("ITEM-004", "borrower-4", now.Add(24*time.Hour)),     // still current
	}

	items := []core.Item{
		givenItem("ITEM-001", "book", "First Title"),
		givenItem("ITEM-002", "book", "Second Title"),
		givenItem("ITEM-003", "dvd", "Third Title"),
		givenItem("ITEM-004", "book", "Fourth Title"),
	}

	// act
	report := overduereport.ProjectOverdueReport(loans, items, now, 42)

	// assert
	assert.Equal(t, 1, report.Overdue1Week)
	assert.Equal(t, 1, report.Overdue2Weeks)
	assert.Equal(t, 1, report.OverdueMoreThan2Weeks)
	assert.Equal(t, 3, report.TotalOverdue(), "the total is the sum of the buckets")
	assert.Len(t, report.Entries, 3, "current loans must not appear in the itemized entries")
	assert.Equal(t, uint(42), report.SequenceNumber)
}

func Test_ProjectOverdueReport_LoanTenDaysLateLandsInTheTwoWeeksBucket(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	loans := []core.Loan{givenOpenLoan("ITEM-001", "borrower-1", now.Add(-10*24*time.Hour))}
	items := []core.Item{givenItem("ITEM-001", "book", "The Title")}

	// act
	report := overduereport.ProjectOverdueReport(loans, items, now, 1)

	// assert
	assert.Equal(t, 0, report.Overdue1Week)
	assert.Equal(t, 1, report.Overdue2Weeks)
	assert.Equal(t, 0, report.OverdueMoreThan2Weeks)
	assert.Equal(t, 1, report.TotalOverdue())

	entry := report.Entries[0]
	assert.Equal(t, "ITEM-001", entry.ItemCode)
	assert.Equal(t, "The Title", entry.Title)
	assert.Equal(t, 10, entry.DaysOverdue)
	assert.Equal(t, overduereport.BucketOverdue2Weeks, entry.Bucket)
}

func Test_ProjectOverdueReport_OrdersEntriesMostOverdueFirst(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	loans := []core.Loan{
		givenOpenLoan("ITEM-001", "borrower-1", now.Add(-2*24*time.Hour)),
		givenOpenLoan("ITEM-002", "borrower-2", now.Add(-20*24*time.Hour)),
		givenOpenLoan("ITEM-003", "borrower-3", now.Add(-9*24*time.Hour)),
	}

	// act
	report := overduereport.ProjectOverdueReport(loans, nil, now, 1)

	// assert
	assert.Equal(t, "ITEM-002", report.Entries[0].ItemCode)
	assert.Equal(t, "ITEM-003", report.Entries[1].ItemCode)
	assert.Equal(t, "ITEM-001", report.Entries[2].ItemCode)
}

func Test_ProjectOverdueReport_EmptyWhenNothingIsOverdue(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	loans := []core.Loan{givenOpenLoan("ITEM-001", "borrower-1", now.Add(5*24*time.Hour))}

	// act
	report := overduereport.ProjectOverdueReport(loans, nil, now, 7)

	// assert
	assert.Equal(t, 0, report.TotalOverdue())
	assert.Empty(t, report.Entries)
	assert.Equal(t, uint(7), report.SequenceNumber)
}

// Test helpers

func givenOpenLoan(itemCode string, borrower string, dueAt time.Time) core.Loan {
	return core.Loan{
		ItemCode:     itemCode,
		Borrower:     borrower,
		CheckedOutAt: dueAt.Add(-14 * 24 * time.Hour),
		DueAt:        dueAt,
	}
}

func givenItem(itemCode string, itemType string, title string) core.Item {
	return core.Item{
		Code:    itemCode,
		Type:    itemType,
		Title:   title,
		Creator: "Test Creator",
		Status:  core.StatusCheckedOut,
	}
}
