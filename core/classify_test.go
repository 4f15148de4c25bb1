package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_ClassifyOverdue_BucketsByElapsedTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		pastDue  time.Duration
		expected core.OverdueSnapshot
	}{
		{
			name:     "due in the future is current",
			pastDue:  -24 * time.Hour,
			expected: core.OverdueSnapshot{},
		},
		{
			name:     "due exactly now is current",
			pastDue:  0,
			expected: core.OverdueSnapshot{},
		},
		{
			name:     "one hour late lands in the one week bucket",
			pastDue:  time.Hour,
			expected: core.OverdueSnapshot{Overdue1Week: 1},
		},
		{
			name:     "exactly seven days late still lands in the one week bucket",
			pastDue:  7 * 24 * time.Hour,
			expected: core.OverdueSnapshot{Overdue1Week: 1},
		},
		{
			name:     "just past seven days lands in the two weeks bucket",
			pastDue:  7*24*time.Hour + time.Microsecond,
			expected: core.OverdueSnapshot{Overdue2Weeks: 1},
		},
		{
			name:     "ten days late lands in the two weeks bucket",
			pastDue:  10 * 24 * time.Hour,
			expected: core.OverdueSnapshot{Overdue2Weeks: 1},
		},
		{
			name:     "exactly fourteen days late still lands in the two weeks bucket",
			pastDue:  14 * 24 * time.Hour,
			expected: core.OverdueSnapshot{Overdue2Weeks: 1},
		},
		{
			name:     "just past fourteen days lands in the more than two weeks bucket",
			pastDue:  14*24*time.Hour + time.Microsecond,
			expected: core.OverdueSnapshot{OverdueMoreThan2Weeks: 1},
		},
		{
			name:     "three months late lands in the more than two weeks bucket",
			pastDue:  90 * 24 * time.Hour,
			expected: core.OverdueSnapshot{OverdueMoreThan2Weeks: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			loan := core.Loan{
				ItemCode:     "BK-001",
				Borrower:     "U1",
				CheckedOutAt: now.Add(-tc.pastDue - 14*24*time.Hour),
				DueAt:        now.Add(-tc.pastDue),
			}

			// act
			snapshot := core.ClassifyOverdue([]core.Loan{loan}, now)

			// assert
			assert.Equal(t, tc.expected, snapshot)
		})
	}
}

func Test_ClassifyOverdue_IgnoresClosedLoans(t *testing.T) {
	// arrange - a loan ten days past due but already returned
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	loan := core.Loan{
		ItemCode:     "BK-001",
		Borrower:     "U1",
		CheckedOutAt: now.Add(-24 * 24 * time.Hour),
		DueAt:        now.Add(-10 * 24 * time.Hour),
		ReturnedAt:   now.Add(-5 * 24 * time.Hour),
	}

	// act
	snapshot := core.ClassifyOverdue([]core.Loan{loan}, now)

	// assert
	assert.Equal(t, core.OverdueSnapshot{}, snapshot)
	assert.Equal(t, 0, snapshot.TotalOverdue())
}

func Test_ClassifyOverdue_MixedLoans(t *testing.T) {
	// arrange - one loan per bucket plus one current and one closed
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	loans := []core.Loan{
		{ItemCode: "BK-001", Borrower: "U1", DueAt: now.Add(3 * 24 * time.Hour)},
		{ItemCode: "BK-002", Borrower: "U1", DueAt: now.Add(-2 * 24 * time.Hour)},
		{ItemCode: "BK-003", Borrower: "U2", DueAt: now.Add(-10 * 24 * time.Hour)},
		{ItemCode: "BK-004", Borrower: "U3", DueAt: now.Add(-30 * 24 * time.Hour)},
		{ItemCode: "BK-005", Borrower: "U3", DueAt: now.Add(-30 * 24 * time.Hour), ReturnedAt: now.Add(-time.Hour)},
	}

	// act
	snapshot := core.ClassifyOverdue(loans, now)

	// assert
	assert.Equal(t, 1, snapshot.Overdue1Week)
	assert.Equal(t, 1, snapshot.Overdue2Weeks)
	assert.Equal(t, 1, snapshot.OverdueMoreThan2Weeks)
	assert.Equal(t, 3, snapshot.TotalOverdue())
}

func Test_ClassifyOverdue_TotalAlwaysEqualsSumOfBuckets(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// arrange - loans with arbitrary due dates around now, some closed
		now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		loanCount := rapid.IntRange(0, 50).Draw(t, "loanCount")

		loans := make([]core.Loan, 0, loanCount)
		openAndPastDue := 0

		for i := 0; i < loanCount; i++ {
			dueOffset := time.Duration(rapid.IntRange(-40, 40).Draw(t, "dueOffsetDays")) * 24 * time.Hour
			closed := rapid.Bool().Draw(t, "closed")

			loan := core.Loan{
				ItemCode: "BK-001",
				Borrower: "U1",
				DueAt:    now.Add(dueOffset),
			}
			if closed {
				loan.ReturnedAt = now
			}

			if loan.IsOverdueAt(now) {
				openAndPastDue++
			}

			loans = append(loans, loan)
		}

		// act
		snapshot := core.ClassifyOverdue(loans, now)

		// assert - the total is the bucket sum and counts exactly the open past-due loans
		assert.Equal(t, snapshot.Overdue1Week+snapshot.Overdue2Weeks+snapshot.OverdueMoreThan2Weeks, snapshot.TotalOverdue())
		assert.Equal(t, openAndPastDue, snapshot.TotalOverdue())
	})
}

func Test_EffectiveStatus_DerivesOverdueAtReadTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		status   core.ItemStatus
		dueAt    time.Time
		expected core.ItemStatus
	}{
		{
			name:     "checked out within due date stays checked out",
			status:   core.StatusCheckedOut,
			dueAt:    now.Add(24 * time.Hour),
			expected: core.StatusCheckedOut,
		},
		{
			name:     "checked out past due date reads as overdue",
			status:   core.StatusCheckedOut,
			dueAt:    now.Add(-2 * 24 * time.Hour),
			expected: core.StatusOverdue,
		},
		{
			name:     "checked out due exactly now stays checked out",
			status:   core.StatusCheckedOut,
			dueAt:    now,
			expected: core.StatusCheckedOut,
		},
		{
			name:     "available is unaffected by time",
			status:   core.StatusAvailable,
			expected: core.StatusAvailable,
		},
		{
			name:     "lost is unaffected by time",
			status:   core.StatusLost,
			expected: core.StatusLost,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, core.EffectiveStatus(tc.status, tc.dueAt, now))
		})
	}
}
