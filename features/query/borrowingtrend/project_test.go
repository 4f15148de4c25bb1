package borrowingtrend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowingtrend"
)

func Test_ProjectBorrowingTrend_CountsCheckoutsPerDay(t *testing.T) {
	// arrange
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 23, 59, 0, 0, time.UTC)

	query, err := borrowingtrend.BuildQuery(from, to)
	require.NoError(t, err)

	loans := []core.Loan{
		givenLoanCheckedOutAt("ITEM-001", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		givenLoanCheckedOutAt("ITEM-002", time.Date(2025, 6, 1, 16, 30, 0, 0, time.UTC)),
		givenLoanCheckedOutAt("ITEM-003", time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)),
	}

	// act
	trend := borrowingtrend.ProjectBorrowingTrend(loans, query, 99)

	// assert
	require.Len(t, trend.Days, 3)
	assert.Equal(t, "2025-06-01", trend.Days[0].Date)
	assert.Equal(t, 2, trend.Days[0].CheckoutCount)
	assert.Equal(t, "2025-06-02", trend.Days[1].Date)
	assert.Equal(t, 0, trend.Days[1].CheckoutCount, "days without checkouts are zero-filled")
	assert.Equal(t, "2025-06-03", trend.Days[2].Date)
	assert.Equal(t, 1, trend.Days[2].CheckoutCount)
	assert.Equal(t, uint(99), trend.SequenceNumber)
}

func Test_ProjectBorrowingTrend_ClosedLoansStillCountForTheirCheckoutDay(t *testing.T) {
	// arrange
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	query, err := borrowingtrend.BuildQuery(day, day)
	require.NoError(t, err)

	closedLoan := givenLoanCheckedOutAt("ITEM-001", day.Add(10*time.Hour))
	closedLoan.ReturnedAt = day.Add(3 * 24 * time.Hour)

	// act
	trend := borrowingtrend.ProjectBorrowingTrend([]core.Loan{closedLoan}, query, 1)

	// assert
	require.Len(t, trend.Days, 1)
	assert.Equal(t, 1, trend.Days[0].CheckoutCount)
}

func Test_ProjectBorrowingTrend_SingleDayRangeWithoutCheckouts(t *testing.T) {
	// arrange
	day := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	query, err := borrowingtrend.BuildQuery(day, day)
	require.NoError(t, err)

	// act
	trend := borrowingtrend.ProjectBorrowingTrend(nil, query, 1)

	// assert
	require.Len(t, trend.Days, 1)
	assert.Equal(t, "2025-06-01", trend.Days[0].Date)
	assert.Equal(t, 0, trend.Days[0].CheckoutCount)
}

func Test_BuildQuery_ValidatesTheRange(t *testing.T) {
	now := time.Now()

	t.Run("zero bounds are rejected", func(t *testing.T) {
		_, err := borrowingtrend.BuildQuery(time.Time{}, now)
		assert.ErrorIs(t, err, borrowingtrend.ErrZeroTrendBound)
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		_, err := borrowingtrend.BuildQuery(now, now.Add(-24*time.Hour))
		assert.ErrorIs(t, err, borrowingtrend.ErrInvertedTrendRange)
	})
}

// Test helpers

func givenLoanCheckedOutAt(itemCode string, checkedOutAt time.Time) core.Loan {
	return core.Loan{
		ItemCode:     itemCode,
		Borrower:     "borrower-1",
		CheckedOutAt: checkedOutAt,
		DueAt:        checkedOutAt.Add(14 * 24 * time.Hour),
	}
}
