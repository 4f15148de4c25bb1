package borrowerloans_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowerloans"
)

func Test_ProjectBorrowerLoans_ListsOpenLoansWithTitlesAndOverdueFlags(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	query, err := borrowerloans.BuildQuery("borrower-1")
	require.NoError(t, err)

	openLoans := circstore.LoanRecords{
		givenOpenLoanRecord("ITEM-001", "book", now.Add(-20*24*time.Hour), now.Add(-6*24*time.Hour), 1),
		givenOpenLoanRecord("ITEM-002", "magazine", now.Add(-2*24*time.Hour), now.Add(5*24*time.Hour), 0),
	}

	items := []core.Item{
		{Code: "ITEM-001", Type: "book", Title: "Late Book"},
		{Code: "ITEM-002", Type: "magazine", Title: "Current Magazine"},
	}

	// act
	result := borrowerloans.ProjectBorrowerLoans(query, openLoans, items, now, 31)

	// assert
	assert.Equal(t, "borrower-1", result.Borrower)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, uint(31), result.SequenceNumber)
	require.Len(t, result.Loans, 2)

	late := result.Loans[0]
	assert.Equal(t, "ITEM-001", late.ItemCode)
	assert.Equal(t, "Late Book", late.Title)
	assert.Equal(t, 1, late.Renewals)
	assert.True(t, late.IsOverdue)

	current := result.Loans[1]
	assert.Equal(t, "Current Magazine", current.Title)
	assert.False(t, current.IsOverdue)
}

func Test_ProjectBorrowerLoans_EmptyLedger(t *testing.T) {
	// arrange
	query, err := borrowerloans.BuildQuery("borrower-1")
	require.NoError(t, err)

	// act
	result := borrowerloans.ProjectBorrowerLoans(query, nil, nil, time.Now(), 3)

	// assert
	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Loans)
}

func Test_BuildQuery_RequiresABorrower(t *testing.T) {
	// act
	_, err := borrowerloans.BuildQuery("")

	// assert
	assert.Error(t, err)
}

// Test helpers

func givenOpenLoanRecord(
	itemCode string,
	itemType string,
	checkedOutAt time.Time,
	dueAt time.Time,
	renewals int,
) circstore.LoanRecord {
	return circstore.LoanRecord{
		ItemCode:     itemCode,
		ItemType:     itemType,
		Borrower:     "borrower-1",
		CheckedOutAt: checkedOutAt,
		DueAt:        dueAt,
		Renewals:     renewals,
	}
}
