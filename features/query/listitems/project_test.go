package listitems_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/query/listitems"
)

func Test_ProjectItemList_ListsEveryItemWithItsEffectiveStatus(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	items := []core.Item{
		{Code: "ITEM-001", Type: "book", Title: "Available One", Status: core.StatusAvailable},
		{Code: "ITEM-002", Type: "book", Title: "On Loan", Status: core.StatusCheckedOut, Borrower: "borrower-1", DueAt: now.Add(5 * 24 * time.Hour)},
		{Code: "ITEM-003", Type: "dvd", Title: "Past Due", Status: core.StatusCheckedOut, Borrower: "borrower-2", DueAt: now.Add(-2 * 24 * time.Hour)},
		{Code: "ITEM-004", Type: "book", Title: "Gone", Status: core.StatusRetired},
	}

	// act
	list := listitems.ProjectItemList(items, now, 17)

	// assert
	require.Len(t, list.Items, 4, "retired items stay in the list")
	assert.Equal(t, 4, list.Count)
	assert.Equal(t, uint(17), list.SequenceNumber)

	assert.Equal(t, string(core.StatusAvailable), list.Items[0].Status)
	assert.Equal(t, string(core.StatusCheckedOut), list.Items[1].Status)
	assert.Equal(t, string(core.StatusOverdue), list.Items[2].Status, "an expired due date reads as Overdue without any write")
	assert.Equal(t, string(core.StatusRetired), list.Items[3].Status)
}

func Test_ProjectItemList_OnlyItemsOnLoanCarryADueDate(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	dueAt := now.Add(5 * 24 * time.Hour)

	items := []core.Item{
		{Code: "ITEM-001", Type: "book", Title: "Available", Status: core.StatusAvailable},
		{Code: "ITEM-002", Type: "book", Title: "On Loan", Status: core.StatusCheckedOut, Borrower: "borrower-1", DueAt: dueAt},
	}

	// act
	list := listitems.ProjectItemList(items, now, 1)

	// assert
	assert.Nil(t, list.Items[0].DueAt)
	require.NotNil(t, list.Items[1].DueAt)
	assert.True(t, list.Items[1].DueAt.Equal(dueAt))
	assert.Equal(t, "borrower-1", list.Items[1].Borrower)
}

func Test_ProjectItemList_EmptyRegistry(t *testing.T) {
	// act
	list := listitems.ProjectItemList(nil, time.Now(), 0)

	// assert
	assert.Empty(t, list.Items)
	assert.Equal(t, 0, list.Count)
}
