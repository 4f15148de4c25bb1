package returnitem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_Decide_Success_WhenItemIsOnLoan(t *testing.T) {
	// arrange
	now := time.Now()
	currentState := state{
		itemFound: true,
		item:      givenCheckedOutItem("ITEM-001", "borrower-1", now.Add(7*24*time.Hour)),
	}

	command, err := BuildCommand("ITEM-001", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command)

	// assert
	returned := assertSuccessDecision(t, result)
	assert.Equal(t, "ITEM-001", returned.ItemCode)
	assert.Equal(t, "borrower-1", returned.Borrower, "return should close the loan held by the current borrower")
}

func Test_Decide_Success_WhenLoanIsOverdue(t *testing.T) {
	// arrange - lateness is a reporting concern, the return itself goes through
	now := time.Now()
	overdueItem := givenCheckedOutItem("ITEM-001", "borrower-1", now.Add(-10*24*time.Hour))
	overdueItem.Status = core.StatusOverdue
	currentState := state{itemFound: true, item: overdueItem}

	command, err := BuildCommand("ITEM-001", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command)

	// assert
	returned := assertSuccessDecision(t, result)
	assert.Equal(t, "borrower-1", returned.Borrower)
}

func Test_Decide_BusinessErrors(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name           string
		currentState   state
		expectedReason core.RejectionReason
	}{
		{
			name:           "item never registered",
			currentState:   state{itemFound: false},
			expectedReason: core.ReasonNotFound,
		},
		{
			name: "item in maintenance",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusMaintenance),
			},
			expectedReason: core.ReasonItemUnavailable,
		},
		{
			name: "item recorded as lost",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusLost),
			},
			expectedReason: core.ReasonItemUnavailable,
		},
		{
			name: "item retired",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusRetired),
			},
			expectedReason: core.ReasonItemUnavailable,
		},
		{
			name: "item available - no open loan to close",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusAvailable),
			},
			expectedReason: core.ReasonNoOpenLoan,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			command, err := BuildCommand("ITEM-001", now)
			require.NoError(t, err)

			// act
			result := Decide(tc.currentState, command)

			// assert
			assertErrorDecision(t, result, tc.expectedReason)
		})
	}
}

// Test helpers

func givenItemWithStatus(itemCode string, status core.ItemStatus) core.Item {
	return core.Item{
		Code:    itemCode,
		Type:    "book",
		Title:   "Test Title",
		Creator: "Test Creator",
		Status:  status,
	}
}

func givenCheckedOutItem(itemCode string, borrower string, dueAt time.Time) core.Item {
	item := givenItemWithStatus(itemCode, core.StatusCheckedOut)
	item.Borrower = borrower
	item.DueAt = dueAt

	return item
}

func assertSuccessDecision(t *testing.T, result core.DecisionResult) core.ItemReturned {
	t.Helper()
	assert.Equal(t, "success", result.Outcome, "Expected success decision")
	assert.NoError(t, result.HasError(), "Expected no error for success decision")

	returned, ok := result.Transition.(core.ItemReturned)
	assert.True(t, ok, "Expected ItemReturned transition")

	return returned
}

func assertErrorDecision(t *testing.T, result core.DecisionResult, expectedReason core.RejectionReason) {
	t.Helper()
	assert.Equal(t, "error", result.Outcome, "Expected error decision")
	assert.Nil(t, result.Transition, "Expected no transition for error decision")

	rejection, ok := core.AsRejection(result.HasError())
	assert.True(t, ok, "Expected a rejection error")
	assert.Equal(t, expectedReason, rejection.Reason)
}
