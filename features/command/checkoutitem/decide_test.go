package checkoutitem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_Decide_Success_WhenItemIsAvailable(t *testing.T) {
	// arrange
	now := time.Now()
	policy := givenBookPolicy()
	currentState := state{
		itemFound: true,
		item:      givenAvailableItem("ITEM-001"),
	}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, policy)

	// assert
	checkedOut := assertSuccessDecision(t, result)
	assert.Equal(t, "ITEM-001", checkedOut.ItemCode)
	assert.Equal(t, "borrower-1", checkedOut.Borrower)
	assert.Equal(t, core.ToOccurredAt(now.Add(policy.LoanPeriod)), checkedOut.DueAt, "due date should be checkout time plus loan period")
}

func Test_Decide_Success_WhenBorrowerIsOneBelowTheLoanLimit(t *testing.T) {
	// arrange
	now := time.Now()
	policy := givenBookPolicy()
	currentState := state{
		itemFound:     true,
		item:          givenAvailableItem("ITEM-001"),
		openLoanCount: policy.MaxConcurrentLoans - 1,
	}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, policy)

	// assert
	assertSuccessDecision(t, result)
}

func Test_Decide_Idempotent_WhenItemIsAlreadyWithThisBorrower(t *testing.T) {
	// arrange
	now := time.Now()
	currentState := state{
		itemFound: true,
		item:      givenCheckedOutItem("ITEM-001", "borrower-1", now.Add(7*24*time.Hour)),
	}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, givenBookPolicy())

	// assert
	assert.Equal(t, "idempotent", result.Outcome)
	assert.Nil(t, result.Transition)
	assert.NoError(t, result.HasError())
}

func Test_Decide_Idempotent_WhenLoanToThisBorrowerIsAlreadyOverdue(t *testing.T) {
	// arrange
	now := time.Now()
	overdueItem := givenCheckedOutItem("ITEM-001", "borrower-1", now.Add(-3*24*time.Hour))
	overdueItem.Status = core.StatusOverdue
	currentState := state{itemFound: true, item: overdueItem}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, givenBookPolicy())

	// assert
	assert.Equal(t, "idempotent", result.Outcome)
	assert.Nil(t, result.Transition)
}

func Test_Decide_BusinessErrors(t *testing.T) {
	now := time.Now()
	policy := givenBookPolicy()

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
			name: "item checked out to another borrower",
			currentState: state{
				itemFound: true,
				item:      givenCheckedOutItem("ITEM-001", "borrower-2", now.Add(7*24*time.Hour)),
			},
			expectedReason: core.ReasonItemUnavailable,
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
			name: "borrower at the loan limit",
			currentState: state{
				itemFound:     true,
				item:          givenAvailableItem("ITEM-001"),
				openLoanCount: policy.MaxConcurrentLoans,
			},
			expectedReason: core.ReasonBorrowingLimitExceeded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			command, err := BuildCommand("ITEM-001", "borrower-1", now)
			require.NoError(t, err)

			// act
			result := Decide(tc.currentState, command, policy)

			// assert
			assertErrorDecision(t, result, tc.expectedReason)
		})
	}
}

// Test helpers

func givenBookPolicy() core.BorrowingPolicy {
	return core.BorrowingPolicy{
		ItemType:           "book",
		MaxConcurrentLoans: 3,
		LoanPeriod:         14 * 24 * time.Hour,
		AllowRenewal:       true,
		MaxRenewals:        2,
	}
}

func givenAvailableItem(itemCode string) core.Item {
	return core.Item{
		Code:    itemCode,
		Type:    "book",
		Title:   "Test Title",
		Creator: "Test Creator",
		Status:  core.StatusAvailable,
	}
}

func givenItemWithStatus(itemCode string, status core.ItemStatus) core.Item {
	item := givenAvailableItem(itemCode)
	item.Status = status

	return item
}

func givenCheckedOutItem(itemCode string, borrower string, dueAt time.Time) core.Item {
	item := givenAvailableItem(itemCode)
	item.Status = core.StatusCheckedOut
	item.Borrower = borrower
	item.DueAt = dueAt

	return item
}

func assertSuccessDecision(t *testing.T, result core.DecisionResult) core.ItemCheckedOut {
	t.Helper()
	assert.Equal(t, "success", result.Outcome, "Expected success decision")
	assert.NoError(t, result.HasError(), "Expected no error for success decision")

	checkedOut, ok := result.Transition.(core.ItemCheckedOut)
	assert.True(t, ok, "Expected ItemCheckedOut transition")

	return checkedOut
}

func assertErrorDecision(t *testing.T, result core.DecisionResult, expectedReason core.RejectionReason) {
	t.Helper()
	assert.Equal(t, "error", result.Outcome, "Expected error decision")
	assert.Nil(t, result.Transition, "Expected no transition for error decision")

	rejection, ok := core.AsRejection(result.HasError())
	assert.True(t, ok, "Expected a rejection error")
	assert.Equal(t, expectedReason, rejection.Reason)
}
