package renewloan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_Decide_Success_ExtendsFromRenewalTime(t *testing.T) {
	// arrange
	now := time.Now()
	policy := givenBookPolicy()
	currentState := state{
		itemFound: true,
		item:      givenCheckedOutItem("ITEM-001", "borrower-1", now.Add(2*24*time.Hour)),
		loan:      givenOpenLoan("ITEM-001", "borrower-1", now.Add(2*24*time.Hour), 0),
	}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, policy)

	// assert
	renewed := assertSuccessDecision(t, result)
	assert.Equal(t, "ITEM-001", renewed.ItemCode)
	assert.Equal(t, "borrower-1", renewed.Borrower)
	assert.Equal(t, 1, renewed.Renewals)
	assert.Equal(t, core.ToOccurredAt(now.Add(policy.LoanPeriod)), renewed.DueAt, "due date should extend from the renewal time")
}

func Test_Decide_Success_DueDateNeverMovesBackwards(t *testing.T) {
	// arrange - the current due date is further out than now plus the loan period
	now := time.Now()
	policy := givenBookPolicy()
	farDueAt := now.Add(policy.LoanPeriod + 5*24*time.Hour)
	currentState := state{
		itemFound: true,
		item:      givenCheckedOutItem("ITEM-001", "borrower-1", farDueAt),
		loan:      givenOpenLoan("ITEM-001", "borrower-1", farDueAt, 0),
	}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, policy)

	// assert
	renewed := assertSuccessDecision(t, result)
	assert.Equal(t, core.ToOccurredAt(farDueAt), renewed.DueAt, "the further-out due date should be kept")
}

func Test_Decide_Success_WhenLoanIsOverdue(t *testing.T) {
	// arrange - a late renewal extends from now, it does not drift the schedule
	now := time.Now()
	policy := givenBookPolicy()
	pastDueAt := now.Add(-3 * 24 * time.Hour)
	overdueItem := givenCheckedOutItem("ITEM-001", "borrower-1", pastDueAt)
	overdueItem.Status = core.StatusOverdue
	currentState := state{
		itemFound: true,
		item:      overdueItem,
		loan:      givenOpenLoan("ITEM-001", "borrower-1", pastDueAt, 1),
	}

	command, err := BuildCommand("ITEM-001", "borrower-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command, policy)

	// assert
	renewed := assertSuccessDecision(t, result)
	assert.Equal(t, 2, renewed.Renewals)
	assert.Equal(t, core.ToOccurredAt(now.Add(policy.LoanPeriod)), renewed.DueAt)
}

func Test_Decide_BusinessErrors(t *testing.T) {
	now := time.Now()
	dueAt := now.Add(2 * 24 * time.Hour)
	bookPolicy := givenBookPolicy()

	noRenewalPolicy := bookPolicy
	noRenewalPolicy.AllowRenewal = false

	testCases := []struct {
		name           string
		currentState   state
		policy         core.BorrowingPolicy
		expectedReason core.RejectionReason
	}{
		{
			name:           "item never registered",
			currentState:   state{itemFound: false},
			policy:         bookPolicy,
			expectedReason: core.ReasonNotFound,
		},
		{
			name: "item in maintenance",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusMaintenance),
			},
			policy:         bookPolicy,
			expectedReason: core.ReasonItemUnavailable,
		},
		{
			name: "item available - no open loan to extend",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusAvailable),
			},
			policy:         bookPolicy,
			expectedReason: core.ReasonNoOpenLoan,
		},
		{
			name: "loan held by a different borrower",
			currentState: state{
				itemFound: true,
				item:      givenCheckedOutItem("ITEM-001", "borrower-2", dueAt),
				loan:      givenOpenLoan("ITEM-001", "borrower-2", dueAt, 0),
			},
			policy:         bookPolicy,
			expectedReason: core.ReasonBorrowerMismatch,
		},
		{
			name: "item type forbids renewal",
			currentState: state{
				itemFound: true,
				item:      givenCheckedOutItem("ITEM-001", "borrower-1", dueAt),
				loan:      givenOpenLoan("ITEM-001", "borrower-1", dueAt, 0),
			},
			policy:         noRenewalPolicy,
			expectedReason: core.ReasonRenewalNotAllowed,
		},
		{
			name: "loan at the renewal limit",
			currentState: state{
				itemFound: true,
				item:      givenCheckedOutItem("ITEM-001", "borrower-1", dueAt),
				loan:      givenOpenLoan("ITEM-001", "borrower-1", dueAt, bookPolicy.MaxRenewals),
			},
			policy:         bookPolicy,
			expectedReason: core.ReasonRenewalLimitExceeded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			command, err := BuildCommand("ITEM-001", "borrower-1", now)
			require.NoError(t, err)

			// act
			result := Decide(tc.currentState, command, tc.policy)

			// assert
			assertErrorDecision(t, result, tc.expectedReason)
		})
	}
}

func Test_Decide_RenewalNeverDecreasesTheDueDate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// arrange - a renewable loan whose due date lies anywhere around now
		now := time.Now()
		policy := givenBookPolicy()
		dueOffset := time.Duration(rapid.IntRange(-30, 30).Draw(t, "dueOffsetDays")) * 24 * time.Hour
		renewals := rapid.IntRange(0, policy.MaxRenewals-1).Draw(t, "renewals")
		dueAt := now.Add(dueOffset)

		currentState := state{
			itemFound: true,
			item:      givenCheckedOutItem("ITEM-001", "borrower-1", dueAt),
			loan:      givenOpenLoan("ITEM-001", "borrower-1", dueAt, renewals),
		}

		command, err := BuildCommand("ITEM-001", "borrower-1", now)
		require.NoError(t, err)

		// act
		result := Decide(currentState, command, policy)

		// assert
		renewed := assertSuccessDecision(t, result)
		assert.False(t, renewed.DueAt.Before(core.ToOccurredAt(dueAt)),
			"a renewal must never move the due date backwards")
	})
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

func givenOpenLoan(itemCode string, borrower string, dueAt time.Time, renewals int) core.Loan {
	return core.Loan{
		ItemCode:     itemCode,
		Borrower:     borrower,
		CheckedOutAt: dueAt.Add(-14 * 24 * time.Hour),
		DueAt:        dueAt,
		Renewals:     renewals,
	}
}

func assertSuccessDecision(t interface {
	Helper()
	Errorf(format string, args ...interface{})
}, result core.DecisionResult) core.LoanRenewed {
	t.Helper()
	assert.Equal(t, "success", result.Outcome, "Expected success decision")
	assert.NoError(t, result.HasError(), "Expected no error for success decision")

	renewed, ok := result.Transition.(core.LoanRenewed)
	assert.True(t, ok, "Expected LoanRenewed transition")

	return renewed
}

func assertErrorDecision(t *testing.T, result core.DecisionResult, expectedReason core.RejectionReason) {
	t.Helper()
	assert.Equal(t, "error", result.Outcome, "Expected error decision")
	assert.Nil(t, result.Transition, "Expected no transition for error decision")

	rejection, ok := core.AsRejection(result.HasError())
	assert.True(t, ok, "Expected a rejection error")
	assert.Equal(t, expectedReason, rejection.Reason)
}
