package setitemcondition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_Decide_Success_ConditionTransitions(t *testing.T) {
	testCases := []struct {
		name         string
		fromStatus   core.ItemStatus
		targetStatus core.ItemStatus
	}{
		{name: "available to maintenance", fromStatus: core.StatusAvailable, targetStatus: core.StatusMaintenance},
		{name: "maintenance back to available", fromStatus: core.StatusMaintenance, targetStatus: core.StatusAvailable},
		{name: "available to lost", fromStatus: core.StatusAvailable, targetStatus: core.StatusLost},
		{name: "maintenance to lost", fromStatus: core.StatusMaintenance, targetStatus: core.StatusLost},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			now := time.Now()
			currentState := state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", tc.fromStatus),
			}

			command, err := BuildCommand("ITEM-001", string(tc.targetStatus), "librarian-1", now)
			require.NoError(t, err)

			// act
			result := Decide(currentState, command)

			// assert
			assert.Equal(t, "success", result.Outcome)
			assert.NoError(t, result.HasError())

			changed, ok := result.Transition.(core.ItemConditionChanged)
			assert.True(t, ok, "Expected ItemConditionChanged transition")
			assert.Equal(t, "ITEM-001", changed.ItemCode)
			assert.Equal(t, tc.targetStatus, changed.NextStatus)
		})
	}
}

func Test_Decide_Idempotent_WhenItemIsAlreadyInTheTargetCondition(t *testing.T) {
	// arrange
	now := time.Now()
	currentState := state{
		itemFound: true,
		item:      givenItemWithStatus("ITEM-001", core.StatusMaintenance),
	}

	command, err := BuildCommand("ITEM-001", string(core.StatusMaintenance), "librarian-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command)

	// assert
	assert.Equal(t, "idempotent", result.Outcome)
	assert.Nil(t, result.Transition)
	assert.NoError(t, result.HasError())
}

func Test_Decide_Idempotent_WhenLostItemIsMarkedLostAgain(t *testing.T) {
	// arrange
	now := time.Now()
	currentState := state{
		itemFound: true,
		item:      givenItemWithStatus("ITEM-001", core.StatusLost),
	}

	command, err := BuildCommand("ITEM-001", string(core.StatusLost), "librarian-1", now)
	require.NoError(t, err)

	// act
	result := Decide(currentState, command)

	// assert
	assert.Equal(t, "idempotent", result.Outcome)
	assert.Nil(t, result.Transition)
}

func Test_Decide_BusinessErrors(t *testing.T) {
	now := time.Now()

	onLoanItem := givenItemWithStatus("ITEM-001", core.StatusCheckedOut)
	onLoanItem.Borrower = "borrower-1"
	onLoanItem.DueAt = now.Add(7 * 24 * time.Hour)

	testCases := []struct {
		name           string
		currentState   state
		targetStatus   core.ItemStatus
		expectedReason core.RejectionReason
	}{
		{
			name:           "item never registered",
			currentState:   state{itemFound: false},
			targetStatus:   core.StatusMaintenance,
			expectedReason: core.ReasonNotFound,
		},
		{
			name:           "item on loan",
			currentState:   state{itemFound: true, item: onLoanItem},
			targetStatus:   core.StatusMaintenance,
			expectedReason: core.ReasonItemUnavailable,
		},
		{
			name: "item retired",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusRetired),
			},
			targetStatus:   core.StatusAvailable,
			expectedReason: core.ReasonItemUnavailable,
		},
		{
			name: "lost item cannot come back via condition change",
			currentState: state{
				itemFound: true,
				item:      givenItemWithStatus("ITEM-001", core.StatusLost),
			},
			targetStatus:   core.StatusAvailable,
			expectedReason: core.ReasonItemUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			command, err := BuildCommand("ITEM-001", string(tc.targetStatus), "librarian-1", now)
			require.NoError(t, err)

			// act
			result := Decide(tc.currentState, command)

			// assert
			assert.Equal(t, "error", result.Outcome, "Expected error decision")
			assert.Nil(t, result.Transition, "Expected no transition for error decision")

			rejection, ok := core.AsRejection(result.HasError())
			assert.True(t, ok, "Expected a rejection error")
			assert.Equal(t, tc.expectedReason, rejection.Reason)
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
