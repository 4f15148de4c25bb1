package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_Item_Validate_EnforcesBorrowerAndDueDateInvariant(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		status   core.ItemStatus
		borrower core.BorrowerIDString
		dueAt    time.Time
		wantErr  bool
	}{
		{name: "available with neither", status: core.StatusAvailable, wantErr: false},
		{name: "checked out with both", status: core.StatusCheckedOut, borrower: "U1", dueAt: now, wantErr: false},
		{name: "overdue with both", status: core.StatusOverdue, borrower: "U1", dueAt: now, wantErr: false},
		{name: "checked out without borrower", status: core.StatusCheckedOut, dueAt: now, wantErr: true},
		{name: "checked out without due date", status: core.StatusCheckedOut, borrower: "U1", wantErr: true},
		{name: "available with borrower", status: core.StatusAvailable, borrower: "U1", wantErr: true},
		{name: "maintenance with due date", status: core.StatusMaintenance, dueAt: now, wantErr: true},
		{name: "retired with both", status: core.StatusRetired, borrower: "U1", dueAt: now, wantErr: true},
		{name: "unknown status", status: "Misplaced", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item := core.Item{Code: "BK-001", Type: "Book", Status: tc.status, Borrower: tc.borrower, DueAt: tc.dueAt}

			err := item.Validate()

			if tc.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Item_Validate_BorrowerAndDueDateTrackLoanStatusesExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// arrange - any status paired with any borrower/due-date combination
		now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

		status := rapid.SampledFrom([]core.ItemStatus{
			core.StatusAvailable,
			core.StatusCheckedOut,
			core.StatusOverdue,
			core.StatusMaintenance,
			core.StatusLost,
			core.StatusRetired,
		}).Draw(t, "status")

		borrower := core.BorrowerIDString("")
		if rapid.Bool().Draw(t, "hasBorrower") {
			borrower = "U1"
		}

		dueAt := time.Time{}
		if rapid.Bool().Draw(t, "hasDueDate") {
			dueAt = now
		}

		item := core.Item{Code: "BK-001", Type: "Book", Status: status, Borrower: borrower, DueAt: dueAt}

		// act
		err := item.Validate()

		// assert - loan statuses carry both fields, all others carry neither
		onLoan := status == core.StatusCheckedOut || status == core.StatusOverdue
		bothSet := borrower != "" && !dueAt.IsZero()
		neitherSet := borrower == "" && dueAt.IsZero()

		if (onLoan && bothSet) || (!onLoan && neitherSet) {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, core.ErrInvalidTransition)
		}
	})
}

func Test_ParseItemStatus(t *testing.T) {
	// act + assert - every declared status round-trips
	for _, status := range []core.ItemStatus{
		core.StatusAvailable,
		core.StatusCheckedOut,
		core.StatusOverdue,
		core.StatusMaintenance,
		core.StatusLost,
		core.StatusRetired,
	} {
		parsed, err := core.ParseItemStatus(string(status))
		assert.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := core.ParseItemStatus("Borrowed")
	assert.Error(t, err)
}

func Test_Item_StatusPredicates(t *testing.T) {
	assert.True(t, core.Item{Status: core.StatusCheckedOut}.IsOnLoan())
	assert.True(t, core.Item{Status: core.StatusOverdue}.IsOnLoan())
	assert.False(t, core.Item{Status: core.StatusAvailable}.IsOnLoan())

	assert.True(t, core.Item{Status: core.StatusMaintenance}.IsWithdrawn())
	assert.True(t, core.Item{Status: core.StatusLost}.IsWithdrawn())
	assert.True(t, core.Item{Status: core.StatusRetired}.IsWithdrawn())
	assert.False(t, core.Item{Status: core.StatusAvailable}.IsWithdrawn())
	assert.False(t, core.Item{Status: core.StatusCheckedOut}.IsWithdrawn())
}
