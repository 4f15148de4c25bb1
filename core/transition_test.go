package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stacksys/circulation-tracker-go/core"
)

func Test_ApplyTransition_ItemRegistered(t *testing.T) {
	// arrange
	occurredAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	transition := core.BuildItemRegistered("BK-001", "Book", "The Go Programming Language", "Donovan & Kernighan", occurredAt)

	// act
	item, err := core.ApplyTransition(core.Item{}, transition)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "BK-001", item.Code)
	assert.Equal(t, "Book", item.Type)
	assert.Equal(t, core.StatusAvailable, item.Status)
	assert.Empty(t, item.Borrower)
	assert.True(t, item.DueAt.IsZero())
}

func Test_ApplyTransition_ItemCheckedOut(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()
	transition := core.BuildItemCheckedOut(item.Code, "U1", now.Add(14*24*time.Hour), now)

	// act
	next, err := core.ApplyTransition(item, transition)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, core.StatusCheckedOut, next.Status)
	assert.Equal(t, "U1", next.Borrower)
	assert.Equal(t, now.Add(14*24*time.Hour), next.DueAt)
	assert.NoError(t, next.Validate())
}

func Test_ApplyTransition_CheckoutThenReturnRestoresAvailable(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()

	checkedOut, err := core.ApplyTransition(item, core.BuildItemCheckedOut(item.Code, "U1", now.Add(14*24*time.Hour), now))
	assert.NoError(t, err)

	// act - return far past the due date
	returned, err := core.ApplyTransition(checkedOut, core.BuildItemReturned(item.Code, "U1", now.Add(60*24*time.Hour)))

	// assert - status restored and borrower/due date cleared
	assert.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, returned.Status)
	assert.Empty(t, returned.Borrower)
	assert.True(t, returned.DueAt.IsZero())
	assert.NoError(t, returned.Validate())
}

func Test_ApplyTransition_LoanRenewed(t *testing.T) {
	// arrange - the item already reads as overdue in storage terms
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()
	item.Status = core.StatusCheckedOut
	item.Borrower = "U1"
	item.DueAt = now.Add(-2 * 24 * time.Hour)

	transition := core.BuildLoanRenewed(item.Code, "U1", now.Add(14*24*time.Hour), 1, now)

	// act
	next, err := core.ApplyTransition(item, transition)

	// assert - due date extended, status reset to checked out
	assert.NoError(t, err)
	assert.Equal(t, core.StatusCheckedOut, next.Status)
	assert.Equal(t, now.Add(14*24*time.Hour), next.DueAt)
	assert.Equal(t, core.StatusCheckedOut, core.EffectiveStatus(next.Status, next.DueAt, now))
}

func Test_ApplyTransition_ItemConditionChanged(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()

	// act
	next, err := core.ApplyTransition(item, core.BuildItemConditionChanged(item.Code, core.StatusMaintenance, now))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, core.StatusMaintenance, next.Status)
}

func Test_ApplyTransition_ItemConditionChanged_RejectsLoanStatuses(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()

	// act - a condition change must not fabricate a loan
	_, err := core.ApplyTransition(item, core.BuildItemConditionChanged(item.Code, core.StatusCheckedOut, now))

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func Test_ApplyTransition_ItemRetired(t *testing.T) {
	// arrange
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()

	// act
	next, err := core.ApplyTransition(item, core.BuildItemRetired(item.Code, now))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, core.StatusRetired, next.Status)
	assert.Empty(t, next.Borrower)
}

func Test_ApplyTransition_ReportsInvariantViolations(t *testing.T) {
	// arrange - a checkout transition without a borrower is a bug
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	item := availableItem()
	transition := core.BuildItemCheckedOut(item.Code, "", now.Add(14*24*time.Hour), now)

	// act
	_, err := core.ApplyTransition(item, transition)

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func Test_ApplyTransition_RejectsUnknownTransitionTypes(t *testing.T) {
	// arrange
	item := availableItem()

	// act
	_, err := core.ApplyTransition(item, unknownTransition{})

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

type unknownTransition struct{}

func (t unknownTransition) IsTransitionType() string { return "SomethingElse" }
func (t unknownTransition) HasOccurredAt() time.Time { return time.Time{} }

func availableItem() core.Item {
	return core.Item{
		Code:    "BK-001",
		Type:    "Book",
		Title:   "The Go Programming Language",
		Creator: "Donovan & Kernighan",
		Status:  core.StatusAvailable,
	}
}
