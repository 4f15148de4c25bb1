package returnitem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore/badgerengine"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/testutil/helper"
)

func Test_CommandHandler_Handle_ReturnsAnItemOnLoan(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	borrower := helper.GivenUniqueBorrower(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", borrower)

	handler := returnitem.NewCommandHandler(store)

	command, err := returnitem.BuildCommand(itemCode, time.Now())
	require.NoError(t, err)

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.False(t, result.Idempotent)

	record, found, err := store.LoadItem(ctx, itemCode)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, string(core.StatusAvailable), record.Status)
	assert.Empty(t, record.Borrower)
	assert.True(t, record.DueAt.IsZero())

	_, found, err = store.LoadOpenLoan(ctx, itemCode)
	require.NoError(t, err)
	assert.False(t, found, "the loan should be closed")
}

func Test_CommandHandler_Handle_RejectsReturnOfAnItemWithNoOpenLoan(t *testing.T) {
	// arrange - the item was already returned, a second scan must read correctly
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	borrower := helper.GivenUniqueBorrower(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", borrower)

	handler := returnitem.NewCommandHandler(store)

	command, err := returnitem.BuildCommand(itemCode, time.Now())
	require.NoError(t, err)

	_, err = handler.Handle(ctx, command)
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	rejection, ok := core.AsRejection(err)
	require.True(t, ok, "Expected a rejection error")
	assert.Equal(t, core.ReasonNoOpenLoan, rejection.Reason)
}

func Test_CommandHandler_Handle_RejectsReturnOfAnUnknownItem(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)

	handler := returnitem.NewCommandHandler(store)

	command, err := returnitem.BuildCommand(helper.GivenUniqueItemCode(t), time.Now())
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	rejection, ok := core.AsRejection(err)
	require.True(t, ok, "Expected a rejection error")
	assert.Equal(t, core.ReasonNotFound, rejection.Reason)
}

func givenStore(t *testing.T) *badgerengine.CirculationStore {
	t.Helper()

	store, err := badgerengine.OpenInMemoryCirculationStore()
	require.NoError(t, err, "error opening in-memory store in test setup")

	t.Cleanup(func() { _ = store.Close() })

	return store
}
