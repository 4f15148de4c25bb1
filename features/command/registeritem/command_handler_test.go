package registeritem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore/badgerengine"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/registeritem"
	"github.com/stacksys/circulation-tracker-go/shell"
	"github.com/stacksys/circulation-tracker-go/testutil/helper"
)

func Test_CommandHandler_Handle_RegistersANewItem(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)

	handler := registeritem.NewCommandHandler(
		store,
		helper.GivenTestPolicies(t),
		shell.NewStaticCapabilityChecker(helper.TestActor),
	)

	command, err := registeritem.BuildCommand(itemCode, "book", "The Go Programming Language", "Donovan and Kernighan", helper.TestActor, time.Now())
	require.NoError(t, err)

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.False(t, result.Idempotent)

	record, found, err := store.LoadItem(ctx, itemCode)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "book", record.ItemType)
	assert.Equal(t, "The Go Programming Language", record.Title)
	assert.Equal(t, string(core.StatusAvailable), record.Status)
	assert.Equal(t, uint(1), record.Version)
}

func Test_CommandHandler_Handle_RejectsADuplicateItemCode(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenRegisteredItem(t, ctx, store, itemCode, "book")

	handler := registeritem.NewCommandHandler(
		store,
		helper.GivenTestPolicies(t),
		shell.NewStaticCapabilityChecker(helper.TestActor),
	)

	command, err := registeritem.BuildCommand(itemCode, "book", "Another Title", "Another Creator", helper.TestActor, time.Now())
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	rejection, ok := core.AsRejection(err)
	require.True(t, ok, "Expected a rejection error")
	assert.Equal(t, core.ReasonDuplicateItem, rejection.Reason)

	record, _, loadErr := store.LoadItem(ctx, itemCode)
	require.NoError(t, loadErr)
	assert.Equal(t, "Test Title", record.Title, "the original registration must stay untouched")
}

func Test_CommandHandler_Handle_RejectsAnItemTypeWithoutAPolicy(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)

	handler := registeritem.NewCommandHandler(
		store,
		helper.GivenTestPolicies(t),
		shell.NewStaticCapabilityChecker(helper.TestActor),
	)

	command, err := registeritem.BuildCommand(helper.GivenUniqueItemCode(t), "vinyl", "Some Record", "Some Artist", helper.TestActor, time.Now())
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	rejection, ok := core.AsRejection(err)
	require.True(t, ok, "Expected a rejection error")
	assert.Equal(t, core.ReasonUnknownItemType, rejection.Reason)
}

func Test_CommandHandler_Handle_DeniesAnUnknownActor(t *testing.T) {
	// arrange - the capability check runs before any store work
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)

	handler := registeritem.NewCommandHandler(
		store,
		helper.GivenTestPolicies(t),
		shell.NewStaticCapabilityChecker(helper.TestActor),
	)

	command, err := registeritem.BuildCommand(itemCode, "book", "Test Title", "Test Creator", "somebody-else", time.Now())
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	require.ErrorIs(t, err, shell.ErrActionNotPermitted)

	_, found, loadErr := store.LoadItem(ctx, itemCode)
	require.NoError(t, loadErr)
	assert.False(t, found, "a denied registration must not write anything")
}

func givenStore(t *testing.T) *badgerengine.CirculationStore {
	t.Helper()

	store, err := badgerengine.OpenInMemoryCirculationStore()
	require.NoError(t, err, "error opening in-memory store in test setup")

	t.Cleanup(func() { _ = store.Close() })

	return store
}
