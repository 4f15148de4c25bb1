package retireitem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore/badgerengine"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/retireitem"
	"github.com/stacksys/circulation-tracker-go/shell"
	"github.com/stacksys/circulation-tracker-go/testutil/helper"
)

func Test_CommandHandler_Handle_RetiresAnItem(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenRegisteredItem(t, ctx, store, itemCode, "book")

	handler := retireitem.NewCommandHandler(store, shell.NewStaticCapabilityChecker(helper.TestActor))

	command, err := retireitem.BuildCommand(itemCode, helper.TestActor, time.Now())
	require.NoError(t, err)

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.False(t, result.Idempotent)

	record, found, err := store.LoadItem(ctx, itemCode)
	require.NoError(t, err)
	require.True(t, found, "a retired item keeps its row")
	assert.Equal(t, string(core.StatusRetired), record.Status)
}

func Test_CommandHandler_Handle_IsIdempotentForAnAlreadyRetiredItem(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenRegisteredItem(t, ctx, store, itemCode, "book")

	handler := retireitem.NewCommandHandler(store, shell.NewStaticCapabilityChecker(helper.TestActor))

	command, err := retireitem.BuildCommand(itemCode, helper.TestActor, time.Now())
	require.NoError(t, err)

	_, err = handler.Handle(ctx, command)
	require.NoError(t, err)

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.True(t, result.Idempotent)
}

func Test_CommandHandler_Handle_RejectsRetiringAnItemOnLoan(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", helper.GivenUniqueBorrower(t))

	handler := retireitem.NewCommandHandler(store, shell.NewStaticCapabilityChecker(helper.TestActor))

	command, err := retireitem.BuildCommand(itemCode, helper.TestActor, time.Now())
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	rejection, ok := core.AsRejection(err)
	require.True(t, ok, "Expected a rejection error")
	assert.Equal(t, core.ReasonItemUnavailable, rejection.Reason)

	record, _, loadErr := store.LoadItem(ctx, itemCode)
	require.NoError(t, loadErr)
	assert.Equal(t, string(core.StatusCheckedOut), record.Status, "the open loan must stay untouched")
}

func Test_CommandHandler_Handle_DeniesAnUnknownActor(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := givenStore(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenRegisteredItem(t, ctx, store, itemCode, "book")

	handler := retireitem.NewCommandHandler(store, shell.NewStaticCapabilityChecker(helper.TestActor))

	command, err := retireitem.BuildCommand(itemCode, "somebody-else", time.Now())
	require.NoError(t, err)

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	require.ErrorIs(t, err, shell.ErrActionNotPermitted)

	record, _, loadErr := store.LoadItem(ctx, itemCode)
	require.NoError(t, loadErr)
	assert.Equal(t, string(core.StatusAvailable), record.Status)
}

func givenStore(t *testing.T) *badgerengine.CirculationStore {
	t.Helper()

	store, err := badgerengine.OpenInMemoryCirculationStore()
	require.NoError(t, err, "error opening in-memory store in test setup")

	t.Cleanup(func() { _ = store.Close() })

	return store
}
