package scan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore/badgerengine"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/scan"
	"github.com/stacksys/circulation-tracker-go/testutil/helper"
)

func Test_ParseIntent(t *testing.T) {
	t.Run("checkout and return are valid intents", func(t *testing.T) {
		intent, err := scan.ParseIntent("checkout")
		require.NoError(t, err)
		assert.Equal(t, scan.IntentCheckout, intent)

		intent, err = scan.ParseIntent("return")
		require.NoError(t, err)
		assert.Equal(t, scan.IntentReturn, intent)
	})

	t.Run("anything else is rejected", func(t *testing.T) {
		_, err := scan.ParseIntent("renew")
		assert.ErrorIs(t, err, scan.ErrUnknownIntent)
	})
}

func Test_Intake_ProcessScan_CheckoutScanLendsTheItem(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, intake := givenIntake(t)
	itemCode := helper.GivenUniqueItemCode(t)
	borrower := helper.GivenUniqueBorrower(t)
	helper.GivenRegisteredItem(t, ctx, store, itemCode, "book")

	// act
	result, err := intake.ProcessScan(ctx, itemCode, scan.IntentCheckout, borrower)

	// assert
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Equal(t, "item checked out", result.Message)
	require.NotNil(t, result.Item)
	assert.Equal(t, string(core.StatusCheckedOut), result.Item.Status)
	assert.Equal(t, borrower, result.Item.Borrower)
}

func Test_Intake_ProcessScan_RepeatCheckoutScanIsAnIdempotentSuccess(t *testing.T) {
	// arrange - scanning stations double-submit, the second scan must not error
	ctx := context.Background()
	store, intake := givenIntake(t)
	itemCode := helper.GivenUniqueItemCode(t)
	borrower := helper.GivenUniqueBorrower(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", borrower)

	// act
	result, err := intake.ProcessScan(ctx, itemCode, scan.IntentCheckout, borrower)

	// assert
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Equal(t, "item is already checked out to this borrower", result.Message)
}

func Test_Intake_ProcessScan_CheckoutScanOfAHeldItemIsACleanRejection(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, intake := givenIntake(t)
	itemCode := helper.GivenUniqueItemCode(t)
	holder := helper.GivenUniqueBorrower(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", holder)

	// act
	result, err := intake.ProcessScan(ctx, itemCode, scan.IntentCheckout, helper.GivenUniqueBorrower(t))

	// assert - a business refusal is a result, not an error
	require.NoError(t, err)
	assert.False(t, result.IsSuccess)
	assert.Equal(t, "item is not available for checkout", result.Message)
	require.NotNil(t, result.Item)
	assert.Equal(t, holder, result.Item.Borrower, "the view shows who holds the item")
}

func Test_Intake_ProcessScan_ReturnScanClosesTheLoan(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, intake := givenIntake(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", helper.GivenUniqueBorrower(t))

	// act
	result, err := intake.ProcessScan(ctx, itemCode, scan.IntentReturn, "")

	// assert
	require.NoError(t, err)
	assert.True(t, result.IsSuccess)
	assert.Equal(t, "item returned", result.Message)
	require.NotNil(t, result.Item)
	assert.Equal(t, string(core.StatusAvailable), result.Item.Status)
}

func Test_Intake_ProcessScan_SecondReturnScanIsACleanRejection(t *testing.T) {
	// arrange
	ctx := context.Background()
	store, intake := givenIntake(t)
	itemCode := helper.GivenUniqueItemCode(t)
	helper.GivenCheckedOutItem(t, ctx, store, itemCode, "book", helper.GivenUniqueBorrower(t))

	_, err := intake.ProcessScan(ctx, itemCode, scan.IntentReturn, "")
	require.NoError(t, err)

	// act
	result, err := intake.ProcessScan(ctx, itemCode, scan.IntentReturn, "")

	// assert
	require.NoError(t, err)
	assert.False(t, result.IsSuccess)
	assert.Equal(t, "item has no open loan", result.Message)
}

func Test_Intake_ProcessScan_UnknownIntentIsAnError(t *testing.T) {
	// arrange
	ctx := context.Background()
	_, intake := givenIntake(t)

	// act
	_, err := intake.ProcessScan(ctx, "ITEM-001", scan.Intent("renew"), "borrower-1")

	// assert
	assert.ErrorIs(t, err, scan.ErrUnknownIntent)
}

// Test helpers

func givenIntake(t *testing.T) (*badgerengine.CirculationStore, scan.Intake) {
	t.Helper()

	store, err := badgerengine.OpenInMemoryCirculationStore()
	require.NoError(t, err, "error opening in-memory store in test setup")

	t.Cleanup(func() { _ = store.Close() })

	intake := scan.NewIntake(
		checkoutitem.NewCommandHandler(store, helper.GivenTestPolicies(t)),
		returnitem.NewCommandHandler(store),
		store,
	)

	return store, intake
}
