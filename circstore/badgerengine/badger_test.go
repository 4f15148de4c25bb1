package badgerengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/circstore/badgerengine"
)

func Test_NewCirculationStore_When_DatabaseIsNil(t *testing.T) {
	// act
	store, err := badgerengine.NewCirculationStore(nil)

	// assert
	assert.Nil(t, store)
	assert.ErrorIs(t, err, circstore.ErrNilDatabaseConnection)
}

func Test_OpenCirculationStore_When_PathIsEmpty(t *testing.T) {
	// act
	store, err := badgerengine.OpenCirculationStore("")

	// assert
	assert.Nil(t, store)
	assert.ErrorIs(t, err, badgerengine.ErrEmptyStorePathSupplied)
}

func Test_ExecuteTransition_RegistersItem_When_ItemIsNew(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	occurredAt := testTime(0)

	item, err := circstore.BuildItemRecord(
		"BK-001", "Book", "The Go Programming Language", "Donovan, Kernighan",
		"Available", "", time.Time{}, 1, occurredAt)
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemRegistered", "BK-001", 0, item,
		circstore.LoanActionNone, circstore.LoanRecord{},
		[]byte(`{"ItemCode":"BK-001"}`), occurredAt)
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(ctx, record)

	// assert
	assert.NoError(t, err)

	loaded, found, loadErr := store.LoadItem(ctx, "BK-001")
	assert.NoError(t, loadErr)
	assert.True(t, found)
	assert.Equal(t, item, loaded)
}

func Test_LoadItem_When_ItemDoesNotExist(t *testing.T) {
	store := openTestStore(t)

	// act
	loaded, found, err := store.LoadItem(context.Background(), "BK-404")

	// assert
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, circstore.ItemRecord{}, loaded)
}

func Test_ListItems_ReturnsItemsOrderedByItemCode(t *testing.T) {
	store := openTestStore(t)

	// arrange
	registerTestItem(t, store, "BK-003", "Book")
	registerTestItem(t, store, "BK-001", "Book")
	registerTestItem(t, store, "DVD-002", "DVD")

	// act
	items, err := store.ListItems(context.Background())

	// assert
	assert.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "BK-001", items[0].ItemCode)
	assert.Equal(t, "BK-003", items[1].ItemCode)
	assert.Equal(t, "DVD-002", items[2].ItemCode)
}

func Test_ExecuteTransition_When_ItemAlreadyExists(t *testing.T) {
	store := openTestStore(t)

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")

	duplicate, err := circstore.BuildTransitionRecord(
		"ItemRegistered", item.ItemCode, 0, item,
		circstore.LoanActionNone, circstore.LoanRecord{}, []byte(`{}`), testTime(1))
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(context.Background(), duplicate)

	// assert
	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)
}

func Test_ExecuteTransition_When_ExpectedVersionDoesNotMatch(t *testing.T) {
	store := openTestStore(t)

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")

	stale, err := circstore.BuildItemRecord(
		item.ItemCode, item.ItemType, item.Title, item.Creator,
		"Lost", "", time.Time{}, 3, testTime(1))
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemConditionChanged", item.ItemCode, 2, stale,
		circstore.LoanActionNone, circstore.LoanRecord{}, []byte(`{}`), testTime(1))
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(context.Background(), record)

	// assert
	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)
}

func Test_ExecuteTransition_When_ItemDoesNotExist(t *testing.T) {
	store := openTestStore(t)

	// arrange
	occurredAt := testTime(0)

	ghost, err := circstore.BuildItemRecord(
		"BK-404", "Book", "Title", "Creator", "Available", "", time.Time{}, 2, occurredAt)
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemConditionChanged", "BK-404", 1, ghost,
		circstore.LoanActionNone, circstore.LoanRecord{}, []byte(`{}`), occurredAt)
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(context.Background(), record)

	// assert
	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)
}

func Test_ExecuteTransition_WithOpenLoanAction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")

	// act
	_, loan := checkOutTestItem(t, store, item, "reader-1", testTime(1))

	// assert
	openLoan, found, err := store.LoadOpenLoan(ctx, "BK-001")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, loan, openLoan)

	count, err := store.CountOpenLoans(ctx, "reader-1", "Book")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, found, err := store.LoadItem(ctx, "BK-001")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "reader-1", loaded.Borrower)
	assert.Equal(t, uint(2), loaded.Version)
}

func Test_ExecuteTransition_WithCloseLoanAction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")
	checkedOut, loan := checkOutTestItem(t, store, item, "reader-1", testTime(1))

	// act
	returnTestItem(t, store, checkedOut, loan, testTime(5))

	// assert
	_, found, err := store.LoadOpenLoan(ctx, "BK-001")
	assert.NoError(t, err)
	assert.False(t, found)

	count, err := store.CountOpenLoans(ctx, "reader-1", "Book")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	loans, err := store.QueryLoans(ctx, circstore.BuildLoanFilter().MatchingAnyLoan())
	assert.NoError(t, err)
	require.Len(t, loans, 1)
	assert.True(t, loans[0].ReturnedAt.Equal(testTime(5)))
}

func Test_ExecuteTransition_WithRenewLoanAction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")
	checkedOut, loan := checkOutTestItem(t, store, item, "reader-1", testTime(1))

	renewedDueAt := loan.DueAt.Add(14 * 24 * time.Hour)

	renewedLoan, err := circstore.BuildLoanRecord(
		loan.ItemCode, loan.ItemType, loan.Borrower, loan.CheckedOutAt, renewedDueAt, time.Time{}, 1)
	require.NoError(t, err)

	renewedItem, err := circstore.BuildItemRecord(
		checkedOut.ItemCode, checkedOut.ItemType, checkedOut.Title, checkedOut.Creator,
		checkedOut.Status, checkedOut.Borrower, renewedDueAt, checkedOut.Version+1, testTime(2))
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"LoanRenewed", checkedOut.ItemCode, checkedOut.Version, renewedItem,
		circstore.LoanActionRenew, renewedLoan, []byte(`{}`), testTime(2))
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(ctx, record)

	// assert
	assert.NoError(t, err)

	openLoan, found, err := store.LoadOpenLoan(ctx, "BK-001")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.True(t, openLoan.DueAt.Equal(renewedDueAt))
	assert.Equal(t, 1, openLoan.Renewals)
	assert.True(t, openLoan.CheckedOutAt.Equal(loan.CheckedOutAt))
}

func Test_ExecuteTransition_When_ItemAlreadyHasOpenLoan(t *testing.T) {
	store := openTestStore(t)

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")
	checkedOut, _ := checkOutTestItem(t, store, item, "reader-1", testTime(1))

	secondLoan, err := circstore.BuildLoanRecord(
		"BK-001", "Book", "reader-2", testTime(2), testTime(2).Add(14*24*time.Hour), time.Time{}, 0)
	require.NoError(t, err)

	secondItem, err := circstore.BuildItemRecord(
		checkedOut.ItemCode, checkedOut.ItemType, checkedOut.Title, checkedOut.Creator,
		"CheckedOut", "reader-2", secondLoan.DueAt, checkedOut.Version+1, testTime(2))
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemCheckedOut", "BK-001", checkedOut.Version, secondItem,
		circstore.LoanActionOpen, secondLoan, []byte(`{}`), testTime(2))
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(context.Background(), record)

	// assert
	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)
}

func Test_ExecuteTransition_When_NoOpenLoanToClose(t *testing.T) {
	store := openTestStore(t)

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")

	phantomLoan, err := circstore.BuildLoanRecord(
		"BK-001", "Book", "reader-1", testTime(1), testTime(1).Add(14*24*time.Hour), testTime(2), 0)
	require.NoError(t, err)

	returned, err := circstore.BuildItemRecord(
		item.ItemCode, item.ItemType, item.Title, item.Creator,
		"Available", "", time.Time{}, item.Version+1, testTime(2))
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemReturned", "BK-001", item.Version, returned,
		circstore.LoanActionClose, phantomLoan, []byte(`{}`), testTime(2))
	require.NoError(t, err)

	// act
	err = store.ExecuteTransition(context.Background(), record)

	// assert
	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)
}

func Test_ExecuteTransition_When_OpenLoanLimitIsReached(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	first := registerTestItem(t, store, "BK-001", "Book")
	second := registerTestItem(t, store, "BK-002", "Book")
	third := registerTestItem(t, store, "BK-003", "Book")

	checkOutTestItem(t, store, first, "reader-1", testTime(1))
	checkOutTestItem(t, store, second, "reader-1", testTime(2))

	guardedRecord := func(limit int) circstore.TransitionRecord {
		loan, err := circstore.BuildLoanRecord(
			third.ItemCode, third.ItemType, "reader-1", testTime(3), testTime(3).Add(14*24*time.Hour), time.Time{}, 0)
		require.NoError(t, err)

		checkedOut, err := circstore.BuildItemRecord(
			third.ItemCode, third.ItemType, third.Title, third.Creator,
			"CheckedOut", "reader-1", loan.DueAt, third.Version+1, testTime(3))
		require.NoError(t, err)

		record, err := circstore.BuildGuardedTransitionRecord(
			"ItemCheckedOut", third.ItemCode, third.Version, checkedOut,
			circstore.LoanActionOpen, loan, limit, []byte(`{}`), testTime(3))
		require.NoError(t, err)

		return record
	}

	// act (limit already reached)
	err := store.ExecuteTransition(ctx, guardedRecord(2))

	// assert (limit already reached)
	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)

	count, err := store.CountOpenLoans(ctx, "reader-1", "Book")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	// act (limit not reached)
	err = store.ExecuteTransition(ctx, guardedRecord(3))

	// assert (limit not reached)
	assert.NoError(t, err)

	count, err = store.CountOpenLoans(ctx, "reader-1", "Book")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func Test_CountOpenLoans_IsScopedToBorrowerAndItemType(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	seedLoanFixtures(t, store)

	// act + assert
	count, err := store.CountOpenLoans(ctx, "reader-1", "Book")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountOpenLoans(ctx, "reader-1", "DVD")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountOpenLoans(ctx, "reader-2", "Book")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.CountOpenLoans(ctx, "reader-2", "DVD")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_QueryLoans_WithFilter_WorksAsExpected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	seedLoanFixtures(t, store)

	tests := []struct {
		name          string
		filter        circstore.LoanFilter
		expectedCodes []string
	}{
		{
			name:          "any loan",
			filter:        circstore.BuildLoanFilter().MatchingAnyLoan(),
			expectedCodes: []string{"BK-001", "BK-002", "DVD-001", "DVD-002"},
		},
		{
			name:          "open only",
			filter:        circstore.BuildLoanFilter().OpenOnly().Finalize(),
			expectedCodes: []string{"BK-001", "DVD-001", "DVD-002"},
		},
		{
			name: "borrower predicate",
			filter: circstore.BuildLoanFilter().
				Matching().
				AnyPredicateOf(circstore.P(circstore.PredicateKeyBorrower, "reader-1")).
				Finalize(),
			expectedCodes: []string{"BK-001", "DVD-001"},
		},
		{
			name: "all predicates must match",
			filter: circstore.BuildLoanFilter().
				Matching().
				AllPredicatesOf(
					circstore.P(circstore.PredicateKeyBorrower, "reader-1"),
					circstore.P(circstore.PredicateKeyItemType, "DVD")).
				Finalize(),
			expectedCodes: []string{"DVD-001"},
		},
		{
			name: "item codes",
			filter: circstore.BuildLoanFilter().
				Matching().
				AnyItemCodeOf("BK-001", "DVD-002").
				Finalize(),
			expectedCodes: []string{"BK-001", "DVD-002"},
		},
		{
			name: "checkout time window",
			filter: circstore.BuildLoanFilter().
				CheckedOutFrom(testTime(2)).
				AndCheckedOutUntil(testTime(3)).
				Finalize(),
			expectedCodes: []string{"BK-002", "DVD-001"},
		},
		{
			name: "open only with item type",
			filter: circstore.BuildLoanFilter().
				OpenOnly().
				Matching().
				AnyPredicateOf(circstore.P(circstore.PredicateKeyItemType, "Book")).
				Finalize(),
			expectedCodes: []string{"BK-001"},
		},
		{
			name: "item codes and predicate",
			filter: circstore.BuildLoanFilter().
				Matching().
				AnyItemCodeOf("BK-002", "DVD-001").
				AndAnyPredicateOf(circstore.P(circstore.PredicateKeyBorrower, "reader-1")).
				Finalize(),
			expectedCodes: []string{"DVD-001"},
		},
		{
			name: "multiple filter items",
			filter: circstore.BuildLoanFilter().
				Matching().
				AnyItemCodeOf("BK-001").
				OrMatching().
				AnyPredicateOf(circstore.P(circstore.PredicateKeyItemType, "DVD")).
				Finalize(),
			expectedCodes: []string{"BK-001", "DVD-001", "DVD-002"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			loans, err := store.QueryLoans(ctx, tc.filter)

			// assert
			assert.NoError(t, err)

			codes := make([]string, 0, len(loans))
			for _, loan := range loans {
				codes = append(codes, loan.ItemCode)
			}

			assert.Equal(t, tc.expectedCodes, codes)
		})
	}
}

func Test_QueryLoans_When_FilterHasUnknownPredicateKey(t *testing.T) {
	store := openTestStore(t)

	// arrange
	filter := circstore.BuildLoanFilter().
		Matching().
		AnyPredicateOf(circstore.P("Shelf", "A-12")).
		Finalize()

	// act
	loans, err := store.QueryLoans(context.Background(), filter)

	// assert
	assert.Nil(t, loans)
	assert.ErrorIs(t, err, circstore.ErrBuildingQueryFailed)
}

func Test_QueryJournal_ReturnsEntriesAfterSequence(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	registerTestItem(t, store, "BK-001", "Book")
	registerTestItem(t, store, "BK-002", "Book")
	registerTestItem(t, store, "BK-003", "Book")

	// act
	entries, err := store.QueryJournal(ctx, 1, 0)

	// assert
	assert.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, circstore.JournalSequenceUint(2), entries[0].SequenceNumber)
	assert.Equal(t, "BK-002", entries[0].ItemCode)
	assert.Equal(t, "ItemRegistered", entries[0].TransitionType)
	assert.JSONEq(t, `{"ItemCode":"BK-002"}`, string(entries[0].PayloadJSON))
	assert.Equal(t, circstore.JournalSequenceUint(3), entries[1].SequenceNumber)

	// act (limited)
	limited, err := store.QueryJournal(ctx, 0, 2)

	// assert (limited)
	assert.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, circstore.JournalSequenceUint(1), limited[0].SequenceNumber)
	assert.Equal(t, circstore.JournalSequenceUint(2), limited[1].SequenceNumber)
}

func Test_LatestJournalSequence_TracksCommittedTransitions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// act (empty journal)
	latest, err := store.LatestJournalSequence(ctx)

	// assert (empty journal)
	assert.NoError(t, err)
	assert.Equal(t, circstore.JournalSequenceUint(0), latest)

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")
	checkOutTestItem(t, store, item, "reader-1", testTime(1))

	// act
	latest, err = store.LatestJournalSequence(ctx)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, circstore.JournalSequenceUint(2), latest)
}

func Test_ReportSnapshot_SaveLoadDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	snapshot, err := circstore.BuildReportSnapshot("OverdueReport", "abc123", 7, []byte(`{"TotalOverdue":2}`))
	require.NoError(t, err)

	// act (save)
	err = store.SaveReportSnapshot(ctx, snapshot)

	// assert (save)
	assert.NoError(t, err)

	loaded, err := store.LoadReportSnapshot(ctx, "OverdueReport", "abc123")
	assert.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot.SequenceNumber, loaded.SequenceNumber)
	assert.JSONEq(t, string(snapshot.Data), string(loaded.Data))

	// act (delete)
	err = store.DeleteReportSnapshot(ctx, "OverdueReport", "abc123")

	// assert (delete)
	assert.NoError(t, err)

	gone, err := store.LoadReportSnapshot(ctx, "OverdueReport", "abc123")
	assert.NoError(t, err)
	assert.Nil(t, gone)

	// act (delete again)
	err = store.DeleteReportSnapshot(ctx, "OverdueReport", "abc123")

	// assert (delete again)
	assert.NoError(t, err)
}

func Test_SaveReportSnapshot_ReplacesExistingSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// arrange
	first, err := circstore.BuildReportSnapshot("OverdueReport", "abc123", 7, []byte(`{"TotalOverdue":2}`))
	require.NoError(t, err)
	require.NoError(t, store.SaveReportSnapshot(ctx, first))

	second, err := circstore.BuildReportSnapshot("OverdueReport", "abc123", 9, []byte(`{"TotalOverdue":5}`))
	require.NoError(t, err)

	// act
	err = store.SaveReportSnapshot(ctx, second)

	// assert
	assert.NoError(t, err)

	loaded, err := store.LoadReportSnapshot(ctx, "OverdueReport", "abc123")
	assert.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, circstore.JournalSequenceUint(9), loaded.SequenceNumber)
	assert.JSONEq(t, `{"TotalOverdue":5}`, string(loaded.Data))
}

func Test_SaveReportSnapshot_When_SnapshotIsInvalid(t *testing.T) {
	store := openTestStore(t)

	// arrange
	invalid := circstore.ReportSnapshot{FilterHash: "abc123", Data: []byte(`{}`)}

	// act
	err := store.SaveReportSnapshot(context.Background(), invalid)

	// assert
	assert.ErrorIs(t, err, circstore.ErrSavingSnapshotFailed)
	assert.ErrorIs(t, err, circstore.ErrEmptyReportType)
}

func Test_LoadReportSnapshot_When_NoSnapshotExists(t *testing.T) {
	store := openTestStore(t)

	// act
	loaded, err := store.LoadReportSnapshot(context.Background(), "OverdueReport", "missing")

	// assert
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func Test_OpenCirculationStore_ResumesJournalSequence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// arrange
	store, err := badgerengine.OpenCirculationStore(dir)
	require.NoError(t, err)

	registerTestItem(t, store, "BK-001", "Book")
	registerTestItem(t, store, "BK-002", "Book")
	require.NoError(t, store.Close())

	// act
	reopened, err := badgerengine.OpenCirculationStore(dir)
	require.NoError(t, err)

	t.Cleanup(func() { _ = reopened.Close() })

	// assert
	latest, err := reopened.LatestJournalSequence(ctx)
	assert.NoError(t, err)
	assert.Equal(t, circstore.JournalSequenceUint(2), latest)

	registerTestItem(t, reopened, "BK-003", "Book")

	entries, err := reopened.QueryJournal(ctx, 2, 0)
	assert.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, circstore.JournalSequenceUint(3), entries[0].SequenceNumber)
	assert.Equal(t, "BK-003", entries[0].ItemCode)
}

func Test_ExecuteTransition_When_ContextIsCanceled(t *testing.T) {
	store := openTestStore(t)

	// arrange
	item := registerTestItem(t, store, "BK-001", "Book")

	changed, err := circstore.BuildItemRecord(
		item.ItemCode, item.ItemType, item.Title, item.Creator,
		"Damaged", "", time.Time{}, item.Version+1, testTime(1))
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemConditionChanged", item.ItemCode, item.Version, changed,
		circstore.LoanActionNone, circstore.LoanRecord{}, []byte(`{}`), testTime(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err = store.ExecuteTransition(ctx, record)

	// assert
	assert.ErrorIs(t, err, circstore.ErrExecutingTransitionFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_LoadItem_When_ContextIsCanceled(t *testing.T) {
	store := openTestStore(t)

	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	_, _, err := store.LoadItem(ctx, "BK-001")

	// assert
	assert.ErrorIs(t, err, circstore.ErrQueryingRecordsFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_NewGCRunner_ValidatesItsArguments(t *testing.T) {
	store := openTestStore(t)

	// act + assert
	_, err := badgerengine.NewGCRunner(nil, time.Minute, 0.5)
	assert.ErrorIs(t, err, circstore.ErrNilDatabaseConnection)

	_, err = badgerengine.NewGCRunner(store, 0, 0.5)
	assert.ErrorIs(t, err, badgerengine.ErrInvalidGCInterval)

	_, err = badgerengine.NewGCRunner(store, time.Minute, 1.5)
	assert.ErrorIs(t, err, badgerengine.ErrInvalidGCDiscardRatio)

	runner, err := badgerengine.NewGCRunner(store, time.Minute, 0.5)
	assert.NoError(t, err)

	runner.Start()
	runner.Stop()
}

/***** test helpers *****/

func openTestStore(t *testing.T) *badgerengine.CirculationStore {
	t.Helper()

	store, err := badgerengine.OpenInMemoryCirculationStore()
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

// testTime returns a fixed base time shifted by the given number of hours,
// so fixtures get deterministic, ordered timestamps.
func testTime(hours int) time.Time {
	return time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(hours) * time.Hour)
}

func registerTestItem(t *testing.T, store *badgerengine.CirculationStore, itemCode string, itemType string) circstore.ItemRecord {
	t.Helper()

	occurredAt := testTime(0)

	item, err := circstore.BuildItemRecord(
		itemCode, itemType, "Title of "+itemCode, "Creator", "Available", "", time.Time{}, 1, occurredAt)
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemRegistered", itemCode, 0, item,
		circstore.LoanActionNone, circstore.LoanRecord{},
		[]byte(`{"ItemCode":"`+itemCode+`"}`), occurredAt)
	require.NoError(t, err)

	require.NoError(t, store.ExecuteTransition(context.Background(), record))

	return item
}

func checkOutTestItem(
	t *testing.T,
	store *badgerengine.CirculationStore,
	item circstore.ItemRecord,
	borrower string,
	checkedOutAt time.Time,
) (circstore.ItemRecord, circstore.LoanRecord) {
	t.Helper()

	dueAt := checkedOutAt.Add(14 * 24 * time.Hour)

	loan, err := circstore.BuildLoanRecord(
		item.ItemCode, item.ItemType, borrower, checkedOutAt, dueAt, time.Time{}, 0)
	require.NoError(t, err)

	checkedOut, err := circstore.BuildItemRecord(
		item.ItemCode, item.ItemType, item.Title, item.Creator,
		"CheckedOut", borrower, dueAt, item.Version+1, checkedOutAt)
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemCheckedOut", item.ItemCode, item.Version, checkedOut,
		circstore.LoanActionOpen, loan, []byte(`{"ItemCode":"`+item.ItemCode+`"}`), checkedOutAt)
	require.NoError(t, err)

	require.NoError(t, store.ExecuteTransition(context.Background(), record))

	return checkedOut, loan
}

func returnTestItem(
	t *testing.T,
	store *badgerengine.CirculationStore,
	item circstore.ItemRecord,
	loan circstore.LoanRecord,
	returnedAt time.Time,
) circstore.ItemRecord {
	t.Helper()

	closedLoan, err := circstore.BuildLoanRecord(
		loan.ItemCode, loan.ItemType, loan.Borrower, loan.CheckedOutAt, loan.DueAt, returnedAt, loan.Renewals)
	require.NoError(t, err)

	returned, err := circstore.BuildItemRecord(
		item.ItemCode, item.ItemType, item.Title, item.Creator,
		"Available", "", time.Time{}, item.Version+1, returnedAt)
	require.NoError(t, err)

	record, err := circstore.BuildTransitionRecord(
		"ItemReturned", item.ItemCode, item.Version, returned,
		circstore.LoanActionClose, closedLoan, []byte(`{"ItemCode":"`+item.ItemCode+`"}`), returnedAt)
	require.NoError(t, err)

	require.NoError(t, store.ExecuteTransition(context.Background(), record))

	return returned
}

// seedLoanFixtures creates four items and loans:
//
//	BK-001  Book  reader-1  checked out at t1, open
//	BK-002  Book  reader-2  checked out at t2, returned at t5
//	DVD-001 DVD   reader-1  checked out at t3, open
//	DVD-002 DVD   reader-2  checked out at t4, open
func seedLoanFixtures(t *testing.T, store *badgerengine.CirculationStore) {
	t.Helper()

	book1 := registerTestItem(t, store, "BK-001", "Book")
	book2 := registerTestItem(t, store, "BK-002", "Book")
	dvd1 := registerTestItem(t, store, "DVD-001", "DVD")
	dvd2 := registerTestItem(t, store, "DVD-002", "DVD")

	checkOutTestItem(t, store, book1, "reader-1", testTime(1))
	lentBook2, book2Loan := checkOutTestItem(t, store, book2, "reader-2", testTime(2))
	checkOutTestItem(t, store, dvd1, "reader-1", testTime(3))
	checkOutTestItem(t, store, dvd2, "reader-2", testTime(4))

	returnTestItem(t, store, lentBook2, book2Loan, testTime(5))
}
