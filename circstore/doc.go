// Package circstore provides core abstractions and types for circulation
// record storage.
//
// This package defines the fundamental types used across the different
// storage engine implementations: item and loan records, atomic transition
// records, the append-only transition journal, loan filters, and common
// error definitions.
//
// The store supports dynamic filtering of loans based on:
//   - Item codes
//   - Loan predicates (borrower, item type)
//   - Open/closed state
//   - Checkout time ranges (checked out from/until)
//
// Key types:
//   - LoanFilter: Defines criteria for querying loan records
//   - ItemRecord / LoanRecord: Rows the engines persist and read back
//   - TransitionRecord: One atomic state change (item write, loan action,
//     journal append) executed with optimistic concurrency
//   - JournalEntry: A committed transition in the append-only journal
//
// Common usage pattern:
//
//	// Count a borrower's open loans of one item type
//	filter := BuildLoanFilter().
//		OpenOnly().
//		Matching().
//		AllPredicatesOf(
//			P(PredicateKeyBorrower, borrowerID),
//			P(PredicateKeyItemType, "Book")).
//		Finalize()
//
//	loans, err := store.QueryLoans(ctx, filter)
//	if err != nil {
//		// handle error
//	}
//
//	record, err := circstore.BuildTransitionRecord(...)
//	err = store.ExecuteTransition(ctx, record)
package circstore
