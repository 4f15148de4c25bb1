// Package badgerengine provides an embedded BadgerDB implementation of the
// circulation store.
//
// This package keeps the current item records, the loan history, the
// append-only transition journal, and cached report snapshots in a single
// Badger key space, with atomic transitions and the same concurrency
// semantics as the PostgreSQL engine: a lost race surfaces as
// circstore.ErrConcurrencyConflict.
//
// Key features:
//   - Embedded storage, no external database process
//   - In-memory mode for tests and local experiments
//   - Atomic transitions: item compare-and-swap, loan action, and journal
//     entry commit together in one Badger transaction
//   - Loan queries with item code and predicate filtering
//   - Structured logging, metrics, and tracing through the circstore ports
//
// Key layout:
//
//	item/<itemCode>                          current item record
//	loan/<itemCode>/<checkedOutAt>           every loan, open and closed
//	openloan/<itemCode>                      the item's open loan
//	ledger/<borrower>/<itemType>/<itemCode>  open-loan index per borrower
//	ledgerstamp/<borrower>/<itemType>        conflict stamp for guarded checkouts
//	journal/<sequence>                       append-only transition journal
//	snapshot/<reportType>/<filterHash>       cached report snapshots
//
// Usage examples:
//
//	// Persistent store
//	store, _ := badgerengine.OpenCirculationStore("/var/lib/circulation",
//		badgerengine.WithLogger(logger),
//	)
//	defer store.Close()
//
//	// In-memory store for tests
//	store, _ := badgerengine.OpenInMemoryCirculationStore()
//	defer store.Close()
//
//	record, found, _ := store.LoadItem(ctx, "BK-0042")
//	err := store.ExecuteTransition(ctx, transitionRecord)
package badgerengine
