// Package postgresengine provides a PostgreSQL implementation of the circulation store.
//
// This package keeps the current item records, the loan history, the
// append-only transition journal, and cached report snapshots in PostgreSQL,
// supporting multiple database adapters (pgx, sql.DB, sqlx) with atomic
// transitions and concurrency control.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Atomic transitions: item compare-and-swap, loan action, and journal
//     entry commit together in a serializable transaction
//   - Optional read replica routing for eventually consistent reads
//   - Loan queries with item code and predicate filtering
//   - Configurable table names, structured logging, metrics, and tracing
//
// Usage examples:
//
//	// Basic usage
//	pool, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewCirculationStoreFromPGXPool(pool)
//
//	// With operational logging (production-safe)
//	store, _ := postgresengine.NewCirculationStoreFromPGXPool(
//		pool,
//		postgresengine.WithTableNames("items", "loans", "journal", "report_snapshots"),
//		postgresengine.WithLogger(logger),
//	)
//
//	record, found, _ := store.LoadItem(ctx, "BK-0042")
//	err := store.ExecuteTransition(ctx, transitionRecord)
package postgresengine
