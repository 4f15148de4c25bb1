// Package postgreswrapper abstracts test setup over the postgres adapter
// types, so store tests can run against pgxpool, database/sql and sqlx with
// the same code.
package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/stacksys/circulation-tracker-go/circstore/postgresengine"
	"github.com/stacksys/circulation-tracker-go/shell/config"
)

// Adapter type constants, selected via the ADAPTER_TYPE environment variable.
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLX    = "sqlx"
)

// Wrapper abstracts over the different adapter setups.
type Wrapper interface {
	GetCirculationStore() *postgresengine.CirculationStore
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store *postgresengine.CirculationStore
}

// GetCirculationStore implements Wrapper.
func (w *PGXPoolWrapper) GetCirculationStore() *postgresengine.CirculationStore {
	return w.store
}

// Close implements Wrapper.
func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps database/sql-based testing.
type SQLDBWrapper struct {
	db    *sql.DB
	store *postgresengine.CirculationStore
}

// GetCirculationStore implements Wrapper.
func (w *SQLDBWrapper) GetCirculationStore() *postgresengine.CirculationStore {
	return w.store
}

// Close implements Wrapper.
func (w *SQLDBWrapper) Close() {
	_ = w.db.Close()
}

// SQLXWrapper wraps sqlx-based testing.
type SQLXWrapper struct {
	db    *sqlx.DB
	store *postgresengine.CirculationStore
}

// GetCirculationStore implements Wrapper.
func (w *SQLXWrapper) GetCirculationStore() *postgresengine.CirculationStore {
	return w.store
}

// Close implements Wrapper.
func (w *SQLXWrapper) Close() {
	_ = w.db.Close()
}

// CreateWrapperWithTestConfig creates the wrapper for the adapter type named
// in the ADAPTER_TYPE environment variable, defaulting to pgxpool.
func CreateWrapperWithTestConfig(t testing.TB) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewCirculationStoreFromPGXPool(connPool)
		require.NoError(t, err, "error creating circulation store in test setup")

		return &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		store, err := postgresengine.NewCirculationStoreFromSQLDB(db)
		require.NoError(t, err, "error creating circulation store in test setup")

		return &SQLDBWrapper{db: db, store: store}

	case typeSQLX:
		db := config.PostgresSQLXTestConfig()

		store, err := postgresengine.NewCirculationStoreFromSQLX(db)
		require.NoError(t, err, "error creating circulation store in test setup")

		return &SQLXWrapper{db: db, store: store}

	default:
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// CleanUp truncates the store's tables so the next test starts empty.
func CleanUp(t testing.TB, wrapper Wrapper) {
	const truncate = "TRUNCATE TABLE items, loans, journal, report_snapshots RESTART IDENTITY"

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), truncate)
		require.NoError(t, err, "error cleaning up the store tables")

	case *SQLDBWrapper:
		_, err := w.db.Exec(truncate)
		require.NoError(t, err, "error cleaning up the store tables")

	case *SQLXWrapper:
		_, err := w.db.Exec(truncate)
		require.NoError(t, err, "error cleaning up the store tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}

// EnsureSchema creates the store's tables when they do not exist yet.
func EnsureSchema(t testing.TB, wrapper Wrapper) {
	err := wrapper.GetCirculationStore().EnsureSchema(context.Background())
	require.NoError(t, err, "error creating the store schema in test setup")
}
