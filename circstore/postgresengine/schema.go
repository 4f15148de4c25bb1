package postgresengine

import (
	"context"
	"errors"
	"fmt"
)

var ErrEnsuringSchemaFailed = errors.New("ensuring the schema failed")

// The items table holds exactly one row per item: its descriptive fields,
// its stored status, and the version used for optimistic concurrency.
// The check constraint enforces that borrower and due date travel together.
const createItemsTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	item_code  TEXT PRIMARY KEY,
	item_type  TEXT NOT NULL,
	title      TEXT NOT NULL,
	creator    TEXT NOT NULL,
	status     TEXT NOT NULL,
	borrower   TEXT,
	due_at     TIMESTAMPTZ,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK ((borrower IS NULL) = (due_at IS NULL))
)`

// The loans table is append-mostly: closing or renewing a loan updates its
// row, nothing is ever deleted. A NULL returned_at marks an open loan.
const createLoansTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	loan_id        BIGSERIAL PRIMARY KEY,
	item_code      TEXT NOT NULL,
	item_type      TEXT NOT NULL,
	borrower       TEXT NOT NULL,
	checked_out_at TIMESTAMPTZ NOT NULL,
	due_at         TIMESTAMPTZ NOT NULL,
	returned_at    TIMESTAMPTZ,
	renewals       INT NOT NULL DEFAULT 0
)`

// At most one open loan per item. A concurrent second checkout trips this
// index and surfaces as a concurrency conflict.
const createOpenLoanIndexDDL = `
CREATE UNIQUE INDEX IF NOT EXISTS %s_open_item_idx ON %s (item_code) WHERE returned_at IS NULL`

const createLedgerIndexDDL = `
CREATE INDEX IF NOT EXISTS %s_ledger_idx ON %s (borrower, item_type) WHERE returned_at IS NULL`

const createCheckedOutAtIndexDDL = `
CREATE INDEX IF NOT EXISTS %s_checked_out_at_idx ON %s (checked_out_at)`

const createJournalTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	sequence_number BIGSERIAL PRIMARY KEY,
	transition_type TEXT NOT NULL,
	item_code       TEXT NOT NULL,
	payload         JSONB NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL
)`

const createJournalItemIndexDDL = `
CREATE INDEX IF NOT EXISTS %s_item_code_idx ON %s (item_code)`

const createSnapshotsTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	report_type     TEXT NOT NULL,
	filter_hash     TEXT NOT NULL,
	sequence_number BIGINT NOT NULL,
	data            JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (report_type, filter_hash)
)`

// EnsureSchema creates the store's tables and indexes when they do not exist
// yet, using the configured table names. It is meant for development setups
// and tests; production deployments usually manage the schema with
// migrations.
func (cs *CirculationStore) EnsureSchema(ctx context.Context) error {
	statements := []sqlQueryString{
		fmt.Sprintf(createItemsTableDDL, cs.itemsTableName),
		fmt.Sprintf(createLoansTableDDL, cs.loansTableName),
		fmt.Sprintf(createOpenLoanIndexDDL, cs.loansTableName, cs.loansTableName),
		fmt.Sprintf(createLedgerIndexDDL, cs.loansTableName, cs.loansTableName),
		fmt.Sprintf(createCheckedOutAtIndexDDL, cs.loansTableName, cs.loansTableName),
		fmt.Sprintf(createJournalTableDDL, cs.journalTableName),
		fmt.Sprintf(createJournalItemIndexDDL, cs.journalTableName, cs.journalTableName),
		fmt.Sprintf(createSnapshotsTableDDL, cs.snapshotsTableName),
	}

	for _, statement := range statements {
		if _, err := cs.db.Exec(ctx, statement); err != nil {
			return errors.Join(ErrEnsuringSchemaFailed, err)
		}
	}

	return nil
}
