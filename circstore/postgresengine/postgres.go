package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/circstore/postgresengine/internal/adapters"
)

const (
	defaultItemsTableName     = "items"
	defaultLoansTableName     = "loans"
	defaultJournalTableName   = "journal"
	defaultSnapshotsTableName = "report_snapshots"

	logMsgSQLExecuted     = "executed sql for: "
	logMsgOperation       = "circulation store operation: "
	logMsgRollbackFailed  = "failed to roll back transition transaction"
	logMsgCloseRowsFailed = "failed to close database rows"

	logAttrError          = "error"
	logAttrQuery          = "query"
	logAttrDurationMS     = "duration_ms"
	logAttrItemCode       = "item_code"
	logAttrTransitionType = "transition_type"
	logAttrRecordCount    = "record_count"
	logAttrReportType     = "report_type"

	logActionLoadItem              = "load_item"
	logActionListItems             = "list_items"
	logActionLoadOpenLoan          = "load_open_loan"
	logActionCountOpenLoans        = "count_open_loans"
	logActionQueryLoans            = "query_loans"
	logActionLatestJournalSequence = "latest_journal_sequence"
	logActionQueryJournal          = "query_journal"
	logActionExecuteTransition     = "execute_transition"
	logActionLoadReportSnapshot    = "load_report_snapshot"
	logActionSaveReportSnapshot    = "save_report_snapshot"
	logActionDeleteReportSnapshot  = "delete_report_snapshot"

	colItemCode  = "item_code"
	colItemType  = "item_type"
	colTitle     = "title"
	colCreator   = "creator"
	colStatus    = "status"
	colBorrower  = "borrower"
	colDueAt     = "due_at"
	colVersion   = "version"
	colUpdatedAt = "updated_at"

	colCheckedOutAt = "checked_out_at"
	colReturnedAt   = "returned_at"
	colRenewals     = "renewals"

	colSequenceNumber = "sequence_number"
	colTransitionType = "transition_type"
	colPayload        = "payload"
	colOccurredAt     = "occurred_at"

	colReportType = "report_type"
	colFilterHash = "filter_hash"
	colData       = "data"
	colCreatedAt  = "created_at"

	dialectPostgres          = "postgres"
	castJsonb                = "?::jsonb"
	onConflictSnapshotTarget = colReportType + ", " + colFilterHash
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// CirculationStore is a PostgreSQL-backed store for circulation records.
// It keeps the current item rows, the loan history, the append-only
// transition journal, and cached report snapshots, and guarantees that a
// transition either lands in all of them or in none.
type CirculationStore struct {
	db                 adapters.DBAdapter
	itemsTableName     string
	loansTableName     string
	journalTableName   string
	snapshotsTableName string
	logger             circstore.Logger
	metricsCollector   circstore.MetricsCollector
	tracingCollector   circstore.TracingCollector
	contextualLogger   circstore.ContextualLogger
}

type itemRow struct {
	itemCode  string
	itemType  string
	title     string
	creator   string
	status    string
	borrower  sql.NullString
	dueAt     sql.NullTime
	version   int64
	updatedAt time.Time
}

type loanRow struct {
	itemCode     string
	itemType     string
	borrower     string
	checkedOutAt time.Time
	dueAt        time.Time
	returnedAt   sql.NullTime
	renewals     int64
}

type journalRow struct {
	sequenceNumber int64
	transitionType string
	itemCode       string
	payload        []byte
	occurredAt     time.Time
}

type snapshotRow struct {
	reportType     string
	filterHash     string
	sequenceNumber int64
	data           []byte
	createdAt      time.Time
}

// NewCirculationStoreFromPGXPool creates a new CirculationStore with a pgx connection pool.
func NewCirculationStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*CirculationStore, error) {
	if pool == nil {
		return nil, circstore.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewPGXAdapter(pool), options...)
}

// NewCirculationStoreFromPGXPoolWithReplica creates a new CirculationStore
// that serves reads from the replica pool when the caller opts into eventual
// consistency via circstore.WithEventualConsistency.
func NewCirculationStoreFromPGXPoolWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*CirculationStore, error) {
	if pool == nil || replica == nil {
		return nil, circstore.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewPGXAdapterWithReplica(pool, replica), options...)
}

// NewCirculationStoreFromSQLDB creates a new CirculationStore with a sql.DB connection.
func NewCirculationStoreFromSQLDB(db *sql.DB, options ...Option) (*CirculationStore, error) {
	if db == nil {
		return nil, circstore.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewSQLAdapter(db), options...)
}

// NewCirculationStoreFromSQLX creates a new CirculationStore with an sqlx.DB connection.
func NewCirculationStoreFromSQLX(db *sqlx.DB, options ...Option) (*CirculationStore, error) {
	if db == nil {
		return nil, circstore.ErrNilDatabaseConnection
	}

	return newCirculationStore(adapters.NewSQLXAdapter(db), options...)
}

func newCirculationStore(adapter adapters.DBAdapter, options ...Option) (*CirculationStore, error) {
	store := &CirculationStore{
		db:                 adapter,
		itemsTableName:     defaultItemsTableName,
		loansTableName:     defaultLoansTableName,
		journalTableName:   defaultJournalTableName,
		snapshotsTableName: defaultSnapshotsTableName,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

/***** item reads *****/

// LoadItem reads the current record of a single item.
// The second return value reports whether the item exists.
func (cs *CirculationStore) LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLoadItem)

	query, buildErr := cs.buildLoadItemQuery(itemCode)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return circstore.ItemRecord{}, false, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionLoadItem, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return circstore.ItemRecord{}, false, wrapped
	}
	defer cs.closeRows(ctx, rows)

	records, processErr := cs.processItemRows(rows)
	if processErr != nil {
		observer.finishError(processErr)

		return circstore.ItemRecord{}, false, processErr
	}

	if len(records) == 0 {
		observer.finishSuccess(0)

		return circstore.ItemRecord{}, false, nil
	}

	observer.finishSuccess(1)

	return records[0], true, nil
}

// ListItems reads all item records ordered by item code.
func (cs *CirculationStore) ListItems(ctx context.Context) (circstore.ItemRecords, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionListItems)

	query, buildErr := cs.buildListItemsQuery()
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionListItems, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}
	defer cs.closeRows(ctx, rows)

	records, processErr := cs.processItemRows(rows)
	if processErr != nil {
		observer.finishError(processErr)

		return nil, processErr
	}

	observer.finishSuccess(len(records))

	return records, nil
}

func (cs *CirculationStore) buildLoadItemQuery(itemCode string) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(cs.itemsTableName).
		Select(itemColumns()...).
		Where(goqu.C(colItemCode).Eq(itemCode)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildListItemsQuery() (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(cs.itemsTableName).
		Select(itemColumns()...).
		Order(goqu.I(colItemCode).Asc()).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) processItemRows(rows adapters.DBRows) (circstore.ItemRecords, error) {
	var records circstore.ItemRecords

	for rows.Next() {
		var row itemRow

		if scanErr := rows.Scan(
			&row.itemCode, &row.itemType, &row.title, &row.creator, &row.status,
			&row.borrower, &row.dueAt, &row.version, &row.updatedAt,
		); scanErr != nil {
			return nil, errors.Join(circstore.ErrScanningDBRowFailed, scanErr)
		}

		record, buildErr := circstore.BuildItemRecord(
			row.itemCode,
			row.itemType,
			row.title,
			row.creator,
			row.status,
			row.borrower.String,
			nullableTime(row.dueAt),
			uint(row.version),
			row.updatedAt,
		)
		if buildErr != nil {
			return nil, errors.Join(circstore.ErrBuildingRecordFailed, buildErr)
		}

		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(circstore.ErrQueryingRecordsFailed, rowsErr)
	}

	return records, nil
}

/***** loan reads *****/

// LoadOpenLoan reads the open loan of an item.
// The second return value reports whether the item has an open loan.
func (cs *CirculationStore) LoadOpenLoan(ctx context.Context, itemCode string) (circstore.LoanRecord, bool, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLoadOpenLoan)

	query, buildErr := cs.buildLoadOpenLoanQuery(itemCode)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return circstore.LoanRecord{}, false, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionLoadOpenLoan, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return circstore.LoanRecord{}, false, wrapped
	}
	defer cs.closeRows(ctx, rows)

	records, processErr := cs.processLoanRows(rows)
	if processErr != nil {
		observer.finishError(processErr)

		return circstore.LoanRecord{}, false, processErr
	}

	if len(records) == 0 {
		observer.finishSuccess(0)

		return circstore.LoanRecord{}, false, nil
	}

	observer.finishSuccess(1)

	return records[0], true, nil
}

// CountOpenLoans counts the open loans a borrower holds for one item type.
func (cs *CirculationStore) CountOpenLoans(ctx context.Context, borrower string, itemType string) (int, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionCountOpenLoans)

	query, buildErr := cs.buildCountOpenLoansQuery(borrower, itemType)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return 0, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionCountOpenLoans, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return 0, wrapped
	}
	defer cs.closeRows(ctx, rows)

	count, scanErr := scanCount(rows)
	if scanErr != nil {
		observer.finishError(scanErr)

		return 0, scanErr
	}

	observer.finishSuccess(count)

	return count, nil
}

// QueryLoans reads the loan records matching the given filter,
// ordered by checkout time.
func (cs *CirculationStore) QueryLoans(ctx context.Context, filter circstore.LoanFilter) (circstore.LoanRecords, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionQueryLoans)

	query, buildErr := cs.buildQueryLoansQuery(filter)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionQueryLoans, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}
	defer cs.closeRows(ctx, rows)

	records, processErr := cs.processLoanRows(rows)
	if processErr != nil {
		observer.finishError(processErr)

		return nil, processErr
	}

	observer.finishSuccess(len(records))

	return records, nil
}

func (cs *CirculationStore) buildLoadOpenLoanQuery(itemCode string) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(cs.loansTableName).
		Select(loanColumns()...).
		Where(goqu.And(
			goqu.C(colItemCode).Eq(itemCode),
			goqu.C(colReturnedAt).IsNull(),
		)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildCountOpenLoansQuery(borrower string, itemType string) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(cs.loansTableName).
		Select(goqu.L("COUNT(*)")).
		Where(goqu.And(
			goqu.C(colBorrower).Eq(borrower),
			goqu.C(colItemType).Eq(itemType),
			goqu.C(colReturnedAt).IsNull(),
		)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildQueryLoansQuery(filter circstore.LoanFilter) (sqlQueryString, error) {
	selectBuilder := goqu.Dialect(dialectPostgres).
		From(cs.loansTableName).
		Select(loanColumns()...).
		Order(goqu.I(colCheckedOutAt).Asc(), goqu.I(colItemCode).Asc())

	selectBuilder, whereErr := addLoanWhereClause(filter, selectBuilder)
	if whereErr != nil {
		return "", whereErr
	}

	query, _, err := selectBuilder.ToSQL()

	return query, err
}

// addLoanWhereClause translates a LoanFilter into SQL conditions: the filter
// items are combined with OR, the scope conditions with AND, and an empty
// filter item matches every loan.
func addLoanWhereClause(filter circstore.LoanFilter, selectBuilder *goqu.SelectDataset) (*goqu.SelectDataset, error) {
	itemExpressions := make([]goqu.Expression, 0, len(filter.Items()))

	for _, filterItem := range filter.Items() {
		conditions := make([]goqu.Expression, 0, 2)

		if len(filterItem.ItemCodes()) > 0 {
			conditions = append(conditions, goqu.C(colItemCode).In(filterItem.ItemCodes()))
		}

		if len(filterItem.Predicates()) > 0 {
			predicateExpressions := make([]goqu.Expression, 0, len(filterItem.Predicates()))

			for _, predicate := range filterItem.Predicates() {
				predicateExpression, predicateErr := loanPredicateExpression(predicate)
				if predicateErr != nil {
					return nil, predicateErr
				}

				predicateExpressions = append(predicateExpressions, predicateExpression)
			}

			if filterItem.AllPredicatesMustMatch() {
				conditions = append(conditions, goqu.And(predicateExpressions...))
			} else {
				conditions = append(conditions, goqu.Or(predicateExpressions...))
			}
		}

		if len(conditions) > 0 {
			itemExpressions = append(itemExpressions, goqu.And(conditions...))
		}
	}

	scopeExpressions := make([]goqu.Expression, 0, 3)

	if filter.OpenOnly() {
		scopeExpressions = append(scopeExpressions, goqu.C(colReturnedAt).IsNull())
	}

	if !filter.CheckedOutFrom().IsZero() {
		scopeExpressions = append(scopeExpressions, goqu.C(colCheckedOutAt).Gte(filter.CheckedOutFrom()))
	}

	if !filter.CheckedOutUntil().IsZero() {
		scopeExpressions = append(scopeExpressions, goqu.C(colCheckedOutAt).Lte(filter.CheckedOutUntil()))
	}

	switch {
	case len(itemExpressions) > 0 && len(scopeExpressions) > 0:
		return selectBuilder.Where(goqu.And(goqu.Or(itemExpressions...), goqu.And(scopeExpressions...))), nil
	case len(itemExpressions) > 0:
		return selectBuilder.Where(goqu.Or(itemExpressions...)), nil
	case len(scopeExpressions) > 0:
		return selectBuilder.Where(goqu.And(scopeExpressions...)), nil
	default:
		return selectBuilder, nil
	}
}

func loanPredicateExpression(predicate circstore.LoanPredicate) (goqu.Expression, error) {
	switch predicate.Key() {
	case circstore.PredicateKeyBorrower:
		return goqu.C(colBorrower).Eq(predicate.Val()), nil
	case circstore.PredicateKeyItemType:
		return goqu.C(colItemType).Eq(predicate.Val()), nil
	default:
		return nil, fmt.Errorf("unsupported loan predicate key: %s", predicate.Key())
	}
}

func (cs *CirculationStore) processLoanRows(rows adapters.DBRows) (circstore.LoanRecords, error) {
	var records circstore.LoanRecords

	for rows.Next() {
		var row loanRow

		if scanErr := rows.Scan(
			&row.itemCode, &row.itemType, &row.borrower,
			&row.checkedOutAt, &row.dueAt, &row.returnedAt, &row.renewals,
		); scanErr != nil {
			return nil, errors.Join(circstore.ErrScanningDBRowFailed, scanErr)
		}

		record, buildErr := circstore.BuildLoanRecord(
			row.itemCode,
			row.itemType,
			row.borrower,
			row.checkedOutAt,
			row.dueAt,
			nullableTime(row.returnedAt),
			int(row.renewals),
		)
		if buildErr != nil {
			return nil, errors.Join(circstore.ErrBuildingRecordFailed, buildErr)
		}

		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(circstore.ErrQueryingRecordsFailed, rowsErr)
	}

	return records, nil
}

/***** journal reads *****/

// LatestJournalSequence reads the sequence number of the newest journal
// entry, or zero when the journal is empty.
func (cs *CirculationStore) LatestJournalSequence(ctx context.Context) (circstore.JournalSequenceUint, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLatestJournalSequence)

	query, buildErr := cs.buildLatestJournalSequenceQuery()
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return 0, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionLatestJournalSequence, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return 0, wrapped
	}
	defer cs.closeRows(ctx, rows)

	sequence, scanErr := scanCount(rows)
	if scanErr != nil {
		observer.finishError(scanErr)

		return 0, scanErr
	}

	observer.finishSuccess(1)

	return circstore.JournalSequenceUint(sequence), nil
}

// QueryJournal reads journal entries with sequence numbers greater than
// fromExclusive in commit order. A non-positive limit reads to the end.
func (cs *CirculationStore) QueryJournal(
	ctx context.Context,
	fromExclusive circstore.JournalSequenceUint,
	limit int,
) (circstore.JournalEntries, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionQueryJournal)

	query, buildErr := cs.buildQueryJournalQuery(fromExclusive, limit)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionQueryJournal, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, queryErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}
	defer cs.closeRows(ctx, rows)

	entries, processErr := cs.processJournalRows(rows)
	if processErr != nil {
		observer.finishError(processErr)

		return nil, processErr
	}

	observer.finishSuccess(len(entries))

	return entries, nil
}

func (cs *CirculationStore) buildLatestJournalSequenceQuery() (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(cs.journalTableName).
		Select(goqu.COALESCE(goqu.MAX(colSequenceNumber), 0)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildQueryJournalQuery(
	fromExclusive circstore.JournalSequenceUint,
	limit int,
) (sqlQueryString, error) {
	selectBuilder := goqu.Dialect(dialectPostgres).
		From(cs.journalTableName).
		Select(colSequenceNumber, colTransitionType, colItemCode, colPayload, colOccurredAt).
		Where(goqu.C(colSequenceNumber).Gt(fromExclusive)).
		Order(goqu.I(colSequenceNumber).Asc())

	if limit > 0 {
		selectBuilder = selectBuilder.Limit(uint(limit))
	}

	query, _, err := selectBuilder.ToSQL()

	return query, err
}

func (cs *CirculationStore) processJournalRows(rows adapters.DBRows) (circstore.JournalEntries, error) {
	var entries circstore.JournalEntries

	for rows.Next() {
		var row journalRow

		if scanErr := rows.Scan(
			&row.sequenceNumber, &row.transitionType, &row.itemCode, &row.payload, &row.occurredAt,
		); scanErr != nil {
			return nil, errors.Join(circstore.ErrScanningDBRowFailed, scanErr)
		}

		entries = append(entries, circstore.JournalEntry{
			SequenceNumber: circstore.JournalSequenceUint(row.sequenceNumber),
			TransitionType: row.transitionType,
			ItemCode:       row.itemCode,
			PayloadJSON:    row.payload,
			OccurredAt:     row.occurredAt,
		})
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Join(circstore.ErrQueryingRecordsFailed, rowsErr)
	}

	return entries, nil
}

/***** transitions *****/

// ExecuteTransition applies one TransitionRecord atomically: the item row
// insert or compare-and-swap, the accompanying loan action, and the journal
// entry all commit in a single serializable transaction.
//
// A lost version race, a concurrent open loan, a tripped open-loan guard,
// and a serialization failure all surface as circstore.ErrConcurrencyConflict
// so callers can reload state, decide again, and retry.
func (cs *CirculationStore) ExecuteTransition(ctx context.Context, record circstore.TransitionRecord) error {
	observer, ctx := cs.startTransitionObservation(ctx, record)

	tx, beginErr := cs.db.BeginSerializableTx(ctx)
	if beginErr != nil {
		wrapped := errors.Join(circstore.ErrExecutingTransitionFailed, beginErr)
		observer.finishError(wrapped)

		return wrapped
	}

	finished := false
	defer func() {
		if finished {
			return
		}

		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			cs.logError(ctx, logMsgRollbackFailed, rollbackErr, logAttrItemCode, record.ItemCode)
		}
	}()

	if itemErr := cs.applyItemChange(ctx, tx, record); itemErr != nil {
		observer.finishError(itemErr)

		return itemErr
	}

	if loanErr := cs.applyLoanAction(ctx, tx, record); loanErr != nil {
		observer.finishError(loanErr)

		return loanErr
	}

	if journalErr := cs.appendJournalEntry(ctx, tx, record); journalErr != nil {
		observer.finishError(journalErr)

		return journalErr
	}

	finished = true

	if commitErr := tx.Commit(ctx); commitErr != nil {
		normalized := normalizeTransitionError(commitErr)
		observer.finishError(normalized)

		return normalized
	}

	observer.finishSuccess()

	return nil
}

func (cs *CirculationStore) applyItemChange(ctx context.Context, tx adapters.DBTx, record circstore.TransitionRecord) error {
	var query sqlQueryString
	var buildErr error

	if record.ExpectedVersion == 0 {
		query, buildErr = cs.buildInsertItemQuery(record.Item)
	} else {
		query, buildErr = cs.buildUpdateItemQuery(record.Item, record.ExpectedVersion)
	}

	if buildErr != nil {
		return errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
	}

	rowsAffected, execErr := cs.executeTxStatement(ctx, tx, query)
	if execErr != nil {
		return normalizeTransitionError(execErr)
	}

	return requireOneRowAffected(rowsAffected)
}

func (cs *CirculationStore) applyLoanAction(ctx context.Context, tx adapters.DBTx, record circstore.TransitionRecord) error {
	var query sqlQueryString
	var buildErr error

	switch record.LoanAction {
	case circstore.LoanActionNone:
		return nil

	case circstore.LoanActionOpen:
		if record.OpenLoanLimit > 0 {
			if guardErr := cs.guardOpenLoanLimit(ctx, tx, record); guardErr != nil {
				return guardErr
			}
		}

		query, buildErr = cs.buildInsertLoanQuery(record.Loan)

	case circstore.LoanActionClose:
		query, buildErr = cs.buildCloseLoanQuery(record.Loan)

	case circstore.LoanActionRenew:
		query, buildErr = cs.buildRenewLoanQuery(record.Loan)

	default:
		return errors.Join(circstore.ErrExecutingTransitionFailed, fmt.Errorf("unknown loan action: %s", record.LoanAction))
	}

	if buildErr != nil {
		return errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
	}

	rowsAffected, execErr := cs.executeTxStatement(ctx, tx, query)
	if execErr != nil {
		return normalizeTransitionError(execErr)
	}

	return requireOneRowAffected(rowsAffected)
}

// guardOpenLoanLimit re-counts the borrower's open loans inside the
// transaction. A count at or above the limit means a concurrent checkout
// committed after the caller decided, so it reports a concurrency conflict
// and the caller's retry loop decides again on fresh state.
func (cs *CirculationStore) guardOpenLoanLimit(ctx context.Context, tx adapters.DBTx, record circstore.TransitionRecord) error {
	query, buildErr := cs.buildCountOpenLoansQuery(record.Loan.Borrower, record.Loan.ItemType)
	if buildErr != nil {
		return errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
	}

	rows, queryErr := tx.Query(ctx, query)
	if queryErr != nil {
		return normalizeTransitionError(queryErr)
	}
	defer cs.closeRows(ctx, rows)

	count, scanErr := scanCount(rows)
	if scanErr != nil {
		return scanErr
	}

	if count >= record.OpenLoanLimit {
		return circstore.ErrConcurrencyConflict
	}

	return nil
}

func (cs *CirculationStore) appendJournalEntry(ctx context.Context, tx adapters.DBTx, record circstore.TransitionRecord) error {
	query, buildErr := cs.buildInsertJournalQuery(record)
	if buildErr != nil {
		return errors.Join(circstore.ErrBuildingQueryFailed, buildErr)
	}

	rowsAffected, execErr := cs.executeTxStatement(ctx, tx, query)
	if execErr != nil {
		return normalizeTransitionError(execErr)
	}

	return requireOneRowAffected(rowsAffected)
}

func (cs *CirculationStore) buildInsertItemQuery(item circstore.ItemRecord) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(cs.itemsTableName).
		Rows(itemRecordValues(item)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildUpdateItemQuery(item circstore.ItemRecord, expectedVersion uint) (sqlQueryString, error) {
	values := itemRecordValues(item)
	delete(values, colItemCode)

	query, _, err := goqu.Dialect(dialectPostgres).
		Update(cs.itemsTableName).
		Set(values).
		Where(goqu.And(
			goqu.C(colItemCode).Eq(item.ItemCode),
			goqu.C(colVersion).Eq(expectedVersion),
		)).
		ToSQL()

	return query, err
}

func itemRecordValues(item circstore.ItemRecord) goqu.Record {
	values := goqu.Record{
		colItemCode:  item.ItemCode,
		colItemType:  item.ItemType,
		colTitle:     item.Title,
		colCreator:   item.Creator,
		colStatus:    item.Status,
		colBorrower:  nil,
		colDueAt:     nil,
		colVersion:   item.Version,
		colUpdatedAt: item.UpdatedAt,
	}

	if item.Borrower != "" {
		values[colBorrower] = item.Borrower
		values[colDueAt] = item.DueAt
	}

	return values
}

func (cs *CirculationStore) buildInsertLoanQuery(loan circstore.LoanRecord) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(cs.loansTableName).
		Rows(goqu.Record{
			colItemCode:     loan.ItemCode,
			colItemType:     loan.ItemType,
			colBorrower:     loan.Borrower,
			colCheckedOutAt: loan.CheckedOutAt,
			colDueAt:        loan.DueAt,
			colRenewals:     loan.Renewals,
		}).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildCloseLoanQuery(loan circstore.LoanRecord) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Update(cs.loansTableName).
		Set(goqu.Record{colReturnedAt: loan.ReturnedAt}).
		Where(goqu.And(
			goqu.C(colItemCode).Eq(loan.ItemCode),
			goqu.C(colReturnedAt).IsNull(),
		)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildRenewLoanQuery(loan circstore.LoanRecord) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Update(cs.loansTableName).
		Set(goqu.Record{
			colDueAt:    loan.DueAt,
			colRenewals: loan.Renewals,
		}).
		Where(goqu.And(
			goqu.C(colItemCode).Eq(loan.ItemCode),
			goqu.C(colReturnedAt).IsNull(),
		)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildInsertJournalQuery(record circstore.TransitionRecord) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(cs.journalTableName).
		Rows(goqu.Record{
			colTransitionType: record.TransitionType,
			colItemCode:       record.ItemCode,
			colPayload:        goqu.L(castJsonb, string(record.PayloadJSON)),
			colOccurredAt:     record.OccurredAt,
		}).
		ToSQL()

	return query, err
}

// executeTxStatement executes one statement inside the transaction and
// returns the number of rows it affected.
func (cs *CirculationStore) executeTxStatement(ctx context.Context, tx adapters.DBTx, query sqlQueryString) (
	rowsAffectedInt64,
	error,
) {
	start := time.Now()
	result, execErr := tx.Exec(ctx, query)
	cs.logQueryWithDuration(ctx, logActionExecuteTransition, query, time.Since(start))

	if execErr != nil {
		return 0, execErr
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(circstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// requireOneRowAffected detects a lost update: a guarded UPDATE or INSERT
// that touches no row means the expected state was gone when the statement
// ran.
func requireOneRowAffected(rowsAffected int64) error {
	if rowsAffected < 1 {
		return circstore.ErrConcurrencyConflict
	}

	return nil
}

// normalizeTransitionError maps driver errors that signal a lost race onto
// ErrConcurrencyConflict: serialization failures, deadlocks, and unique
// violations from the open-loan index or the item primary key.
func normalizeTransitionError(err error) error {
	if adapters.IsSerializationFailure(err) || adapters.IsUniqueViolation(err) {
		return circstore.ErrConcurrencyConflict
	}

	return errors.Join(circstore.ErrExecutingTransitionFailed, err)
}

/***** report snapshots *****/

// LoadReportSnapshot reads the cached snapshot for a report type and filter
// hash. It returns nil without error when no snapshot exists.
func (cs *CirculationStore) LoadReportSnapshot(ctx context.Context, reportType string, filterHash string) (*circstore.ReportSnapshot, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLoadReportSnapshot)

	query, buildErr := cs.buildLoadSnapshotQuery(reportType, filterHash)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrLoadingSnapshotFailed, buildErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	rows, queryErr := cs.executeQuery(ctx, logActionLoadReportSnapshot, query)
	if queryErr != nil {
		wrapped := errors.Join(circstore.ErrLoadingSnapshotFailed, queryErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}
	defer cs.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			wrapped := errors.Join(circstore.ErrLoadingSnapshotFailed, rowsErr)
			observer.finishError(wrapped)

			return nil, wrapped
		}

		observer.finishSuccess(0)

		return nil, nil
	}

	var row snapshotRow
	if scanErr := rows.Scan(&row.reportType, &row.filterHash, &row.sequenceNumber, &row.data, &row.createdAt); scanErr != nil {
		wrapped := errors.Join(circstore.ErrLoadingSnapshotFailed, scanErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	snapshot := circstore.ReportSnapshot{
		ReportType:     row.reportType,
		FilterHash:     row.filterHash,
		SequenceNumber: circstore.JournalSequenceUint(row.sequenceNumber),
		Data:           row.data,
		CreatedAt:      row.createdAt,
	}

	observer.finishSuccess(1)

	return &snapshot, nil
}

// SaveReportSnapshot inserts or replaces the snapshot for its report type
// and filter hash.
func (cs *CirculationStore) SaveReportSnapshot(ctx context.Context, snapshot circstore.ReportSnapshot) error {
	observer, ctx := cs.startReadObservation(ctx, logActionSaveReportSnapshot)

	if validateErr := snapshot.Validate(); validateErr != nil {
		wrapped := errors.Join(circstore.ErrSavingSnapshotFailed, validateErr)
		observer.finishError(wrapped)

		return wrapped
	}

	query, buildErr := cs.buildSaveSnapshotQuery(snapshot)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrSavingSnapshotFailed, buildErr)
		observer.finishError(wrapped)

		return wrapped
	}

	start := time.Now()
	_, execErr := cs.db.Exec(ctx, query)
	cs.logQueryWithDuration(ctx, logActionSaveReportSnapshot, query, time.Since(start))

	if execErr != nil {
		wrapped := errors.Join(circstore.ErrSavingSnapshotFailed, execErr)
		observer.finishError(wrapped)

		return wrapped
	}

	observer.finishSuccess(1)
	cs.logOperation(ctx, logActionSaveReportSnapshot, logAttrReportType, snapshot.ReportType)

	return nil
}

// DeleteReportSnapshot removes the snapshot for a report type and filter
// hash. Deleting a snapshot that does not exist is not an error.
func (cs *CirculationStore) DeleteReportSnapshot(ctx context.Context, reportType string, filterHash string) error {
	observer, ctx := cs.startReadObservation(ctx, logActionDeleteReportSnapshot)

	query, buildErr := cs.buildDeleteSnapshotQuery(reportType, filterHash)
	if buildErr != nil {
		wrapped := errors.Join(circstore.ErrDeletingSnapshotFailed, buildErr)
		observer.finishError(wrapped)

		return wrapped
	}

	start := time.Now()
	_, execErr := cs.db.Exec(ctx, query)
	cs.logQueryWithDuration(ctx, logActionDeleteReportSnapshot, query, time.Since(start))

	if execErr != nil {
		wrapped := errors.Join(circstore.ErrDeletingSnapshotFailed, execErr)
		observer.finishError(wrapped)

		return wrapped
	}

	observer.finishSuccess(1)

	return nil
}

func (cs *CirculationStore) buildLoadSnapshotQuery(reportType string, filterHash string) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		From(cs.snapshotsTableName).
		Select(colReportType, colFilterHash, colSequenceNumber, colData, colCreatedAt).
		Where(goqu.And(
			goqu.C(colReportType).Eq(reportType),
			goqu.C(colFilterHash).Eq(filterHash),
		)).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildSaveSnapshotQuery(snapshot circstore.ReportSnapshot) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Insert(cs.snapshotsTableName).
		Rows(goqu.Record{
			colReportType:     snapshot.ReportType,
			colFilterHash:     snapshot.FilterHash,
			colSequenceNumber: snapshot.SequenceNumber,
			colData:           goqu.L(castJsonb, string(snapshot.Data)),
			colCreatedAt:      snapshot.CreatedAt,
		}).
		OnConflict(goqu.DoUpdate(onConflictSnapshotTarget, goqu.Record{
			colSequenceNumber: snapshot.SequenceNumber,
			colData:           goqu.L(castJsonb, string(snapshot.Data)),
			colCreatedAt:      snapshot.CreatedAt,
		})).
		ToSQL()

	return query, err
}

func (cs *CirculationStore) buildDeleteSnapshotQuery(reportType string, filterHash string) (sqlQueryString, error) {
	query, _, err := goqu.Dialect(dialectPostgres).
		Delete(cs.snapshotsTableName).
		Where(goqu.And(
			goqu.C(colReportType).Eq(reportType),
			goqu.C(colFilterHash).Eq(filterHash),
		)).
		ToSQL()

	return query, err
}

/***** shared plumbing *****/

func (cs *CirculationStore) executeQuery(ctx context.Context, action string, query sqlQueryString) (adapters.DBRows, error) {
	start := time.Now()
	rows, err := cs.db.Query(ctx, query)
	cs.logQueryWithDuration(ctx, action, query, time.Since(start))

	return rows, err
}

func (cs *CirculationStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		cs.logError(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

func scanCount(rows adapters.DBRows) (int, error) {
	var count int64

	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, errors.Join(circstore.ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return 0, errors.Join(circstore.ErrQueryingRecordsFailed, rowsErr)
	}

	return int(count), nil
}

func nullableTime(value sql.NullTime) time.Time {
	if !value.Valid {
		return time.Time{}
	}

	return value.Time
}

func itemColumns() []any {
	return []any{colItemCode, colItemType, colTitle, colCreator, colStatus, colBorrower, colDueAt, colVersion, colUpdatedAt}
}

func loanColumns() []any {
	return []any{colItemCode, colItemType, colBorrower, colCheckedOutAt, colDueAt, colReturnedAt, colRenewals}
}
