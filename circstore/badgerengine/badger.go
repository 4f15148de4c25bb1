package badgerengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

const (
	keyPrefixItem        = "item/"
	keyPrefixLoan        = "loan/"
	keyPrefixOpenLoan    = "openloan/"
	keyPrefixLedger      = "ledger/"
	keyPrefixLedgerStamp = "ledgerstamp/"
	keyPrefixJournal     = "journal/"
	keyPrefixSnapshot    = "snapshot/"

	journalSeqFormat = "%016d"

	logAttrError          = "error"
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
)

var ErrEmptyStorePathSupplied = errors.New("store path must not be empty")
var ErrOpeningStoreFailed = errors.New("opening the badger store failed")
var ErrEncodingRecordFailed = errors.New("encoding the record failed")

// CirculationStore implements the circulation store on an embedded Badger
// database. All keys live in one key space, partitioned by the key prefixes
// above. Records are stored as JSON values.
//
// Badger transactions use snapshot isolation with read-key conflict
// detection, so the write paths read every key they depend on through the
// transaction and a lost race surfaces as circstore.ErrConcurrencyConflict,
// matching the PostgreSQL engine.
type CirculationStore struct {
	db               *badger.DB
	closeDB          bool
	journalSeq       atomic.Uint64
	logger           circstore.Logger
	metricsCollector circstore.MetricsCollector
	tracingCollector circstore.TracingCollector
	contextualLogger circstore.ContextualLogger
}

// ledgerEntry is the value stored under a ledger key. Prefix scans verify
// the decoded fields, so borrower or item type values containing the key
// separator cannot inflate another borrower's count.
type ledgerEntry struct {
	Borrower     string
	ItemType     string
	ItemCode     string
	CheckedOutAt time.Time
}

// NewCirculationStore wraps an already opened Badger database.
// The caller keeps ownership of the database; Close on the store is a no-op.
func NewCirculationStore(db *badger.DB, options ...Option) (*CirculationStore, error) {
	if db == nil {
		return nil, circstore.ErrNilDatabaseConnection
	}

	cs := &CirculationStore{db: db}
	if err := cs.applyOptions(options); err != nil {
		return nil, err
	}

	if err := cs.initJournalSequence(); err != nil {
		return nil, err
	}

	return cs, nil
}

// OpenCirculationStore opens a persistent Badger database at path, creating
// the directory when it does not exist. The store owns the database; call
// Close when done.
func OpenCirculationStore(path string, options ...Option) (*CirculationStore, error) {
	if path == "" {
		return nil, ErrEmptyStorePathSupplied
	}

	cs := &CirculationStore{closeDB: true}
	if err := cs.applyOptions(options); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, errors.Join(ErrOpeningStoreFailed, err)
	}

	db, openErr := badger.Open(badger.DefaultOptions(path).WithLogger(cs.badgerLogger()))
	if openErr != nil {
		return nil, errors.Join(ErrOpeningStoreFailed, openErr)
	}

	cs.db = db

	if err := cs.initJournalSequence(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return cs, nil
}

// OpenInMemoryCirculationStore opens a Badger database that lives in memory
// only. Intended for tests and local experiments; all data is lost on Close.
func OpenInMemoryCirculationStore(options ...Option) (*CirculationStore, error) {
	cs := &CirculationStore{closeDB: true}
	if err := cs.applyOptions(options); err != nil {
		return nil, err
	}

	db, openErr := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(cs.badgerLogger()))
	if openErr != nil {
		return nil, errors.Join(ErrOpeningStoreFailed, openErr)
	}

	cs.db = db

	return cs, nil
}

func (cs *CirculationStore) applyOptions(options []Option) error {
	for _, option := range options {
		if err := option(cs); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the underlying database if the store owns it.
func (cs *CirculationStore) Close() error {
	if !cs.closeDB {
		return nil
	}

	return cs.db.Close()
}

// initJournalSequence finds the highest committed journal sequence so new
// entries continue after it. Sequence numbers may have gaps: a conflicted
// transition keeps its number.
func (cs *CirculationStore) initJournalSequence() error {
	var latest uint64

	err := cs.db.View(func(txn *badger.Txn) error {
		scanned, scanErr := scanLatestJournalSequence(txn)
		if scanErr != nil {
			return scanErr
		}

		latest = scanned

		return nil
	})
	if err != nil {
		return errors.Join(ErrOpeningStoreFailed, err)
	}

	cs.journalSeq.Store(latest)

	return nil
}

/***** item reads *****/

// LoadItem reads the current record for one item. The second return value
// reports whether the item exists.
func (cs *CirculationStore) LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLoadItem)

	encoded, found, readErr := cs.readKey(ctx, itemKey(itemCode))
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, readErr)
		observer.finishError(wrapped)

		return circstore.ItemRecord{}, false, wrapped
	}

	if !found {
		observer.finishSuccess(0)

		return circstore.ItemRecord{}, false, nil
	}

	record, decodeErr := decodeItemRecord(encoded)
	if decodeErr != nil {
		observer.finishError(decodeErr)

		return circstore.ItemRecord{}, false, decodeErr
	}

	observer.finishSuccess(1)

	return record, true, nil
}

// ListItems reads all item records ordered by item code.
func (cs *CirculationStore) ListItems(ctx context.Context) (circstore.ItemRecords, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionListItems)

	var values [][]byte

	readErr := cs.withReadTxn(ctx, func(txn *badger.Txn) error {
		collected, collectErr := collectPrefixValues(txn, []byte(keyPrefixItem), 0)
		if collectErr != nil {
			return collectErr
		}

		values = collected

		return nil
	})
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, readErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	records := make(circstore.ItemRecords, 0, len(values))

	for _, value := range values {
		record, decodeErr := decodeItemRecord(value)
		if decodeErr != nil {
			observer.finishError(decodeErr)

			return nil, decodeErr
		}

		records = append(records, record)
	}

	observer.finishSuccess(len(records))

	return records, nil
}

/***** loan reads *****/

// LoadOpenLoan reads the open loan for one item. The second return value
// reports whether an open loan exists.
func (cs *CirculationStore) LoadOpenLoan(ctx context.Context, itemCode string) (circstore.LoanRecord, bool, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLoadOpenLoan)

	encoded, found, readErr := cs.readKey(ctx, openLoanKey(itemCode))
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, readErr)
		observer.finishError(wrapped)

		return circstore.LoanRecord{}, false, wrapped
	}

	if !found {
		observer.finishSuccess(0)

		return circstore.LoanRecord{}, false, nil
	}

	loan, decodeErr := decodeLoanRecord(encoded)
	if decodeErr != nil {
		observer.finishError(decodeErr)

		return circstore.LoanRecord{}, false, decodeErr
	}

	observer.finishSuccess(1)

	return loan, true, nil
}

// CountOpenLoans counts the borrower's open loans for one item type.
func (cs *CirculationStore) CountOpenLoans(ctx context.Context, borrower string, itemType string) (int, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionCountOpenLoans)

	count := 0

	readErr := cs.withReadTxn(ctx, func(txn *badger.Txn) error {
		counted, countErr := countLedgerEntries(txn, borrower, itemType)
		if countErr != nil {
			return countErr
		}

		count = counted

		return nil
	})
	if readErr != nil {
		wrapped := wrapUnlessStoreError(readErr)
		observer.finishError(wrapped)

		return 0, wrapped
	}

	observer.finishSuccess(1)

	return count, nil
}

// QueryLoans reads the loans matching the filter, ordered by checkout time
// and item code.
func (cs *CirculationStore) QueryLoans(ctx context.Context, filter circstore.LoanFilter) (circstore.LoanRecords, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionQueryLoans)

	matches, matcherErr := loanMatcher(filter)
	if matcherErr != nil {
		wrapped := errors.Join(circstore.ErrBuildingQueryFailed, matcherErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	var values [][]byte

	readErr := cs.withReadTxn(ctx, func(txn *badger.Txn) error {
		collected, collectErr := collectPrefixValues(txn, []byte(keyPrefixLoan), 0)
		if collectErr != nil {
			return collectErr
		}

		values = collected

		return nil
	})
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, readErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	var loans circstore.LoanRecords

	for _, value := range values {
		loan, decodeErr := decodeLoanRecord(value)
		if decodeErr != nil {
			observer.finishError(decodeErr)

			return nil, decodeErr
		}

		if matches(loan) {
			loans = append(loans, loan)
		}
	}

	slices.SortFunc(loans, func(a, b circstore.LoanRecord) int {
		if cmp := a.CheckedOutAt.Compare(b.CheckedOutAt); cmp != 0 {
			return cmp
		}

		return strings.Compare(a.ItemCode, b.ItemCode)
	})

	observer.finishSuccess(len(loans))

	return loans, nil
}

/***** journal reads *****/

// LatestJournalSequence returns the sequence number of the most recent
// journal entry, zero when the journal is empty.
func (cs *CirculationStore) LatestJournalSequence(ctx context.Context) (circstore.JournalSequenceUint, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLatestJournalSequence)

	var latest uint64

	readErr := cs.withReadTxn(ctx, func(txn *badger.Txn) error {
		scanned, scanErr := scanLatestJournalSequence(txn)
		if scanErr != nil {
			return scanErr
		}

		latest = scanned

		return nil
	})
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, readErr)
		observer.finishError(wrapped)

		return 0, wrapped
	}

	observer.finishSuccess(1)

	return circstore.JournalSequenceUint(latest), nil
}

// QueryJournal reads journal entries with sequence numbers greater than
// fromExclusive in sequence order. A non-positive limit reads to the end.
func (cs *CirculationStore) QueryJournal(
	ctx context.Context,
	fromExclusive circstore.JournalSequenceUint,
	limit int,
) (circstore.JournalEntries, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionQueryJournal)

	var values [][]byte

	readErr := cs.withReadTxn(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefixJournal)

		for it.Seek(journalKey(uint64(fromExclusive) + 1)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) >= limit {
				break
			}

			value, valueErr := it.Item().ValueCopy(nil)
			if valueErr != nil {
				return valueErr
			}

			values = append(values, value)
		}

		return nil
	})
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrQueryingRecordsFailed, readErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	entries := make(circstore.JournalEntries, 0, len(values))

	for _, value := range values {
		entry, decodeErr := decodeJournalEntry(value)
		if decodeErr != nil {
			observer.finishError(decodeErr)

			return nil, decodeErr
		}

		entries = append(entries, entry)
	}

	observer.finishSuccess(len(entries))

	return entries, nil
}

/***** transitions *****/

// ExecuteTransition applies one TransitionRecord atomically: the item
// insert or compare-and-swap, the accompanying loan action, and the journal
// entry all commit in a single Badger transaction.
//
// A lost version race, a concurrent open loan, a tripped open-loan guard,
// and a Badger write conflict all surface as circstore.ErrConcurrencyConflict
// so callers can reload state, decide again, and retry.
func (cs *CirculationStore) ExecuteTransition(ctx context.Context, record circstore.TransitionRecord) error {
	observer, ctx := cs.startTransitionObservation(ctx, record)

	start := time.Now()

	err := cs.withWriteTxn(ctx, func(txn *badger.Txn) error {
		if itemErr := cs.applyItemChange(txn, record); itemErr != nil {
			return itemErr
		}

		if loanErr := cs.applyLoanAction(txn, record); loanErr != nil {
			return loanErr
		}

		return cs.appendJournalEntry(txn, record)
	})

	cs.logOperationWithDuration(ctx, logActionExecuteTransition, time.Since(start))

	if err != nil {
		normalized := normalizeTransitionError(err)
		observer.finishError(normalized)

		return normalized
	}

	observer.finishSuccess()

	return nil
}

// applyItemChange inserts the item when ExpectedVersion is zero and
// otherwise compare-and-swaps on the stored version. Reads through the
// transaction are tracked for conflict detection, so two concurrent writers
// on the same item cannot both commit.
func (cs *CirculationStore) applyItemChange(txn *badger.Txn, record circstore.TransitionRecord) error {
	key := itemKey(record.ItemCode)

	current, getErr := txn.Get(key)

	if record.ExpectedVersion == 0 {
		if getErr == nil {
			return circstore.ErrConcurrencyConflict
		}

		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}
	} else {
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return circstore.ErrConcurrencyConflict
		}

		if getErr != nil {
			return getErr
		}

		encoded, valueErr := current.ValueCopy(nil)
		if valueErr != nil {
			return valueErr
		}

		stored, decodeErr := decodeItemRecord(encoded)
		if decodeErr != nil {
			return decodeErr
		}

		if stored.Version != record.ExpectedVersion {
			return circstore.ErrConcurrencyConflict
		}
	}

	encoded, encodeErr := encodeValue(record.Item)
	if encodeErr != nil {
		return encodeErr
	}

	return txn.Set(key, encoded)
}

func (cs *CirculationStore) applyLoanAction(txn *badger.Txn, record circstore.TransitionRecord) error {
	switch record.LoanAction {
	case circstore.LoanActionNone:
		return nil
	case circstore.LoanActionOpen:
		return cs.openLoan(txn, record)
	case circstore.LoanActionClose:
		return cs.closeLoan(txn, record)
	case circstore.LoanActionRenew:
		return cs.renewLoan(txn, record)
	default:
		return fmt.Errorf("unknown loan action: %s", record.LoanAction)
	}
}

// openLoan writes the new loan under its archive key, the open-loan key, and
// the borrower's ledger key. An existing open loan for the item means a
// concurrent checkout won the race.
func (cs *CirculationStore) openLoan(txn *badger.Txn, record circstore.TransitionRecord) error {
	if record.OpenLoanLimit > 0 {
		if guardErr := cs.guardOpenLoanLimit(txn, record); guardErr != nil {
			return guardErr
		}
	}

	openKey := openLoanKey(record.ItemCode)

	_, getErr := txn.Get(openKey)
	if getErr == nil {
		return circstore.ErrConcurrencyConflict
	}

	if !errors.Is(getErr, badger.ErrKeyNotFound) {
		return getErr
	}

	encoded, encodeErr := encodeValue(record.Loan)
	if encodeErr != nil {
		return encodeErr
	}

	if setErr := txn.Set(openKey, encoded); setErr != nil {
		return setErr
	}

	if setErr := txn.Set(loanKey(record.ItemCode, record.Loan.CheckedOutAt), encoded); setErr != nil {
		return setErr
	}

	ledgerValue, ledgerErr := encodeValue(ledgerEntry{
		Borrower:     record.Loan.Borrower,
		ItemType:     record.Loan.ItemType,
		ItemCode:     record.ItemCode,
		CheckedOutAt: record.Loan.CheckedOutAt,
	})
	if ledgerErr != nil {
		return ledgerErr
	}

	return txn.Set(ledgerKey(record.Loan.Borrower, record.Loan.ItemType, record.ItemCode), ledgerValue)
}

// closeLoan stamps the item's open loan with the return time, keeps the
// closed loan under its archive key, and removes the open-loan and ledger
// keys. A missing open loan means a concurrent return won the race.
func (cs *CirculationStore) closeLoan(txn *badger.Txn, record circstore.TransitionRecord) error {
	open, getErr := cs.getOpenLoan(txn, record.ItemCode)
	if getErr != nil {
		return getErr
	}

	open.ReturnedAt = record.Loan.ReturnedAt

	encoded, encodeErr := encodeValue(open)
	if encodeErr != nil {
		return encodeErr
	}

	if setErr := txn.Set(loanKey(open.ItemCode, open.CheckedOutAt), encoded); setErr != nil {
		return setErr
	}

	if deleteErr := txn.Delete(openLoanKey(open.ItemCode)); deleteErr != nil {
		return deleteErr
	}

	return txn.Delete(ledgerKey(open.Borrower, open.ItemType, open.ItemCode))
}

// renewLoan moves the item's open loan to the new due date and renewal
// count, under both the open-loan key and the archive key.
func (cs *CirculationStore) renewLoan(txn *badger.Txn, record circstore.TransitionRecord) error {
	open, getErr := cs.getOpenLoan(txn, record.ItemCode)
	if getErr != nil {
		return getErr
	}

	open.DueAt = record.Loan.DueAt
	open.Renewals = record.Loan.Renewals

	encoded, encodeErr := encodeValue(open)
	if encodeErr != nil {
		return encodeErr
	}

	if setErr := txn.Set(openLoanKey(open.ItemCode), encoded); setErr != nil {
		return setErr
	}

	return txn.Set(loanKey(open.ItemCode, open.CheckedOutAt), encoded)
}

func (cs *CirculationStore) getOpenLoan(txn *badger.Txn, itemCode string) (circstore.LoanRecord, error) {
	item, getErr := txn.Get(openLoanKey(itemCode))
	if errors.Is(getErr, badger.ErrKeyNotFound) {
		return circstore.LoanRecord{}, circstore.ErrConcurrencyConflict
	}

	if getErr != nil {
		return circstore.LoanRecord{}, getErr
	}

	encoded, valueErr := item.ValueCopy(nil)
	if valueErr != nil {
		return circstore.LoanRecord{}, valueErr
	}

	return decodeLoanRecord(encoded)
}

// guardOpenLoanLimit re-counts the borrower's open loans inside the
// transaction and bumps a stamp key shared by all guarded checkouts for the
// same borrower and item type. Counting alone cannot see a ledger key that a
// concurrent transaction is about to insert; the stamp read-modify-write
// makes such racing checkouts conflict at commit instead.
func (cs *CirculationStore) guardOpenLoanLimit(txn *badger.Txn, record circstore.TransitionRecord) error {
	count, countErr := countLedgerEntries(txn, record.Loan.Borrower, record.Loan.ItemType)
	if countErr != nil {
		return countErr
	}

	if count >= record.OpenLoanLimit {
		return circstore.ErrConcurrencyConflict
	}

	return bumpLedgerStamp(txn, record.Loan.Borrower, record.Loan.ItemType)
}

func countLedgerEntries(txn *badger.Txn, borrower string, itemType string) (int, error) {
	values, err := collectPrefixValues(txn, ledgerPrefix(borrower, itemType), 0)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, value := range values {
		entry, decodeErr := decodeLedgerEntry(value)
		if decodeErr != nil {
			return 0, decodeErr
		}

		if entry.Borrower == borrower && entry.ItemType == itemType {
			count++
		}
	}

	return count, nil
}

func bumpLedgerStamp(txn *badger.Txn, borrower string, itemType string) error {
	key := ledgerStampKey(borrower, itemType)

	var stamp uint64

	item, getErr := txn.Get(key)
	if getErr != nil && !errors.Is(getErr, badger.ErrKeyNotFound) {
		return getErr
	}

	if getErr == nil {
		value, valueErr := item.ValueCopy(nil)
		if valueErr != nil {
			return valueErr
		}

		parsed, parseErr := strconv.ParseUint(string(value), 10, 64)
		if parseErr != nil {
			return parseErr
		}

		stamp = parsed
	}

	return txn.Set(key, []byte(strconv.FormatUint(stamp+1, 10)))
}

// appendJournalEntry assigns the next sequence number and writes the journal
// entry. The counter is taken before commit, so a conflicted transition
// leaves a gap in the sequence.
func (cs *CirculationStore) appendJournalEntry(txn *badger.Txn, record circstore.TransitionRecord) error {
	sequence := cs.journalSeq.Add(1)

	encoded, encodeErr := encodeValue(circstore.JournalEntry{
		SequenceNumber: circstore.JournalSequenceUint(sequence),
		TransitionType: record.TransitionType,
		ItemCode:       record.ItemCode,
		PayloadJSON:    json.RawMessage(record.PayloadJSON),
		OccurredAt:     record.OccurredAt,
	})
	if encodeErr != nil {
		return encodeErr
	}

	return txn.Set(journalKey(sequence), encoded)
}

// normalizeTransitionError maps errors that signal a lost race onto
// ErrConcurrencyConflict: version mismatches and guard trips detected inside
// the transaction, and Badger write conflicts detected at commit.
func normalizeTransitionError(err error) error {
	if errors.Is(err, badger.ErrConflict) || errors.Is(err, circstore.ErrConcurrencyConflict) {
		return circstore.ErrConcurrencyConflict
	}

	if errors.Is(err, ErrEncodingRecordFailed) || errors.Is(err, circstore.ErrBuildingRecordFailed) {
		return err
	}

	return errors.Join(circstore.ErrExecutingTransitionFailed, err)
}

/***** report snapshots *****/

// LoadReportSnapshot reads the snapshot for a report type and filter hash.
// It returns nil without error when no snapshot exists.
func (cs *CirculationStore) LoadReportSnapshot(ctx context.Context, reportType string, filterHash string) (*circstore.ReportSnapshot, error) {
	observer, ctx := cs.startReadObservation(ctx, logActionLoadReportSnapshot)

	encoded, found, readErr := cs.readKey(ctx, snapshotKey(reportType, filterHash))
	if readErr != nil {
		wrapped := errors.Join(circstore.ErrLoadingSnapshotFailed, readErr)
		observer.finishError(wrapped)

		return nil, wrapped
	}

	if !found {
		observer.finishSuccess(0)

		return nil, nil
	}

	var snapshot circstore.ReportSnapshot
	if decodeErr := jsoniter.ConfigFastest.Unmarshal(encoded, &snapshot); decodeErr != nil {
		wrapped := errors.Join(circstore.ErrLoadingSnapshotFailed, decodeErr)
		observer.finishError(wrapped)

		return nil, wrapped
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

	encoded, encodeErr := jsoniter.ConfigFastest.Marshal(snapshot)
	if encodeErr != nil {
		wrapped := errors.Join(circstore.ErrSavingSnapshotFailed, encodeErr)
		observer.finishError(wrapped)

		return wrapped
	}

	start := time.Now()

	writeErr := cs.withWriteTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snapshot.ReportType, snapshot.FilterHash), encoded)
	})

	cs.logOperationWithDuration(ctx, logActionSaveReportSnapshot, time.Since(start))

	if writeErr != nil {
		wrapped := errors.Join(circstore.ErrSavingSnapshotFailed, writeErr)
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

	start := time.Now()

	writeErr := cs.withWriteTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey(reportType, filterHash))
	})

	cs.logOperationWithDuration(ctx, logActionDeleteReportSnapshot, time.Since(start))

	if writeErr != nil {
		wrapped := errors.Join(circstore.ErrDeletingSnapshotFailed, writeErr)
		observer.finishError(wrapped)

		return wrapped
	}

	observer.finishSuccess(1)

	return nil
}

/***** shared plumbing *****/

// withReadTxn runs fn in a read-only transaction after checking the context.
func (cs *CirculationStore) withReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return cs.db.View(fn)
}

// withWriteTxn runs fn in a read-write transaction after checking the
// context. The transaction commits when fn returns nil.
func (cs *CirculationStore) withWriteTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return cs.db.Update(fn)
}

// readKey reads one key, reporting absence instead of an error.
func (cs *CirculationStore) readKey(ctx context.Context, key []byte) ([]byte, bool, error) {
	var encoded []byte
	found := false

	err := cs.withReadTxn(ctx, func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return nil
		}

		if getErr != nil {
			return getErr
		}

		value, valueErr := item.ValueCopy(nil)
		if valueErr != nil {
			return valueErr
		}

		encoded = value
		found = true

		return nil
	})

	return encoded, found, err
}

// collectPrefixValues copies the values of all keys under prefix in key
// order. A positive limit stops the scan early.
func collectPrefixValues(txn *badger.Txn, prefix []byte, limit int) ([][]byte, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var values [][]byte

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if limit > 0 && len(values) >= limit {
			break
		}

		value, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	return values, nil
}

// scanLatestJournalSequence finds the highest journal key with a reverse
// scan, zero when the journal is empty.
func scanLatestJournalSequence(txn *badger.Txn) (uint64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Reverse = true

	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(keyPrefixJournal)

	it.Seek(append([]byte(keyPrefixJournal), 0xFF))

	if !it.ValidForPrefix(prefix) {
		return 0, nil
	}

	key := it.Item().Key()

	return strconv.ParseUint(string(key[len(keyPrefixJournal):]), 10, 64)
}

// wrapUnlessStoreError adds the query sentinel unless a deeper phase already
// wrapped the error.
func wrapUnlessStoreError(err error) error {
	if errors.Is(err, circstore.ErrBuildingRecordFailed) {
		return err
	}

	return errors.Join(circstore.ErrQueryingRecordsFailed, err)
}

func itemKey(itemCode string) []byte {
	return []byte(keyPrefixItem + itemCode)
}

func openLoanKey(itemCode string) []byte {
	return []byte(keyPrefixOpenLoan + itemCode)
}

func loanKey(itemCode string, checkedOutAt time.Time) []byte {
	return []byte(keyPrefixLoan + itemCode + "/" + checkedOutAt.UTC().Format(time.RFC3339Nano))
}

func ledgerKey(borrower string, itemType string, itemCode string) []byte {
	return []byte(keyPrefixLedger + borrower + "/" + itemType + "/" + itemCode)
}

func ledgerPrefix(borrower string, itemType string) []byte {
	return []byte(keyPrefixLedger + borrower + "/" + itemType + "/")
}

func ledgerStampKey(borrower string, itemType string) []byte {
	return []byte(keyPrefixLedgerStamp + borrower + "/" + itemType)
}

func journalKey(sequence uint64) []byte {
	return []byte(keyPrefixJournal + fmt.Sprintf(journalSeqFormat, sequence))
}

func snapshotKey(reportType string, filterHash string) []byte {
	return []byte(keyPrefixSnapshot + reportType + "/" + filterHash)
}

func encodeValue(value any) ([]byte, error) {
	encoded, err := jsoniter.ConfigFastest.Marshal(value)
	if err != nil {
		return nil, errors.Join(ErrEncodingRecordFailed, err)
	}

	return encoded, nil
}

func decodeItemRecord(encoded []byte) (circstore.ItemRecord, error) {
	var stored circstore.ItemRecord
	if err := jsoniter.ConfigFastest.Unmarshal(encoded, &stored); err != nil {
		return circstore.ItemRecord{}, errors.Join(circstore.ErrBuildingRecordFailed, err)
	}

	record, buildErr := circstore.BuildItemRecord(
		stored.ItemCode,
		stored.ItemType,
		stored.Title,
		stored.Creator,
		stored.Status,
		stored.Borrower,
		stored.DueAt,
		stored.Version,
		stored.UpdatedAt,
	)
	if buildErr != nil {
		return circstore.ItemRecord{}, errors.Join(circstore.ErrBuildingRecordFailed, buildErr)
	}

	return record, nil
}

func decodeLoanRecord(encoded []byte) (circstore.LoanRecord, error) {
	var stored circstore.LoanRecord
	if err := jsoniter.ConfigFastest.Unmarshal(encoded, &stored); err != nil {
		return circstore.LoanRecord{}, errors.Join(circstore.ErrBuildingRecordFailed, err)
	}

	record, buildErr := circstore.BuildLoanRecord(
		stored.ItemCode,
		stored.ItemType,
		stored.Borrower,
		stored.CheckedOutAt,
		stored.DueAt,
		stored.ReturnedAt,
		stored.Renewals,
	)
	if buildErr != nil {
		return circstore.LoanRecord{}, errors.Join(circstore.ErrBuildingRecordFailed, buildErr)
	}

	return record, nil
}

func decodeJournalEntry(encoded []byte) (circstore.JournalEntry, error) {
	var entry circstore.JournalEntry
	if err := jsoniter.ConfigFastest.Unmarshal(encoded, &entry); err != nil {
		return circstore.JournalEntry{}, errors.Join(circstore.ErrBuildingRecordFailed, err)
	}

	return entry, nil
}

func decodeLedgerEntry(encoded []byte) (ledgerEntry, error) {
	var entry ledgerEntry
	if err := jsoniter.ConfigFastest.Unmarshal(encoded, &entry); err != nil {
		return ledgerEntry{}, errors.Join(circstore.ErrBuildingRecordFailed, err)
	}

	return entry, nil
}

/***** loan filter matching *****/

// loanMatcher compiles the filter into a match function. Unknown predicate
// keys fail here, before any key is read.
func loanMatcher(filter circstore.LoanFilter) (func(circstore.LoanRecord) bool, error) {
	for _, item := range filter.Items() {
		for _, predicate := range item.Predicates() {
			if _, err := loanPredicateValue(predicate.Key(), circstore.LoanRecord{}); err != nil {
				return nil, err
			}
		}
	}

	return func(loan circstore.LoanRecord) bool {
		return loanMatchesScope(filter, loan) && loanMatchesItems(filter.Items(), loan)
	}, nil
}

func loanPredicateValue(key circstore.FilterKeyString, loan circstore.LoanRecord) (string, error) {
	switch key {
	case circstore.PredicateKeyBorrower:
		return loan.Borrower, nil
	case circstore.PredicateKeyItemType:
		return loan.ItemType, nil
	default:
		return "", fmt.Errorf("unknown predicate key: %s", key)
	}
}

func loanMatchesScope(filter circstore.LoanFilter, loan circstore.LoanRecord) bool {
	if filter.OpenOnly() && !loan.ReturnedAt.IsZero() {
		return false
	}

	if from := filter.CheckedOutFrom(); !from.IsZero() && loan.CheckedOutAt.Before(from) {
		return false
	}

	if until := filter.CheckedOutUntil(); !until.IsZero() && loan.CheckedOutAt.After(until) {
		return false
	}

	return true
}

func loanMatchesItems(items []circstore.LoanFilterItem, loan circstore.LoanRecord) bool {
	if len(items) == 0 {
		return true
	}

	for _, item := range items {
		if loanMatchesItem(item, loan) {
			return true
		}
	}

	return false
}

func loanMatchesItem(item circstore.LoanFilterItem, loan circstore.LoanRecord) bool {
	if codes := item.ItemCodes(); len(codes) > 0 && !slices.Contains(codes, loan.ItemCode) {
		return false
	}

	predicates := item.Predicates()
	if len(predicates) == 0 {
		return true
	}

	if item.AllPredicatesMustMatch() {
		for _, predicate := range predicates {
			if !loanMatchesPredicate(predicate, loan) {
				return false
			}
		}

		return true
	}

	for _, predicate := range predicates {
		if loanMatchesPredicate(predicate, loan) {
			return true
		}
	}

	return false
}

func loanMatchesPredicate(predicate circstore.LoanPredicate, loan circstore.LoanRecord) bool {
	value, err := loanPredicateValue(predicate.Key(), loan)
	if err != nil {
		return false
	}

	return value == predicate.Val()
}

/***** badger internals *****/

// storeLogger adapts the configured circstore.Logger to Badger's internal
// logger interface.
type storeLogger struct {
	logger circstore.Logger
}

func (l *storeLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *storeLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *storeLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *storeLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// badgerLogger returns Badger's logger hook, or nil to silence Badger's
// internal logging when no logger is configured.
func (cs *CirculationStore) badgerLogger() badger.Logger {
	if cs.logger == nil {
		return nil
	}

	return &storeLogger{logger: cs.logger}
}
