package circstore

import (
	"encoding/json"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var ErrEmptyTransitionType = errors.New("transition type must not be empty")
var ErrInvalidTransitionPayloadJSON = errors.New("transition payload json is not valid")
var ErrItemCodeMismatch = errors.New("item record does not belong to the transition's item code")
var ErrLoanActionNeedsLoan = errors.New("loan action requires a populated loan record")
var ErrInvalidOpenLoanLimit = errors.New("open loan limit must be positive")
var ErrOpenLoanLimitNeedsOpenAction = errors.New("open loan limit requires the open loan action")

// LoanAction names the loan mutation that accompanies an item write.
type LoanAction string

const (
	// LoanActionNone writes the item only (registration, condition changes, retirement).
	LoanActionNone LoanAction = "none"

	// LoanActionOpen inserts Loan as a new open loan.
	LoanActionOpen LoanAction = "open"

	// LoanActionClose stamps the item's open loan with Loan.ReturnedAt.
	LoanActionClose LoanAction = "close"

	// LoanActionRenew moves the item's open loan to Loan.DueAt and Loan.Renewals.
	LoanActionRenew LoanAction = "renew"
)

// TransitionRecord describes one atomic state change for the engines to
// execute: the post-transition item row, the loan action that goes with it,
// and the journal payload. ExpectedVersion is the optimistic concurrency
// token; zero means the item must not exist yet.
//
// Engines must apply the whole record or nothing: a concurrent writer on the
// same item causes ErrConcurrencyConflict, never a partial write.
//
// While its properties are exported, it should only be constructed with the
// supplied factory method BuildTransitionRecord.
type TransitionRecord struct {
	TransitionType  string
	ItemCode        string
	ExpectedVersion uint
	Item            ItemRecord
	LoanAction      LoanAction
	Loan            LoanRecord
	OpenLoanLimit   int
	PayloadJSON     []byte
	OccurredAt      time.Time
}

// BuildTransitionRecord is a factory method for TransitionRecord.
//
// It checks the mechanical consistency of the record: the item row belongs
// to the transition's item code, loan actions carry a loan, and the journal
// payload is valid JSON.
func BuildTransitionRecord(
	transitionType string,
	itemCode string,
	expectedVersion uint,
	item ItemRecord,
	loanAction LoanAction,
	loan LoanRecord,
	payloadJSON []byte,
	occurredAt time.Time,
) (TransitionRecord, error) {
	if transitionType == "" {
		return TransitionRecord{}, ErrEmptyTransitionType
	}

	if itemCode == "" {
		return TransitionRecord{}, ErrEmptyItemCodeSupplied
	}

	if item.ItemCode != itemCode {
		return TransitionRecord{}, ErrItemCodeMismatch
	}

	if loanAction != LoanActionNone && (loan.ItemCode != itemCode || loan.Borrower == "") {
		return TransitionRecord{}, ErrLoanActionNeedsLoan
	}

	if !jsoniter.ConfigFastest.Valid(payloadJSON) {
		return TransitionRecord{}, ErrInvalidTransitionPayloadJSON
	}

	return TransitionRecord{
		TransitionType:  transitionType,
		ItemCode:        itemCode,
		ExpectedVersion: expectedVersion,
		Item:            item,
		LoanAction:      loanAction,
		Loan:            loan,
		PayloadJSON:     payloadJSON,
		OccurredAt:      occurredAt,
	}, nil
}

// BuildGuardedTransitionRecord is a factory method for TransitionRecord with
// an open-loan limit attached.
//
// The limit makes the engines re-check the borrower's open-loan count for the
// loan's item type inside the same transaction that opens the new loan. When
// the count has reached the limit the transition fails with
// ErrConcurrencyConflict, so a concurrent checkout that slipped in between
// the caller's read and this write surfaces as a retryable conflict instead
// of an over-limit loan.
func BuildGuardedTransitionRecord(
	transitionType string,
	itemCode string,
	expectedVersion uint,
	item ItemRecord,
	loanAction LoanAction,
	loan LoanRecord,
	openLoanLimit int,
	payloadJSON []byte,
	occurredAt time.Time,
) (TransitionRecord, error) {
	if openLoanLimit <= 0 {
		return TransitionRecord{}, ErrInvalidOpenLoanLimit
	}

	if loanAction != LoanActionOpen {
		return TransitionRecord{}, ErrOpenLoanLimitNeedsOpenAction
	}

	record, err := BuildTransitionRecord(
		transitionType, itemCode, expectedVersion, item, loanAction, loan, payloadJSON, occurredAt)
	if err != nil {
		return TransitionRecord{}, err
	}

	record.OpenLoanLimit = openLoanLimit

	return record, nil
}

// JournalEntries is an alias type for a slice of JournalEntry
type JournalEntries = []JournalEntry

// JournalEntry is one committed transition in the append-only journal.
// The engine assigns SequenceNumber on commit; the journal doubles as audit
// trail and as the staleness marker for cached report snapshots.
type JournalEntry struct {
	SequenceNumber JournalSequenceUint
	TransitionType string
	ItemCode       string
	PayloadJSON    json.RawMessage
	OccurredAt     time.Time
}
