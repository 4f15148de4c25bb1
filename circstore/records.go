package circstore

import (
	"errors"
	"time"
)

var ErrEmptyItemCodeSupplied = errors.New("item code must not be empty")
var ErrEmptyItemTypeSupplied = errors.New("item type must not be empty")
var ErrEmptyStatusSupplied = errors.New("item status must not be empty")
var ErrEmptyBorrowerSupplied = errors.New("borrower must not be empty")
var ErrZeroLoanTimestamp = errors.New("checkout and due timestamps must not be zero")
var ErrRecordInvariantViolated = errors.New("borrower and due date must both be set or both be unset")

// ItemRecords is an alias type for a slice of ItemRecord
type ItemRecords = []ItemRecord

// ItemRecord is a DTO (data transfer object) used by the circulation store to
// persist items and read them back.
//
// It is built on scalars to be completely agnostic of the implementation of
// the domain types in the client code. Version is the optimistic concurrency
// token: it starts at 1 on registration and increases by 1 per transition.
//
// While its properties are exported, it should only be constructed with the
// supplied factory method BuildItemRecord.
type ItemRecord struct {
	ItemCode  string
	ItemType  string
	Title     string
	Creator   string
	Status    string
	Borrower  string
	DueAt     time.Time
	Version   uint
	UpdatedAt time.Time
}

// BuildItemRecord is a factory method for ItemRecord.
//
// It populates the ItemRecord with the given scalar input and checks the
// mechanical record invariant: borrower and due date are both set or both
// unset. Which statuses allow a borrower is the caller's business.
func BuildItemRecord(
	itemCode string,
	itemType string,
	title string,
	creator string,
	status string,
	borrower string,
	dueAt time.Time,
	version uint,
	updatedAt time.Time,
) (ItemRecord, error) {
	if itemCode == "" {
		return ItemRecord{}, ErrEmptyItemCodeSupplied
	}

	if itemType == "" {
		return ItemRecord{}, ErrEmptyItemTypeSupplied
	}

	if status == "" {
		return ItemRecord{}, ErrEmptyStatusSupplied
	}

	if (borrower == "") != dueAt.IsZero() {
		return ItemRecord{}, ErrRecordInvariantViolated
	}

	return ItemRecord{
		ItemCode:  itemCode,
		ItemType:  itemType,
		Title:     title,
		Creator:   creator,
		Status:    status,
		Borrower:  borrower,
		DueAt:     dueAt,
		Version:   version,
		UpdatedAt: updatedAt,
	}, nil
}

// LoanRecords is an alias type for a slice of LoanRecord
type LoanRecords = []LoanRecord

// LoanRecord is a DTO used by the circulation store to persist loans and
// read them back. A loan's identity is (ItemCode, CheckedOutAt); a zero
// ReturnedAt marks the loan as open. Closed loans are never deleted.
//
// While its properties are exported, it should only be constructed with the
// supplied factory method BuildLoanRecord.
type LoanRecord struct {
	ItemCode     string
	ItemType     string
	Borrower     string
	CheckedOutAt time.Time
	DueAt        time.Time
	ReturnedAt   time.Time
	Renewals     int
}

// BuildLoanRecord is a factory method for LoanRecord.
func BuildLoanRecord(
	itemCode string,
	itemType string,
	borrower string,
	checkedOutAt time.Time,
	dueAt time.Time,
	returnedAt time.Time,
	renewals int,
) (LoanRecord, error) {
	if itemCode == "" {
		return LoanRecord{}, ErrEmptyItemCodeSupplied
	}

	if itemType == "" {
		return LoanRecord{}, ErrEmptyItemTypeSupplied
	}

	if borrower == "" {
		return LoanRecord{}, ErrEmptyBorrowerSupplied
	}

	if checkedOutAt.IsZero() || dueAt.IsZero() {
		return LoanRecord{}, ErrZeroLoanTimestamp
	}

	return LoanRecord{
		ItemCode:     itemCode,
		ItemType:     itemType,
		Borrower:     borrower,
		CheckedOutAt: checkedOutAt,
		DueAt:        dueAt,
		ReturnedAt:   returnedAt,
		Renewals:     renewals,
	}, nil
}
