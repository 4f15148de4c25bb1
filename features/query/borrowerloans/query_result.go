package borrowerloans

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// LoanInfo represents one of the borrower's open loans.
type LoanInfo struct {
	ItemCode     core.ItemCodeString `json:"itemCode"`
	Title        string              `json:"title"`
	ItemType     core.ItemTypeString `json:"itemType"`
	CheckedOutAt time.Time           `json:"checkedOutAt"`
	DueAt        time.Time           `json:"dueAt"`
	Renewals     int                 `json:"renewals"`
	IsOverdue    bool                `json:"isOverdue"`
}

// BorrowerLoans represents the query result containing the borrower's open
// loans, oldest checkout first.
type BorrowerLoans struct {
	Borrower       core.BorrowerIDString         `json:"borrower"`
	Loans          []LoanInfo                    `json:"loans"`
	Count          int                           `json:"count"`
	SequenceNumber circstore.JournalSequenceUint `json:"sequenceNumber"`
}

// GetSequenceNumber returns the journal sequence the loans were projected at.
func (r BorrowerLoans) GetSequenceNumber() circstore.JournalSequenceUint {
	return r.SequenceNumber
}
