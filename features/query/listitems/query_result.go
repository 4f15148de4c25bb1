package listitems

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ItemInfo represents one item in the list view. Status is the effective
// status at projection time: an expired due date reads as Overdue even
// though storage still says CheckedOut.
type ItemInfo struct {
	ItemCode core.ItemCodeString   `json:"itemCode"`
	ItemType core.ItemTypeString   `json:"itemType"`
	Title    string                `json:"title"`
	Creator  string                `json:"creator,omitempty"`
	Status   string                `json:"status"`
	Borrower core.BorrowerIDString `json:"borrower,omitempty"`
	DueAt    *time.Time            `json:"dueAt,omitempty"`
}

// ItemList represents the query result containing every registered item in
// item code order. Pagination, filtering and sorting for display are a
// presentation concern over this sequence, not part of the query.
type ItemList struct {
	Items          []ItemInfo                    `json:"items"`
	Count          int                           `json:"count"`
	SequenceNumber circstore.JournalSequenceUint `json:"sequenceNumber"`
}

// GetSequenceNumber returns the journal sequence the item list was projected at.
func (r ItemList) GetSequenceNumber() circstore.JournalSequenceUint {
	return r.SequenceNumber
}
