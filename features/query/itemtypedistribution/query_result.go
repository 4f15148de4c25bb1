package itemtypedistribution

import (
	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// TypeCounts represents the circulation counts for one item type.
// CheckedOutCount counts effectively-lent items: CheckedOut and Overdue both,
// so the dashboard's "out" number matches the list view's status column.
// Items in Maintenance, Lost or Retired count toward TotalCount only.
type TypeCounts struct {
	ItemType        core.ItemTypeString `json:"itemType"`
	TotalCount      int                 `json:"totalCount"`
	AvailableCount  int                 `json:"availableCount"`
	CheckedOutCount int                 `json:"checkedOutCount"`
}

// ItemTypeDistribution represents the query result with one entry per item
// type, in item type order.
type ItemTypeDistribution struct {
	Entries        []TypeCounts                  `json:"entries"`
	SequenceNumber circstore.JournalSequenceUint `json:"sequenceNumber"`
}

// GetSequenceNumber returns the journal sequence the distribution was projected at.
func (r ItemTypeDistribution) GetSequenceNumber() circstore.JournalSequenceUint {
	return r.SequenceNumber
}
