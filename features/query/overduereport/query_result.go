package overduereport

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// Bucket labels for itemized overdue entries.
const (
	BucketOverdue1Week          = "overdue1Week"
	BucketOverdue2Weeks         = "overdue2Weeks"
	BucketOverdueMoreThan2Weeks = "overdueMoreThan2Weeks"
)

// OverdueEntry represents one overdue loan in the report.
type OverdueEntry struct {
	ItemCode    core.ItemCodeString   `json:"itemCode"`
	Title       string                `json:"title"`
	ItemType    core.ItemTypeString   `json:"itemType"`
	Borrower    core.BorrowerIDString `json:"borrower"`
	DueAt       time.Time             `json:"dueAt"`
	DaysOverdue int                   `json:"daysOverdue"`
	Bucket      string                `json:"bucket"`
}

// OverdueReport represents the query result bucketing all overdue open loans
// by elapsed time past their due date. There is no stored total: TotalOverdue
// sums the buckets, so the headline number cannot drift from the itemized
// entries the dashboard shows next to it.
type OverdueReport struct {
	Overdue1Week          int                           `json:"overdue1Week"`
	Overdue2Weeks         int                           `json:"overdue2Weeks"`
	OverdueMoreThan2Weeks int                           `json:"overdueMoreThan2Weeks"`
	Entries               []OverdueEntry                `json:"entries"`
	ProjectedAt           time.Time                     `json:"projectedAt"`
	SequenceNumber        circstore.JournalSequenceUint `json:"sequenceNumber"`
}

// TotalOverdue returns the sum of all buckets.
func (r OverdueReport) TotalOverdue() int {
	return r.Overdue1Week + r.Overdue2Weeks + r.OverdueMoreThan2Weeks
}

// GetSequenceNumber returns the journal sequence the report was projected at.
func (r OverdueReport) GetSequenceNumber() circstore.JournalSequenceUint {
	return r.SequenceNumber
}
