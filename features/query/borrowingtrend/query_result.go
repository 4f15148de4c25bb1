package borrowingtrend

import (
	"github.com/stacksys/circulation-tracker-go/circstore"
)

// DayCheckouts represents the checkout count for one UTC day.
// Date is formatted as "2006-01-02".
type DayCheckouts struct {
	Date          string `json:"date"`
	CheckoutCount int    `json:"checkoutCount"`
}

// BorrowingTrend represents the query result with one entry per UTC day in
// the requested range, in date order. Days without checkouts are present
// with a zero count so chart rendering needs no gap handling.
type BorrowingTrend struct {
	Days           []DayCheckouts                `json:"days"`
	SequenceNumber circstore.JournalSequenceUint `json:"sequenceNumber"`
}

// GetSequenceNumber returns the journal sequence the trend was projected at.
func (r BorrowingTrend) GetSequenceNumber() circstore.JournalSequenceUint {
	return r.SequenceNumber
}
