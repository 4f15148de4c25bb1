// Package borrowingtrend implements the Borrowing Trend query use case.
//
// This feature provides a pure query operation that counts checkouts per UTC
// day over a requested range, zero-filled for days without activity. Because
// loans are never deleted, the checkout history is complete and the trend
// can be recomputed for any past range.
package borrowingtrend
