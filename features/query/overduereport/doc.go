// Package overduereport implements the Overdue Report query use case.
//
// This feature provides a pure query operation that buckets all overdue open
// loans by how long past their due date they are: up to one week, up to two
// weeks, and longer. The report's total is defined as the sum of the buckets
// and computed nowhere else, so the headline number and the itemized entries
// cannot disagree.
//
// This is a read-only operation: lateness is derived from the due dates at
// query time and nothing is written back to the items.
package overduereport
