// Package itemtypedistribution implements the Item Type Distribution query use case.
//
// This feature provides a pure query operation that counts the registered
// items per item type: total, available, and effectively checked out
// (CheckedOut and Overdue). It feeds the dashboard's holdings overview.
package itemtypedistribution
