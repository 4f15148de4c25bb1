// Package borrowerloans implements the Borrower Loans query use case.
//
// This feature provides a pure query operation that returns one borrower's
// open loans with item titles and a derived overdue flag. It is the ledger
// view a circulation desk pulls up when a borrower is standing in front of
// it.
package borrowerloans
