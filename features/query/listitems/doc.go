// Package listitems implements the List Items query use case.
//
// This feature provides a pure query operation that returns every registered
// item in item code order, with the effective status derived at query time.
// It follows the Load-Project pattern without any command processing or
// state transitions.
//
// Pagination, filtering and sorting for display are a presentation concern
// over the returned sequence and deliberately not part of this query.
package listitems
