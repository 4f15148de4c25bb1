// Package core contains the circulation domain logic:
// items, loans, borrowing policy, and the transitions of the
// checkout / return / renewal lifecycle.
//
// This package models meaningful circulation occurrences as transitions
// like ItemCheckedOut and LoanRenewed rather than generic create/update
// operations. Decide functions in the feature packages consume loaded
// state and produce a DecisionResult carrying at most one Transition;
// the storage engines execute transitions atomically.
//
// All transitions implement the Transition interface with IsTransitionType()
// and HasOccurredAt() methods for journaling integration.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'domain' layer.
package core
