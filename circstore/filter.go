package circstore

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"time"
)

type FilterItemCodeString = string
type FilterKeyString = string
type FilterValString = string

// Predicate keys understood by the storage engines.
const (
	PredicateKeyBorrower FilterKeyString = "Borrower"
	PredicateKeyItemType FilterKeyString = "ItemType"
)

/***** LoanFilter *****/

type LoanFilter struct {
	items           []LoanFilterItem
	openOnly        bool
	checkedOutFrom  time.Time
	checkedOutUntil time.Time
}

func (f LoanFilter) Items() []LoanFilterItem {
	return f.items
}

// OpenOnly reports whether the filter is restricted to loans without a recorded return.
func (f LoanFilter) OpenOnly() bool {
	return f.openOnly
}

// CheckedOutFrom returns the inclusive lower bound of the checkout time window, zero when unbounded.
func (f LoanFilter) CheckedOutFrom() time.Time {
	return f.checkedOutFrom
}

// CheckedOutUntil returns the inclusive upper bound of the checkout time window, zero when unbounded.
func (f LoanFilter) CheckedOutUntil() time.Time {
	return f.checkedOutUntil
}

// Hash returns a stable hex digest of the filter's content, usable as a
// cache key for report snapshots computed from this filter.
func (f LoanFilter) Hash() string {
	var b strings.Builder

	fmt.Fprintf(&b, "open=%t;from=%d;until=%d", f.openOnly, f.checkedOutFrom.UnixMicro(), f.checkedOutUntil.UnixMicro())

	for _, item := range f.items {
		b.WriteString(";item:")
		b.WriteString(strings.Join(item.itemCodes, ","))
		fmt.Fprintf(&b, ";all=%t;", item.allPredicatesMustMatch)

		for _, p := range item.predicates {
			fmt.Fprintf(&b, "%s=%s,", p.key, p.val)
		}
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(b.String()))

	return fmt.Sprintf("%016x", h.Sum64())
}

/***** LoanFilterItem *****/

type LoanFilterItem struct {
	itemCodes              []FilterItemCodeString
	predicates             []LoanPredicate
	allPredicatesMustMatch bool
}

func (fi LoanFilterItem) ItemCodes() []FilterItemCodeString {
	return fi.itemCodes
}

func (fi LoanFilterItem) Predicates() []LoanPredicate {
	return fi.predicates
}

func (fi LoanFilterItem) AllPredicatesMustMatch() bool {
	return fi.allPredicatesMustMatch
}

/***** LoanPredicate *****/

type LoanPredicate struct {
	key FilterKeyString
	val FilterValString
}

func P(key FilterKeyString, val FilterValString) LoanPredicate {
	return LoanPredicate{key: key, val: val}
}

func (fp LoanPredicate) Key() FilterKeyString {
	return fp.key
}

func (fp LoanPredicate) Val() FilterValString {
	return fp.val
}

/***** LoanFilterBuilder *****/

// LoanFilterBuilder builds a generic loan filter to be used in DB type-specific store implementations to build
// queries for the specific query language, e.g.: Postgres, Badger, ...
// It is designed with the idea to only allow "useful" filter combinations for circulation workflows:
//
//   - empty filter (all loans)
//   - open loans only
//   - checkout time window
//   - (itemCode OR itemCode...)
//   - (predicate)
//   - (predicate OR predicate...)
//   - (predicate AND predicate...)
//   - (itemCode AND predicate)
//   - ((itemCode OR itemCode...) AND (predicate AND predicate...))
//   - ((itemCode AND predicate) OR (itemCode AND predicate)...) -> multiple LoanFilterItem(s)
//
// Scope restrictions (OpenOnly, CheckedOutFrom/Until) apply to the whole filter, before any item matching.
type LoanFilterBuilder interface {
	// OpenOnly restricts the whole filter to loans without a recorded return.
	OpenOnly() ScopedLoanFilterBuilder

	// CheckedOutFrom bounds the whole filter to loans checked out at or after the given time.
	CheckedOutFrom(from time.Time) ScopedLoanFilterBuilder

	// CheckedOutUntil bounds the whole filter to loans checked out at or before the given time.
	CheckedOutUntil(until time.Time) ScopedLoanFilterBuilder

	// Matching starts a new LoanFilterItem.
	Matching() EmptyLoanFilterItemBuilder

	// MatchingAnyLoan directly creates an empty Filter.
	MatchingAnyLoan() LoanFilter
}

// ScopedLoanFilterBuilder continues a filter that carries scope restrictions. It can add
// further scope, start item matching, or finalize as a scope-only filter.
type ScopedLoanFilterBuilder interface {
	// AndOpenOnly restricts the whole filter to loans without a recorded return.
	AndOpenOnly() ScopedLoanFilterBuilder

	// AndCheckedOutFrom bounds the whole filter to loans checked out at or after the given time.
	AndCheckedOutFrom(from time.Time) ScopedLoanFilterBuilder

	// AndCheckedOutUntil bounds the whole filter to loans checked out at or before the given time.
	AndCheckedOutUntil(until time.Time) ScopedLoanFilterBuilder

	// Matching starts a new LoanFilterItem.
	Matching() EmptyLoanFilterItemBuilder

	// Finalize returns the scope-only LoanFilter.
	Finalize() LoanFilter
}

type EmptyLoanFilterItemBuilder interface {
	// AnyItemCodeOf adds one or multiple item codes to the current LoanFilterItem.
	//
	// It sanitizes the input:
	//	- removing empty item codes ("")
	//	- sorting the item codes
	//	- removing duplicate item codes
	AnyItemCodeOf(itemCode FilterItemCodeString, itemCodes ...FilterItemCodeString) LoanFilterItemBuilderLackingPredicates

	// AnyPredicateOf adds one or multiple LoanPredicate(s) to the current LoanFilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial LoanPredicate(s) (key or val is "")
	//	- sorting the LoanPredicate(s)
	//	- removing duplicate LoanPredicate(s)
	AnyPredicateOf(predicate LoanPredicate, predicates ...LoanPredicate) LoanFilterItemBuilderLackingItemCodes

	AllPredicatesOf(predicate LoanPredicate, predicates ...LoanPredicate) LoanFilterItemBuilderLackingItemCodes
}

type LoanFilterItemBuilderLackingPredicates interface {
	// AndAnyPredicateOf adds one or multiple LoanPredicate(s) to the current LoanFilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial LoanPredicate(s) (key or val is "")
	//	- sorting the LoanPredicate(s)
	//	- removing duplicate LoanPredicate(s)
	AndAnyPredicateOf(predicate LoanPredicate, predicates ...LoanPredicate) CompletedLoanFilterItemBuilder

	AndAllPredicatesOf(predicate LoanPredicate, predicates ...LoanPredicate) CompletedLoanFilterItemBuilder

	// OrMatching finalizes the current LoanFilterItem and starts a new one.
	OrMatching() EmptyLoanFilterItemBuilder

	// Finalize returns the LoanFilter once it has at least one LoanFilterItem with at least one item code OR one Predicate.
	Finalize() LoanFilter
}

type LoanFilterItemBuilderLackingItemCodes interface {
	// AndAnyItemCodeOf adds one or multiple item codes to the current LoanFilterItem.
	//
	// It sanitizes the input:
	//	- removing empty item codes ("")
	//	- sorting the item codes
	//	- removing duplicate item codes
	AndAnyItemCodeOf(itemCode FilterItemCodeString, itemCodes ...FilterItemCodeString) CompletedLoanFilterItemBuilder

	// OrMatching finalizes the current LoanFilterItem and starts a new one.
	OrMatching() EmptyLoanFilterItemBuilder

	// Finalize returns the LoanFilter once it has at least one LoanFilterItem with at least one item code OR one Predicate.
	Finalize() LoanFilter
}

type CompletedLoanFilterItemBuilder interface {
	// OrMatching finalizes the current LoanFilterItem and starts a new one.
	OrMatching() EmptyLoanFilterItemBuilder

	// Finalize returns the LoanFilter once it has at least one LoanFilterItem with at least one item code OR one Predicate.
	Finalize() LoanFilter
}

// loanFilterBuilder implements all the interfaces of LoanFilterBuilder
type loanFilterBuilder struct {
	filter            LoanFilter
	currentFilterItem LoanFilterItem
}

// BuildLoanFilter creates a LoanFilterBuilder which must eventually be finalized with Finalize() or MatchingAnyLoan().
func BuildLoanFilter() LoanFilterBuilder {
	return loanFilterBuilder{}
}

// OpenOnly restricts the whole filter to loans without a recorded return.
func (fb loanFilterBuilder) OpenOnly() ScopedLoanFilterBuilder {
	fb.filter.openOnly = true

	return fb
}

// AndOpenOnly restricts the whole filter to loans without a recorded return.
func (fb loanFilterBuilder) AndOpenOnly() ScopedLoanFilterBuilder {
	return fb.OpenOnly()
}

// CheckedOutFrom bounds the whole filter to loans checked out at or after the given time.
func (fb loanFilterBuilder) CheckedOutFrom(from time.Time) ScopedLoanFilterBuilder {
	fb.filter.checkedOutFrom = from

	return fb
}

// AndCheckedOutFrom bounds the whole filter to loans checked out at or after the given time.
func (fb loanFilterBuilder) AndCheckedOutFrom(from time.Time) ScopedLoanFilterBuilder {
	return fb.CheckedOutFrom(from)
}

// CheckedOutUntil bounds the whole filter to loans checked out at or before the given time.
func (fb loanFilterBuilder) CheckedOutUntil(until time.Time) ScopedLoanFilterBuilder {
	fb.filter.checkedOutUntil = until

	return fb
}

// AndCheckedOutUntil bounds the whole filter to loans checked out at or before the given time.
func (fb loanFilterBuilder) AndCheckedOutUntil(until time.Time) ScopedLoanFilterBuilder {
	return fb.CheckedOutUntil(until)
}

// Matching starts a new LoanFilterItem.
func (fb loanFilterBuilder) Matching() EmptyLoanFilterItemBuilder {
	fb.currentFilterItem = LoanFilterItem{}

	return fb
}

// AnyItemCodeOf adds one or multiple item codes to the current LoanFilterItem expecting ANY item code to match.
//
// It sanitizes the input:
//   - removing empty item codes ("")
//   - sorting the item codes
//   - removing duplicate item codes
func (fb loanFilterBuilder) AnyItemCodeOf(
	itemCode FilterItemCodeString,
	itemCodes ...FilterItemCodeString,
) LoanFilterItemBuilderLackingPredicates {

	fb.currentFilterItem.itemCodes = append(
		fb.currentFilterItem.itemCodes,
		fb.sanitizeItemCodes(itemCode, itemCodes...)...,
	)

	return fb
}

// AndAnyItemCodeOf adds one or multiple item codes to the current LoanFilterItem expecting ANY item code to match.
//
// It sanitizes the input:
//   - removing empty item codes ("")
//   - sorting the item codes
//   - removing duplicate item codes
func (fb loanFilterBuilder) AndAnyItemCodeOf(
	itemCode FilterItemCodeString,
	itemCodes ...FilterItemCodeString,
) CompletedLoanFilterItemBuilder {

	return fb.AnyItemCodeOf(itemCode, itemCodes...)
}

func (fb loanFilterBuilder) sanitizeItemCodes(
	itemCode FilterItemCodeString,
	itemCodes ...FilterItemCodeString,
) []FilterItemCodeString {

	allItemCodes := append([]FilterItemCodeString{itemCode}, itemCodes...)
	allItemCodes = slices.DeleteFunc(
		allItemCodes,
		func(c FilterItemCodeString) bool {
			return c == ""
		})
	slices.Sort(allItemCodes)
	allItemCodes = slices.Compact(allItemCodes)
	allItemCodes = slices.Clip(allItemCodes)

	return allItemCodes
}

// AnyPredicateOf adds one or multiple LoanPredicate(s) to the current LoanFilterItem expecting ANY predicate to match.
//
// It sanitizes the input:
//   - removing empty/partial LoanPredicate(s) (key or val is "")
//   - sorting the LoanPredicate(s)
//   - removing duplicate LoanPredicate(s)
func (fb loanFilterBuilder) AnyPredicateOf(
	predicate LoanPredicate,
	predicates ...LoanPredicate,
) LoanFilterItemBuilderLackingItemCodes {

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAnyPredicateOf adds one or multiple LoanPredicate(s) to the current LoanFilterItem expecting ANY predicate to match.
//
// It sanitizes the input:
//   - removing empty/partial LoanPredicate(s) (key or val is "")
//   - sorting the LoanPredicate(s)
//   - removing duplicate LoanPredicate(s)
func (fb loanFilterBuilder) AndAnyPredicateOf(
	predicate LoanPredicate,
	predicates ...LoanPredicate,
) CompletedLoanFilterItemBuilder {

	return fb.AnyPredicateOf(predicate, predicates...)
}

// AllPredicatesOf adds one or multiple LoanPredicate(s) to the current LoanFilterItem expecting ALL predicates to match.
//
// It sanitizes the input:
//   - removing empty/partial LoanPredicate(s) (key or val is "")
//   - sorting the LoanPredicate(s)
//   - removing duplicate LoanPredicate(s)
func (fb loanFilterBuilder) AllPredicatesOf(
	predicate LoanPredicate,
	predicates ...LoanPredicate,
) LoanFilterItemBuilderLackingItemCodes {

	fb.currentFilterItem.allPredicatesMustMatch = true

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAllPredicatesOf adds one or multiple LoanPredicate(s) to the current LoanFilterItem expecting ALL predicates to match.
//
// It sanitizes the input:
//   - removing empty/partial LoanPredicate(s) (key or val is "")
//   - sorting the LoanPredicate(s)
//   - removing duplicate LoanPredicate(s)
func (fb loanFilterBuilder) AndAllPredicatesOf(
	predicate LoanPredicate,
	predicates ...LoanPredicate,
) CompletedLoanFilterItemBuilder {

	return fb.AllPredicatesOf(predicate, predicates...)
}

func (fb loanFilterBuilder) sanitizePredicates(
	predicate LoanPredicate,
	predicates ...LoanPredicate,
) []LoanPredicate {

	allPredicates := append([]LoanPredicate{predicate}, predicates...)
	allPredicates = slices.DeleteFunc(allPredicates, func(p LoanPredicate) bool { return len(p.key) == 0 || len(p.val) == 0 })
	slices.SortFunc(
		allPredicates,
		func(a, b LoanPredicate) int {
			if a.key > b.key {
				return 1
			}

			if a.key < b.key {
				return -1
			}

			return 0
		})

	allPredicates = slices.Compact(allPredicates)
	allPredicates = slices.Clip(allPredicates)

	return allPredicates
}

// OrMatching finalizes the current LoanFilterItem and starts a new one.
func (fb loanFilterBuilder) OrMatching() EmptyLoanFilterItemBuilder {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)
	fb.currentFilterItem = LoanFilterItem{}

	return fb
}

// MatchingAnyLoan finalizes the filter with scope restrictions only.
func (fb loanFilterBuilder) MatchingAnyLoan() LoanFilter {
	return fb.filter
}

// Finalize returns the LoanFilter once it has at least one LoanFilterItem with at least one item code OR one Predicate.
func (fb loanFilterBuilder) Finalize() LoanFilter {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)

	return fb.filter
}
