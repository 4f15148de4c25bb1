package core

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors for borrowing policy configuration.
var (
	ErrEmptyPolicyItemType       = errors.New("policy item type must not be empty")
	ErrInvalidMaxConcurrentLoans = errors.New("maxConcurrentLoans must be at least 1")
	ErrInvalidLoanPeriod         = errors.New("loanPeriod must be positive")
	ErrInvalidMaxRenewals        = errors.New("maxRenewals must not be negative")
	ErrDuplicatePolicyItemType   = errors.New("duplicate policy for item type")
)

// BorrowingPolicy is the per-item-type configuration governing loan length,
// renewal eligibility and concurrent-loan caps. It is loaded once and
// immutable during a circulation transaction.
type BorrowingPolicy struct {
	ItemType           ItemTypeString
	MaxConcurrentLoans int
	LoanPeriod         time.Duration
	AllowRenewal       bool
	MaxRenewals        int
}

// Validate checks the policy caps and loan period.
func (p BorrowingPolicy) Validate() error {
	if p.MaxConcurrentLoans < 1 {
		return fmt.Errorf("%w (item type %q)", ErrInvalidMaxConcurrentLoans, p.ItemType)
	}

	if p.LoanPeriod <= 0 {
		return fmt.Errorf("%w (item type %q)", ErrInvalidLoanPeriod, p.ItemType)
	}

	if p.MaxRenewals < 0 {
		return fmt.Errorf("%w (item type %q)", ErrInvalidMaxRenewals, p.ItemType)
	}

	return nil
}

// PolicySet resolves the borrowing policy for an item type, falling back
// to a default policy for types without explicit configuration.
type PolicySet struct {
	defaultPolicy BorrowingPolicy
	byType        map[ItemTypeString]BorrowingPolicy
}

// BuildPolicySet creates a PolicySet from a default policy and any number of
// per-type policies. Every policy is validated; per-type policies must name
// their item type exactly once.
func BuildPolicySet(defaultPolicy BorrowingPolicy, policies ...BorrowingPolicy) (PolicySet, error) {
	if err := defaultPolicy.Validate(); err != nil {
		return PolicySet{}, err
	}

	byType := make(map[ItemTypeString]BorrowingPolicy, len(policies))

	for _, policy := range policies {
		if policy.ItemType == "" {
			return PolicySet{}, ErrEmptyPolicyItemType
		}

		if _, ok := byType[policy.ItemType]; ok {
			return PolicySet{}, fmt.Errorf("%w: %q", ErrDuplicatePolicyItemType, policy.ItemType)
		}

		if err := policy.Validate(); err != nil {
			return PolicySet{}, err
		}

		byType[policy.ItemType] = policy
	}

	return PolicySet{defaultPolicy: defaultPolicy, byType: byType}, nil
}

// Knows reports whether the item type has an explicitly configured policy.
// Registration gates on this; circulation of already-registered items falls
// back to the default policy via For when a type loses its entry.
func (s PolicySet) Knows(itemType ItemTypeString) bool {
	_, ok := s.byType[itemType]
	return ok
}

// For returns the policy configured for the given item type, or the default
// policy stamped with that type when none is configured.
func (s PolicySet) For(itemType ItemTypeString) BorrowingPolicy {
	if policy, ok := s.byType[itemType]; ok {
		return policy
	}

	policy := s.defaultPolicy
	policy.ItemType = itemType

	return policy
}
