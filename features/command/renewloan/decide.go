package renewloan

import (
	"github.com/stacksys/circulation-tracker-go/core"
)

const (
	rejectionItemNotFound         = "item is not registered"
	rejectionItemUnavailable      = "item is out of circulation"
	rejectionNoOpenLoan           = "item has no open loan"
	rejectionBorrowerMismatch     = "loan is held by a different borrower"
	rejectionRenewalNotAllowed    = "item type does not allow renewals"
	rejectionRenewalLimitExceeded = "loan has reached its renewal limit"
)

// state is the current circulation truth this decision reads: the item under
// the code and its open loan.
type state struct {
	itemFound bool
	item      core.Item
	loan      core.Loan
}

// Decide implements the business logic to determine whether an open loan should be extended.
// This is a pure function with no side effects - it takes the current state, a command and
// the borrowing policy for the item's type and returns the transition that should be executed.
//
// The due date extends from the renewal time, not from the old due date, so a
// late renewal cannot drift the schedule. It never moves backwards: when the
// old due date is still further out, it is kept.
//
// Business Rules:
//
//	GIVEN: An item with ItemCode on loan to Borrower
//	WHEN: RenewLoan command is received
//	THEN: LoanRenewed transition is generated, due = max(OccurredAt + policy loan period, current due)
//	ERROR: "item is not registered" if no item exists under the code
//	ERROR: "item is out of circulation" if the item is in Maintenance, Lost or Retired
//	ERROR: "item has no open loan" if the item is available
//	ERROR: "loan is held by a different borrower" if the caller does not hold the loan
//	ERROR: "item type does not allow renewals" if the policy forbids renewal
//	ERROR: "loan has reached its renewal limit" if the renewal count is at the policy max
func Decide(s state, command Command, policy core.BorrowingPolicy) core.DecisionResult {
	if !s.itemFound {
		return core.ErrorDecision(core.NewRejection(core.ReasonNotFound, rejectionItemNotFound))
	}

	if s.item.IsWithdrawn() {
		return core.ErrorDecision(core.NewRejection(core.ReasonItemUnavailable, rejectionItemUnavailable))
	}

	if !s.item.IsOnLoan() {
		return core.ErrorDecision(core.NewRejection(core.ReasonNoOpenLoan, rejectionNoOpenLoan))
	}

	if s.loan.Borrower != command.Borrower {
		return core.ErrorDecision(core.NewRejection(core.ReasonBorrowerMismatch, rejectionBorrowerMismatch))
	}

	if !policy.AllowRenewal {
		return core.ErrorDecision(core.NewRejection(core.ReasonRenewalNotAllowed, rejectionRenewalNotAllowed))
	}

	if s.loan.Renewals >= policy.MaxRenewals {
		return core.ErrorDecision(core.NewRejection(core.ReasonRenewalLimitExceeded, rejectionRenewalLimitExceeded))
	}

	dueAt := command.OccurredAt.Add(policy.LoanPeriod)
	if s.loan.DueAt.After(dueAt) {
		dueAt = s.loan.DueAt
	}

	return core.SuccessDecision(
		core.BuildLoanRenewed(
			command.ItemCode,
			command.Borrower,
			dueAt,
			s.loan.Renewals+1,
			command.OccurredAt,
		),
	)
}
