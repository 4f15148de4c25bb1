package borrowerloans

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ProjectBorrowerLoans implements the query logic for one borrower's ledger view.
// This is a pure function with no side effects - it takes the borrower's open
// loans with their item types, the registered items (for titles), the
// projection time and the journal sequence and returns the projected result.
//
// Query Logic:
//
//	GIVEN: The borrower's open loans
//	WHEN: BorrowerLoans query is executed
//	THEN: BorrowerLoans is returned with one entry per open loan, oldest checkout first
//	EXCLUDES: Closed loans (history is the journal's business, not this view's)
//	DERIVES: The overdue flag at the projection time
func ProjectBorrowerLoans(
	query Query,
	openLoans circstore.LoanRecords,
	items []core.Item,
	now time.Time,
	sequence circstore.JournalSequenceUint,
) BorrowerLoans {
	titles := make(map[core.ItemCodeString]string, len(items))

	for _, item := range items {
		titles[item.Code] = item.Title
	}

	infos := make([]LoanInfo, 0, len(openLoans))

	for _, loan := range openLoans {
		infos = append(infos, LoanInfo{
			ItemCode:     loan.ItemCode,
			Title:        titles[loan.ItemCode],
			ItemType:     loan.ItemType,
			CheckedOutAt: loan.CheckedOutAt,
			DueAt:        loan.DueAt,
			Renewals:     loan.Renewals,
			IsOverdue:    now.After(loan.DueAt),
		})
	}

	return BorrowerLoans{
		Borrower:       query.Borrower,
		Loans:          infos,
		Count:          len(infos),
		SequenceNumber: sequence,
	}
}

// BuildLoanFilter creates the filter selecting the borrower's open loans.
// Its hash doubles as the report-cache key, so two borrowers never share a
// cached ledger view.
func BuildLoanFilter(query Query) circstore.LoanFilter {
	return circstore.BuildLoanFilter().
		OpenOnly().
		Matching().
		AnyPredicateOf(circstore.P(circstore.PredicateKeyBorrower, query.Borrower)).
		Finalize()
}
