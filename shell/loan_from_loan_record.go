package shell

import (
	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// LoansFromRecords converts stored LoanRecords into domain Loans.
func LoansFromRecords(records circstore.LoanRecords) []core.Loan {
	loans := make([]core.Loan, 0, len(records))

	for _, record := range records {
		loans = append(loans, LoanFromRecord(record))
	}

	return loans
}

// LoanFromRecord converts a stored LoanRecord back into the domain Loan.
// The item type stays behind; it is a persistence denormalization for
// policy-scoped loan counting, not part of the loan itself.
func LoanFromRecord(record circstore.LoanRecord) core.Loan {
	return core.Loan{
		ItemCode:     record.ItemCode,
		Borrower:     record.Borrower,
		CheckedOutAt: record.CheckedOutAt,
		DueAt:        record.DueAt,
		ReturnedAt:   record.ReturnedAt,
		Renewals:     record.Renewals,
	}
}
