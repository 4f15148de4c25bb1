package borrowerloans

import (
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	queryType  = "BorrowerLoans"
	reportType = "BorrowerLoans"
)

// Query represents the request for one borrower's open loans.
type Query struct {
	Borrower core.BorrowerIDString
}

// BuildQuery creates a new Query for the given borrower.
// It validates the raw input so that malformed requests fail before any
// handler or store is involved.
func BuildQuery(borrower string) (Query, error) {
	if borrower == "" {
		return Query{}, shell.ErrMissingBorrower
	}

	return Query{Borrower: borrower}, nil
}

// QueryType returns the type identifier for this query, used for observability and routing.
func (q Query) QueryType() string {
	return queryType
}

// ReportType names the cached projection this query produces.
func (q Query) ReportType() string {
	return reportType
}
