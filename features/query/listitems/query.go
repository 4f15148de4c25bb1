package listitems

const (
	queryType  = "ListItems"
	reportType = "ItemList"
)

// Query represents the parameter-less request for the full item list.
type Query struct{}

// BuildQuery creates a new Query.
func BuildQuery() Query {
	return Query{}
}

// QueryType returns the type identifier for this query, used for observability and routing.
func (q Query) QueryType() string {
	return queryType
}

// ReportType names the cached projection this query produces.
func (q Query) ReportType() string {
	return reportType
}
