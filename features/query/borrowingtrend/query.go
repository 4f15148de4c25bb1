package borrowingtrend

import (
	"errors"
	"time"
)

const (
	queryType  = "BorrowingTrend"
	reportType = "BorrowingTrend"
)

// Query input validation errors.
var (
	ErrZeroTrendBound     = errors.New("trend range bounds must not be zero")
	ErrInvertedTrendRange = errors.New("trend range end must not be before its start")
)

// Query represents the request for per-day checkout counts over a time range.
// The bounds are inclusive and interpreted as UTC days.
type Query struct {
	From time.Time
	To   time.Time
}

// BuildQuery creates a new Query with the provided range.
// It validates the raw input so that malformed requests fail before any
// handler or store is involved.
func BuildQuery(from time.Time, to time.Time) (Query, error) {
	if from.IsZero() || to.IsZero() {
		return Query{}, ErrZeroTrendBound
	}

	if to.Before(from) {
		return Query{}, ErrInvertedTrendRange
	}

	return Query{
		From: from.UTC(),
		To:   to.UTC(),
	}, nil
}

// QueryType returns the type identifier for this query, used for observability and routing.
func (q Query) QueryType() string {
	return queryType
}

// ReportType names the cached projection this query produces.
func (q Query) ReportType() string {
	return reportType
}
