package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacksys/circulation-tracker-go/features/query/borrowerloans"
	"github.com/stacksys/circulation-tracker-go/features/query/borrowingtrend"
	"github.com/stacksys/circulation-tracker-go/features/query/itemtypedistribution"
	"github.com/stacksys/circulation-tracker-go/features/query/overduereport"
)

// trendDateLayout is the format of the from/to query parameters.
const trendDateLayout = "2006-01-02"

// overdueReportResponse adds the bucket sum to the report body. The total is
// computed here at the edge, never stored, so it cannot drift from the
// itemized entries.
type overdueReportResponse struct {
	overduereport.OverdueReport
	TotalOverdue int `json:"totalOverdue"`
}

func (a *API) handleOverdueReport(w http.ResponseWriter, r *http.Request) {
	result, err := a.deps.OverdueReport.Handle(r.Context(), overduereport.BuildQuery())
	if err != nil {
		a.respondQueryFailure(w, r, err)
		return
	}

	a.respondJSON(w, http.StatusOK, overdueReportResponse{
		OverdueReport: result,
		TotalOverdue:  result.TotalOverdue(),
	})
}

func (a *API) handleItemTypeDistribution(w http.ResponseWriter, r *http.Request) {
	result, err := a.deps.ItemTypeDistribution.Handle(r.Context(), itemtypedistribution.BuildQuery())
	if err != nil {
		a.respondQueryFailure(w, r, err)
		return
	}

	a.respondJSON(w, http.StatusOK, result)
}

func (a *API) handleBorrowingTrend(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(trendDateLayout, r.URL.Query().Get("from"))
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, "from must be a date formatted as "+trendDateLayout)
		return
	}

	to, err := time.Parse(trendDateLayout, r.URL.Query().Get("to"))
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, "to must be a date formatted as "+trendDateLayout)
		return
	}

	query, err := borrowingtrend.BuildQuery(from, to)
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.deps.BorrowingTrend.Handle(r.Context(), query)
	if err != nil {
		a.respondQueryFailure(w, r, err)
		return
	}

	a.respondJSON(w, http.StatusOK, result)
}

func (a *API) handleBorrowerLoans(w http.ResponseWriter, r *http.Request) {
	query, err := borrowerloans.BuildQuery(chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.deps.BorrowerLoans.Handle(r.Context(), query)
	if err != nil {
		a.respondQueryFailure(w, r, err)
		return
	}

	a.respondJSON(w, http.StatusOK, result)
}
