package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/renewloan"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/scan"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const messageInvalidJSON = "request body is not valid json"

type checkoutRequest struct {
	ItemCode string `json:"itemCode"`
	Borrower string `json:"borrower"`
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var request checkoutRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	command, err := checkoutitem.BuildCommand(request.ItemCode, request.Borrower, time.Now())
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handlerResult, err := a.deps.CheckOutItem.Handle(r.Context(), command)

	a.respondOperationOutcome(w, r, request.ItemCode, handlerResult, err,
		"item checked out", "item is already checked out to this borrower")
}

type returnRequest struct {
	ItemCode string `json:"itemCode"`
}

func (a *API) handleReturn(w http.ResponseWriter, r *http.Request) {
	var request returnRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	command, err := returnitem.BuildCommand(request.ItemCode, time.Now())
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handlerResult, err := a.deps.ReturnItem.Handle(r.Context(), command)

	a.respondOperationOutcome(w, r, request.ItemCode, handlerResult, err,
		"item returned", "item returned")
}

type renewRequest struct {
	ItemCode string `json:"itemCode"`
	Borrower string `json:"borrower"`
}

func (a *API) handleRenew(w http.ResponseWriter, r *http.Request) {
	var request renewRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	command, err := renewloan.BuildCommand(request.ItemCode, request.Borrower, time.Now())
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handlerResult, err := a.deps.RenewLoan.Handle(r.Context(), command)

	a.respondOperationOutcome(w, r, request.ItemCode, handlerResult, err,
		"loan renewed", "loan renewed")
}

type scanRequest struct {
	ItemCode string `json:"itemCode"`
	Intent   string `json:"intent"`
	Borrower string `json:"borrower,omitempty"`
}

// handleScan feeds one scanner submission through the intake. The intake
// already folds rejections and idempotent repeats into the operation result,
// so only malformed input and infrastructure failures reach the status
// mapping here.
func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	var request scanRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	intent, err := scan.ParseIntent(request.Intent)
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.deps.ScanIntake.ProcessScan(r.Context(), request.ItemCode, intent, request.Borrower)
	if err != nil {
		if errors.Is(err, scan.ErrUnknownIntent) || shell.IsCommandValidationError(err) {
			a.respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		a.respondCommandFailure(w, r, err)

		return
	}

	a.respondJSON(w, http.StatusOK, result)
}
