package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

type errorResponse struct {
	Error string `json:"error"`
}

// decodeJSON decodes the request body into target.
func decodeJSON(r *http.Request, target any) error {
	return jsoniter.ConfigFastest.NewDecoder(r.Body).Decode(target)
}

// respondJSON writes payload as a JSON response with the given status.
func (a *API) respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := jsoniter.ConfigFastest.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encoding response failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError writes a JSON error body with the given status.
func (a *API) respondError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	a.respondJSON(w, status, errorResponse{Error: message})
}

// respondOperationOutcome folds a command handler outcome into the uniform
// operation result. Business rule rejections render as 200 with
// IsSuccess=false: a refusal is a complete answer to the actor, not a
// transport failure.
func (a *API) respondOperationOutcome(
	w http.ResponseWriter,
	r *http.Request,
	itemCode string,
	handlerResult shell.HandlerResult,
	err error,
	successMessage string,
	idempotentMessage string,
) {
	if err != nil {
		rejection, isRejection := core.AsRejection(err)
		if !isRejection {
			a.respondCommandFailure(w, r, err)
			return
		}

		a.respondJSON(w, http.StatusOK, shell.RejectionResult(rejection, a.loadItemView(r.Context(), itemCode)))

		return
	}

	message := successMessage
	if handlerResult.Idempotent {
		message = idempotentMessage
	}

	a.respondJSON(w, http.StatusOK, shell.SuccessResult(message, a.loadItemView(r.Context(), itemCode)))
}

// respondCommandFailure maps a non-rejection command error onto a status code.
func (a *API) respondCommandFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shell.ErrActionNotPermitted):
		a.respondError(w, r, http.StatusForbidden, err.Error())
	case shell.IsCommandValidationError(err):
		a.respondError(w, r, http.StatusBadRequest, err.Error())
	case isInvariantViolation(err):
		a.logInvariantViolation(r, err)
		a.respondError(w, r, http.StatusInternalServerError, "internal invariant violated")
	default:
		a.respondError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	}
}

// respondQueryFailure maps a query error onto a status code.
func (a *API) respondQueryFailure(w http.ResponseWriter, r *http.Request, err error) {
	if isInvariantViolation(err) {
		a.logInvariantViolation(r, err)
		a.respondError(w, r, http.StatusInternalServerError, "internal invariant violated")

		return
	}

	a.respondError(w, r, http.StatusServiceUnavailable, "storage unavailable")
}

// isInvariantViolation reports whether err indicates corrupted stored state
// or a broken state transition. These are bugs, not bad input, and must
// surface loudly instead of hiding behind a retryable status.
func isInvariantViolation(err error) bool {
	return errors.Is(err, core.ErrInvalidTransition) ||
		errors.Is(err, circstore.ErrRecordInvariantViolated) ||
		errors.Is(err, circstore.ErrItemCodeMismatch)
}

func (a *API) logInvariantViolation(r *http.Request, err error) {
	if a.contextualLogger != nil {
		a.contextualLogger.ErrorContext(r.Context(), "storage invariant violated",
			"error", err.Error(),
			"path", r.URL.Path,
		)

		return
	}

	if a.logger != nil {
		a.logger.Error("storage invariant violated",
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}
}

// loadItemView reads the item's post-operation state for display. The view is
// informational: a read failure here must not turn a committed operation into
// an error, so it degrades to a result without an item.
func (a *API) loadItemView(ctx context.Context, itemCode string) *shell.ItemView {
	record, found, err := a.deps.Items.LoadItem(ctx, itemCode)
	if err != nil || !found {
		return nil
	}

	item, err := shell.ItemFromRecord(record)
	if err != nil {
		return nil
	}

	view := shell.ItemViewFrom(item, time.Now())

	return &view
}
