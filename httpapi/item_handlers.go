package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacksys/circulation-tracker-go/features/command/registeritem"
	"github.com/stacksys/circulation-tracker-go/features/command/retireitem"
	"github.com/stacksys/circulation-tracker-go/features/command/setitemcondition"
	"github.com/stacksys/circulation-tracker-go/features/query/listitems"
)

func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	result, err := a.deps.ListItems.Handle(r.Context(), listitems.BuildQuery())
	if err != nil {
		a.respondQueryFailure(w, r, err)
		return
	}

	a.respondJSON(w, http.StatusOK, result)
}

type registerItemRequest struct {
	ItemCode string `json:"itemCode"`
	ItemType string `json:"itemType"`
	Title    string `json:"title"`
	Creator  string `json:"creator,omitempty"`
	Actor    string `json:"actor"`
}

func (a *API) handleRegisterItem(w http.ResponseWriter, r *http.Request) {
	var request registerItemRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	command, err := registeritem.BuildCommand(
		request.ItemCode,
		request.ItemType,
		request.Title,
		request.Creator,
		request.Actor,
		time.Now(),
	)
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handlerResult, err := a.deps.RegisterItem.Handle(r.Context(), command)

	a.respondOperationOutcome(w, r, request.ItemCode, handlerResult, err,
		"item registered", "item is already registered")
}

type retireItemRequest struct {
	Actor string `json:"actor"`
}

func (a *API) handleRetireItem(w http.ResponseWriter, r *http.Request) {
	itemCode := chi.URLParam(r, "code")

	var request retireItemRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	command, err := retireitem.BuildCommand(itemCode, request.Actor, time.Now())
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handlerResult, err := a.deps.RetireItem.Handle(r.Context(), command)

	a.respondOperationOutcome(w, r, itemCode, handlerResult, err,
		"item retired", "item is already retired")
}

type setItemConditionRequest struct {
	TargetStatus string `json:"targetStatus"`
	Actor        string `json:"actor"`
}

func (a *API) handleSetItemCondition(w http.ResponseWriter, r *http.Request) {
	itemCode := chi.URLParam(r, "code")

	var request setItemConditionRequest
	if err := decodeJSON(r, &request); err != nil {
		a.respondError(w, r, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	command, err := setitemcondition.BuildCommand(itemCode, request.TargetStatus, request.Actor, time.Now())
	if err != nil {
		a.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	handlerResult, err := a.deps.SetItemCondition.Handle(r.Context(), command)

	a.respondOperationOutcome(w, r, itemCode, handlerResult, err,
		"item condition updated", "item condition unchanged")
}
