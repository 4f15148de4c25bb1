package shell

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
)

// ItemView is the read model of an item handed to callers. Status is the
// effective status at view time: an expired due date reads as Overdue even
// though storage still says CheckedOut.
type ItemView struct {
	ItemCode string     `json:"itemCode"`
	ItemType string     `json:"itemType"`
	Title    string     `json:"title"`
	Creator  string     `json:"creator,omitempty"`
	Status   string     `json:"status"`
	Borrower string     `json:"borrower,omitempty"`
	DueAt    *time.Time `json:"dueAt,omitempty"`
}

// ItemViewFrom builds the caller-facing view of an item, deriving the
// effective status at the given time.
func ItemViewFrom(item core.Item, now time.Time) ItemView {
	view := ItemView{
		ItemCode: item.Code,
		ItemType: item.Type,
		Title:    item.Title,
		Creator:  item.Creator,
		Status:   string(core.EffectiveStatus(item.Status, item.DueAt, now)),
		Borrower: item.Borrower,
	}

	if !item.DueAt.IsZero() {
		dueAt := item.DueAt
		view.DueAt = &dueAt
	}

	return view
}

// OperationResult is the uniform outcome shape of circulation operations.
// Every call translates 1:1 into a single user-visible outcome: business
// rule rejections come back as IsSuccess=false with the rejection message,
// never as errors that unwind past the caller.
type OperationResult struct {
	IsSuccess bool      `json:"isSuccess"`
	Message   string    `json:"message"`
	Item      *ItemView `json:"item,omitempty"`
}

// SuccessResult builds an OperationResult for a completed operation.
func SuccessResult(message string, item *ItemView) OperationResult {
	return OperationResult{
		IsSuccess: true,
		Message:   message,
		Item:      item,
	}
}

// RejectionResult builds an OperationResult for an operation a business rule
// refused. The rejection message is surfaced verbatim to the actor.
func RejectionResult(rejection core.Rejection, item *ItemView) OperationResult {
	return OperationResult{
		IsSuccess: false,
		Message:   rejection.Message,
		Item:      item,
	}
}
