// Package scan implements the barcode-driven circulation workflow.
//
// A scanner produces rapid sequential submissions of (item code, intent)
// pairs. The intake translates each scan into the matching circulation
// command, executes it, and folds the outcome into the uniform operation
// result the scanning station displays. Callers need no serialization of
// their own: every command commits atomically per item code, so overlapping
// scans of the same code resolve to one winner and one clean rejection.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/features/command/checkoutitem"
	"github.com/stacksys/circulation-tracker-go/features/command/returnitem"
	"github.com/stacksys/circulation-tracker-go/shell"
)

// Intent names the circulation operation a scan should trigger.
type Intent string

const (
	// IntentCheckout lends the scanned item to the borrower.
	IntentCheckout Intent = "checkout"

	// IntentReturn takes the scanned item back, whoever holds it.
	IntentReturn Intent = "return"
)

// ErrUnknownIntent is returned for intents the intake does not understand.
var ErrUnknownIntent = errors.New("scan intent must be checkout or return")

// ParseIntent converts a raw intent string into an Intent.
func ParseIntent(s string) (Intent, error) {
	switch intent := Intent(s); intent {
	case IntentCheckout, IntentReturn:
		return intent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, s)
	}
}

const (
	messageCheckedOut        = "item checked out"
	messageAlreadyCheckedOut = "item is already checked out to this borrower"
	messageReturned          = "item returned"
)

// CheckoutHandler executes the checkout command for a scan.
type CheckoutHandler interface {
	Handle(ctx context.Context, command checkoutitem.Command) (shell.HandlerResult, error)
}

// ReturnHandler executes the return command for a scan.
type ReturnHandler interface {
	Handle(ctx context.Context, command returnitem.Command) (shell.HandlerResult, error)
}

// ItemReader loads the item state shown in the scan result.
type ItemReader interface {
	LoadItem(ctx context.Context, itemCode string) (circstore.ItemRecord, bool, error)
}

// Intake dispatches scans to the circulation command handlers.
type Intake struct {
	checkoutHandler CheckoutHandler
	returnHandler   ReturnHandler
	items           ItemReader
}

// NewIntake creates an Intake over the given command handlers and item reader.
func NewIntake(checkoutHandler CheckoutHandler, returnHandler ReturnHandler, items ItemReader) Intake {
	return Intake{
		checkoutHandler: checkoutHandler,
		returnHandler:   returnHandler,
		items:           items,
	}
}

// ProcessScan executes one scanned (item code, intent) pair and returns the
// uniform operation result.
//
// Business rule refusals come back as IsSuccess=false with the rejection
// message; only malformed input and infrastructure failures are returned as
// errors. A repeat checkout scan by the same borrower is an idempotent
// success, which is what protects the scanning station against its own
// double submissions.
func (i Intake) ProcessScan(
	ctx context.Context,
	itemCode string,
	intent Intent,
	borrower string,
) (shell.OperationResult, error) {
	switch intent {
	case IntentCheckout:
		return i.processCheckout(ctx, itemCode, borrower)
	case IntentReturn:
		return i.processReturn(ctx, itemCode)
	default:
		return shell.OperationResult{}, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
	}
}

func (i Intake) processCheckout(ctx context.Context, itemCode string, borrower string) (shell.OperationResult, error) {
	command, err := checkoutitem.BuildCommand(itemCode, borrower, time.Now())
	if err != nil {
		return shell.OperationResult{}, err
	}

	handlerResult, err := i.checkoutHandler.Handle(ctx, command)

	return i.resultFromOutcome(ctx, itemCode, handlerResult, err, messageCheckedOut, messageAlreadyCheckedOut)
}

func (i Intake) processReturn(ctx context.Context, itemCode string) (shell.OperationResult, error) {
	command, err := returnitem.BuildCommand(itemCode, time.Now())
	if err != nil {
		return shell.OperationResult{}, err
	}

	handlerResult, err := i.returnHandler.Handle(ctx, command)

	// Returns are not idempotent at the decide level: a second return scan
	// rejects with NoOpenLoan, which reads correctly at the station.
	return i.resultFromOutcome(ctx, itemCode, handlerResult, err, messageReturned, messageReturned)
}

// resultFromOutcome folds a handler outcome into the uniform operation result,
// attaching the item's current state wherever one exists.
func (i Intake) resultFromOutcome(
	ctx context.Context,
	itemCode string,
	handlerResult shell.HandlerResult,
	err error,
	successMessage string,
	idempotentMessage string,
) (shell.OperationResult, error) {
	if err != nil {
		rejection, isRejection := core.AsRejection(err)
		if !isRejection {
			return shell.OperationResult{}, err
		}

		return shell.RejectionResult(rejection, i.loadItemView(ctx, itemCode)), nil
	}

	message := successMessage
	if handlerResult.Idempotent {
		message = idempotentMessage
	}

	return shell.SuccessResult(message, i.loadItemView(ctx, itemCode)), nil
}

// loadItemView reads the item's post-operation state for display. The view is
// informational: a read failure here must not turn a committed operation into
// an error, so it degrades to a result without an item.
func (i Intake) loadItemView(ctx context.Context, itemCode string) *shell.ItemView {
	record, found, err := i.items.LoadItem(ctx, itemCode)
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
