package checkoutitem

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	commandType = "CheckOutItem"
)

// Command represents the intent to lend an item to a borrower.
// It encapsulates all the necessary information required to execute the checkout use case.
type Command struct {
	ItemCode   core.ItemCodeString
	Borrower   core.BorrowerIDString
	OccurredAt core.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// It validates the raw input so that malformed requests fail before any
// handler or store is involved.
func BuildCommand(itemCode string, borrower string, occurredAt time.Time) (Command, error) {
	if itemCode == "" {
		return Command{}, shell.ErrMissingItemCode
	}

	if borrower == "" {
		return Command{}, shell.ErrMissingBorrower
	}

	return Command{
		ItemCode:   itemCode,
		Borrower:   borrower,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}, nil
}
