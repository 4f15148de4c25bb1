package renewloan

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	commandType = "RenewLoan"
)

// Command represents the intent to extend an open loan for its borrower.
// Borrower is the caller's identity and must match the loan's holder.
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
