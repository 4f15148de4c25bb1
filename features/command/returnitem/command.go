package returnitem

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	commandType = "ReturnItem"
)

// Command represents the intent to take an item back from its borrower.
type Command struct {
	ItemCode   core.ItemCodeString
	OccurredAt core.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(itemCode string, occurredAt time.Time) (Command, error) {
	if itemCode == "" {
		return Command{}, shell.ErrMissingItemCode
	}

	return Command{
		ItemCode:   itemCode,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}, nil
}
