package retireitem

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	commandType = "RetireItem"
)

// Command represents the intent to permanently withdraw an item from
// circulation. Actor is the staff member requesting the retirement.
type Command struct {
	ItemCode   core.ItemCodeString
	Actor      core.ActorIDString
	OccurredAt core.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(itemCode string, actor string, occurredAt time.Time) (Command, error) {
	if itemCode == "" {
		return Command{}, shell.ErrMissingItemCode
	}

	if actor == "" {
		return Command{}, shell.ErrMissingActor
	}

	return Command{
		ItemCode:   itemCode,
		Actor:      actor,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}, nil
}
