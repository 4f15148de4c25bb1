package setitemcondition

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	commandType = "SetItemCondition"
)

// Command represents the intent to move an off-loan item between the
// Available, Maintenance and Lost conditions. Actor is the staff member
// requesting the change.
type Command struct {
	ItemCode     core.ItemCodeString
	TargetStatus core.ItemStatus
	Actor        core.ActorIDString
	OccurredAt   core.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// Only condition statuses are valid targets; loan statuses and Retired are
// owned by their own commands and rejected here as malformed input.
func BuildCommand(itemCode string, targetStatus string, actor string, occurredAt time.Time) (Command, error) {
	if itemCode == "" {
		return Command{}, shell.ErrMissingItemCode
	}

	if actor == "" {
		return Command{}, shell.ErrMissingActor
	}

	target := core.ItemStatus(targetStatus)
	if target != core.StatusAvailable && target != core.StatusMaintenance && target != core.StatusLost {
		return Command{}, shell.ErrInvalidTargetStatus
	}

	return Command{
		ItemCode:     itemCode,
		TargetStatus: target,
		Actor:        actor,
		OccurredAt:   core.ToOccurredAt(occurredAt),
	}, nil
}
