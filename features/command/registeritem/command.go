package registeritem

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/core"
	"github.com/stacksys/circulation-tracker-go/shell"
)

const (
	commandType = "RegisterItem"
)

// Command represents the intent to add a new item to the registry.
// Actor is the staff member requesting the registration and is checked
// against the capability port before any business rule runs.
type Command struct {
	ItemCode   core.ItemCodeString
	ItemType   core.ItemTypeString
	Title      string
	Creator    string
	Actor      core.ActorIDString
	OccurredAt core.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// Creator may be empty; not every item has an author or director.
func BuildCommand(
	itemCode string,
	itemType string,
	title string,
	creator string,
	actor string,
	occurredAt time.Time,
) (Command, error) {
	if itemCode == "" {
		return Command{}, shell.ErrMissingItemCode
	}

	if itemType == "" {
		return Command{}, shell.ErrMissingItemType
	}

	if title == "" {
		return Command{}, shell.ErrMissingTitle
	}

	if actor == "" {
		return Command{}, shell.ErrMissingActor
	}

	return Command{
		ItemCode:   itemCode,
		ItemType:   itemType,
		Title:      title,
		Creator:    creator,
		Actor:      actor,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}, nil
}
