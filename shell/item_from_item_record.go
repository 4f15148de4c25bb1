package shell

import (
	"errors"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ErrMappingToItemFailed is returned when item conversion fails.
var ErrMappingToItemFailed = errors.New("mapping to item failed")

// ItemsFromRecords converts stored ItemRecords into domain Items.
func ItemsFromRecords(records circstore.ItemRecords) ([]core.Item, error) {
	items := make([]core.Item, 0, len(records))

	for _, record := range records {
		item, err := ItemFromRecord(record)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}

// ItemFromRecord converts a stored ItemRecord back into the domain Item.
// The persistence bookkeeping (version, updated-at) stays behind; command
// handlers carry the loaded version separately as the concurrency token.
func ItemFromRecord(record circstore.ItemRecord) (core.Item, error) {
	status, err := core.ParseItemStatus(record.Status)
	if err != nil {
		return core.Item{}, errors.Join(ErrMappingToItemFailed, err)
	}

	item := core.Item{
		Code:     record.ItemCode,
		Type:     record.ItemType,
		Title:    record.Title,
		Creator:  record.Creator,
		Status:   status,
		Borrower: record.Borrower,
		DueAt:    record.DueAt,
	}

	if err := item.Validate(); err != nil {
		return core.Item{}, errors.Join(ErrMappingToItemFailed, err)
	}

	return item, nil
}
