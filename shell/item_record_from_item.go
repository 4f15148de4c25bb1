package shell

import (
	"errors"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ErrMappingToItemRecordFailed is returned when item record conversion fails.
var ErrMappingToItemRecordFailed = errors.New("mapping to item record failed")

// ItemRecordFrom converts a domain Item plus persistence bookkeeping into an
// ItemRecord. Version is the value the engines will write: callers pass the
// loaded version plus one, or one for a fresh registration.
func ItemRecordFrom(item core.Item, version uint, updatedAt time.Time) (circstore.ItemRecord, error) {
	record, err := circstore.BuildItemRecord(
		item.Code,
		item.Type,
		item.Title,
		item.Creator,
		string(item.Status),
		item.Borrower,
		item.DueAt,
		version,
		updatedAt,
	)

	if err != nil {
		return circstore.ItemRecord{}, errors.Join(ErrMappingToItemRecordFailed, err)
	}

	return record, nil
}
