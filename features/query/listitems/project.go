package listitems

import (
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ProjectItemList implements the query logic to list every registered item.
// This is a pure function with no side effects - it takes the current items,
// the projection time and the journal sequence and returns the projected list.
//
// Query Logic:
//
//	GIVEN: All registered items
//	WHEN: ListItems query is executed
//	THEN: ItemList is returned with one entry per item, in item code order
//	INCLUDES: Every item regardless of status, Retired included (soft-deleted, never removed)
//	DERIVES: Effective status at the projection time (expired due dates read as Overdue)
func ProjectItemList(items []core.Item, now time.Time, sequence circstore.JournalSequenceUint) ItemList {
	infos := make([]ItemInfo, 0, len(items))

	for _, item := range items {
		info := ItemInfo{
			ItemCode: item.Code,
			ItemType: item.Type,
			Title:    item.Title,
			Creator:  item.Creator,
			Status:   string(core.EffectiveStatus(item.Status, item.DueAt, now)),
			Borrower: item.Borrower,
		}

		if !item.DueAt.IsZero() {
			dueAt := item.DueAt
			info.DueAt = &dueAt
		}

		infos = append(infos, info)
	}

	return ItemList{
		Items:          infos,
		Count:          len(infos),
		SequenceNumber: sequence,
	}
}
