package itemtypedistribution

import (
	"slices"
	"strings"
	"time"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ProjectItemTypeDistribution implements the query logic for per-type counts.
// This is a pure function with no side effects - it takes the current items,
// the projection time and the journal sequence and returns the projected
// distribution.
//
// Query Logic:
//
//	GIVEN: All registered items
//	WHEN: ItemTypeDistribution query is executed
//	THEN: ItemTypeDistribution is returned with one entry per item type, in type order
//	COUNTS: TotalCount over all statuses; AvailableCount for Available;
//	        CheckedOutCount for effective CheckedOut and Overdue
func ProjectItemTypeDistribution(
	items []core.Item,
	now time.Time,
	sequence circstore.JournalSequenceUint,
) ItemTypeDistribution {
	byType := make(map[core.ItemTypeString]*TypeCounts)

	for _, item := range items {
		counts, ok := byType[item.Type]
		if !ok {
			counts = &TypeCounts{ItemType: item.Type}
			byType[item.Type] = counts
		}

		counts.TotalCount++

		switch core.EffectiveStatus(item.Status, item.DueAt, now) {
		case core.StatusAvailable:
			counts.AvailableCount++
		case core.StatusCheckedOut, core.StatusOverdue:
			counts.CheckedOutCount++
		}
	}

	entries := make([]TypeCounts, 0, len(byType))
	for _, counts := range byType {
		entries = append(entries, *counts)
	}

	slices.SortFunc(entries, func(a, b TypeCounts) int {
		return strings.Compare(a.ItemType, b.ItemType)
	})

	return ItemTypeDistribution{
		Entries:        entries,
		SequenceNumber: sequence,
	}
}
