// Package slots annotates ranked results with championship slot flags and
// computes the dynamic per-gender slot split.
package slots

import "github.com/longcourse/agegrade/internal/domain/model"

// Allocate marks age-group winners and pool qualifiers in place. Entries
// must already be in graded-time order.
//
// Every entry with AGPlace == 1 is a winner, one per distinct age group in
// the result set; that can exceed the planned winner-slot count when more
// age groups show up than were configured, which is accepted as-is. The
// remaining pool, max(0, totalSlots - distinct winning age groups), goes to
// the fastest non-winners in graded order.
func Allocate(entries []model.ResultEntry, totalSlots int) {
	winners := make(map[string]struct{})
	for i := range entries {
		if entries[i].AGPlace == 1 {
			entries[i].AGWinner = true
			winners[entries[i].AgeGroup] = struct{}{}
		}
	}

	remaining := totalSlots - len(winners)
	for i := range entries {
		if remaining <= 0 {
			break
		}
		if entries[i].AGWinner {
			continue
		}
		entries[i].PoolQualifier = true
		remaining--
	}
}
