// Package policy classifies races into slot-allocation regimes.
package policy

import (
	"time"

	"github.com/longcourse/agegrade/internal/domain/model"
)

// SlotPolicy is one of the three slot-allocation regimes.
type SlotPolicy string

const (
	// CombinedFixed is a single shared pool across genders, fixed size.
	CombinedFixed SlotPolicy = "combined-fixed"
	// SplitFixed is per-gender fixed pools.
	SplitFixed SlotPolicy = "split-fixed"
	// SplitDynamic is per-gender pools sized from relative participation
	// once starter counts stabilize.
	SplitDynamic SlotPolicy = "split-dynamic"
)

// splitDynamicBoundary is the date from which full-distance races move to
// the split-dynamic regime. The exact boundary models a real policy change.
var splitDynamicBoundary = time.Date(2025, time.November, 14, 0, 0, 0, 0, time.UTC)

// Resolve decides how slots are allocated for a race. It is a pure, total
// function of the race fields and never fails.
//
// Priority:
//  1. An explicit recognized slot_policy override wins.
//  2. A per-gender slots mapping implies split-fixed.
//  3. 140.6 races switch from combined-fixed to split-dynamic at the
//     2025-11-14 boundary.
//  4. 70.3 races default to split-fixed.
//  5. Anything else falls back to combined-fixed.
func Resolve(race *model.Race) SlotPolicy {
	switch SlotPolicy(race.SlotPolicy) {
	case CombinedFixed, SplitFixed, SplitDynamic:
		return SlotPolicy(race.SlotPolicy)
	}

	if race.Slots.IsSplit() {
		return SplitFixed
	}

	if race.Distance == model.DistanceFull {
		if !parseDate(race.Date).Before(splitDynamicBoundary) {
			return SplitDynamic
		}
		return CombinedFixed
	}

	if race.Distance == model.DistanceHalf {
		return SplitFixed
	}

	return CombinedFixed
}

// NeedsGender reports whether results under this policy are fetched per
// gender, so callers know whether a gender parameter is required.
func NeedsGender(p SlotPolicy) bool {
	return p == SplitFixed || p == SplitDynamic
}

// IsSplit reports whether slots are tracked per gender under this policy.
func IsSplit(p SlotPolicy) bool {
	return p == SplitFixed || p == SplitDynamic
}

// parseDate parses YYYY-MM-DD, treating unparsable input as the epoch so
// that malformed dates fall on the pre-boundary side.
func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}
