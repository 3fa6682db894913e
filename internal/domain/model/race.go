// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Gender keys as used by the upstream feed and the slots mapping.
const (
	GenderMen   = "men"
	GenderWomen = "women"
)

// Race distances recognized by the pipeline.
const (
	DistanceHalf = "70.3"
	DistanceFull = "140.6"
)

// Race is one entry of the race catalog. The core pipeline only reads it;
// derived fields (DynamicSlots, StartedCounts, AdjustmentsVersion) are
// attached back for the caller's benefit and are not authoritative state.
type Race struct {
	Key                string              `json:"key,omitempty"`
	Name               string              `json:"name"`
	Date               string              `json:"date"` // YYYY-MM-DD
	Distance           string              `json:"distance"`
	EarliestStartTime  EpochSeconds        `json:"earliestStartTime,omitempty"`
	ResultsURLs        ResultsURLs         `json:"results_urls"`
	Slots              Slots               `json:"slots,omitempty"`
	SlotPolicy         string              `json:"slot_policy,omitempty"`
	AgeGroupCategories map[string][]string `json:"age_group_categories,omitempty"`

	DynamicSlots       map[string]GenderSlots `json:"dynamic_slots,omitempty"`
	StartedCounts      map[string]int         `json:"started_counts,omitempty"`
	AdjustmentsVersion string                 `json:"adjustments_version,omitempty"`
}

// Identity returns the race key, synthesizing one from name and date when
// the catalog entry carries no explicit key.
func (r *Race) Identity() string {
	if r.Key != "" {
		return r.Key
	}
	name := r.Name
	if name == "" {
		name = "UNKNOWN"
	}
	date := r.Date
	if date == "" {
		date = "UNKNOWN"
	}
	return name + "-" + date
}

// ResultsURLs holds the per-gender upstream feed endpoints.
type ResultsURLs struct {
	Live map[string]string `json:"live"`
}

// Slots is the total-slot configuration of a race: either a single combined
// pool or per-gender pools. The shape is decided once at unmarshal time
// instead of being re-inspected at each call site.
type Slots struct {
	Combined int
	Men      int
	Women    int
	split    bool
	present  bool
}

// CombinedSlots builds a single shared pool.
func CombinedSlots(total int) Slots {
	return Slots{Combined: total, present: true}
}

// SplitSlots builds per-gender fixed pools.
func SplitSlots(men, women int) Slots {
	return Slots{Men: men, Women: women, split: true, present: true}
}

// IsSplit reports whether the slots were configured per gender.
func (s Slots) IsSplit() bool { return s.split }

// IsZero reports whether no slot configuration was present at all.
func (s Slots) IsZero() bool { return !s.present }

// ForGender returns the fixed pool for a gender under split configuration.
func (s Slots) ForGender(gender string) int {
	switch gender {
	case GenderMen:
		return s.Men
	case GenderWomen:
		return s.Women
	default:
		return 0
	}
}

// GenderShare returns one gender's slot count under a split regime. A split
// configuration carries it directly. A combined integer is halved, with the
// odd slot landing in the men's pool so the shares still sum to the total.
func (s Slots) GenderShare(gender string) int {
	if s.split {
		return s.ForGender(gender)
	}
	switch gender {
	case GenderMen:
		return s.Combined - s.Combined/2
	case GenderWomen:
		return s.Combined / 2
	default:
		return 0
	}
}

// Total returns the combined slot count regardless of shape.
func (s Slots) Total() int {
	if s.split {
		return s.Men + s.Women
	}
	return s.Combined
}

// UnmarshalJSON accepts either a plain integer or {"men": N, "women": N}.
func (s *Slots) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var m map[string]int
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("slots mapping: %w", err)
		}
		*s = SplitSlots(m[GenderMen], m[GenderWomen])
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("slots total: %w", err)
	}
	*s = CombinedSlots(n)
	return nil
}

// MarshalJSON writes the shape back out the way it came in.
func (s Slots) MarshalJSON() ([]byte, error) {
	if s.split {
		return json.Marshal(map[string]int{GenderMen: s.Men, GenderWomen: s.Women})
	}
	return json.Marshal(s.Combined)
}

// EpochSeconds is an epoch timestamp that tolerates being encoded as either
// a JSON number or a string, as the catalog crawler has produced both.
type EpochSeconds int64

// UnmarshalJSON accepts a number or a numeric string.
func (e *EpochSeconds) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "null" || trimmed == "" {
		*e = 0
		return nil
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("epoch seconds: %w", err)
	}
	*e = EpochSeconds(n)
	return nil
}

// Unix returns the timestamp as int64 epoch seconds.
func (e EpochSeconds) Unix() int64 { return int64(e) }

// GenderSlots is one gender's share of a dynamic slot allocation.
type GenderSlots struct {
	WinnerSlots int `json:"winner_slots"`
	PoolSlots   int `json:"pool_slots"`
	TotalSlots  int `json:"total_slots"`
}
