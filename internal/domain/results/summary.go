package results

// GenderSummary describes one gender's slot counts.
type GenderSummary struct {
	TotalSlots  int `json:"total_slots"`
	WinnerSlots int `json:"winner_slots"`
	PoolSlots   int `json:"pool_slots"`
}

// SlotSummary describes a race's slot regime and counts for the UI layer.
// Waiting is set when the regime is split-dynamic and the allocation has
// not been computed yet.
type SlotSummary struct {
	Policy      string                   `json:"policy"`
	Waiting     bool                     `json:"waiting"`
	TotalSlots  int                      `json:"total_slots"`
	WinnerSlots int                      `json:"winner_slots"`
	PoolSlots   int                      `json:"pool_slots"`
	Genders     map[string]GenderSummary `json:"genders,omitempty"`
}
