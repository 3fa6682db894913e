package storage

import (
	"sync"
	"time"

	"github.com/longcourse/agegrade/internal/domain/model"
)

// DynamicRecord is the persisted outcome of one dynamic slot computation.
type DynamicRecord struct {
	Slots         map[string]model.GenderSlots `json:"dynamic_slots"`
	StartedCounts map[string]int               `json:"started_counts"`
	ComputedAt    time.Time                    `json:"computed_at"`
}

// DynamicStore persists dynamic slot allocations keyed by race identity.
// It implements the slots.Store contract: a persisted record is never
// overwritten.
type DynamicStore struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	loaded bool
	cache  map[string]DynamicRecord
}

// NewDynamicStore creates a store backed by the document at path.
func NewDynamicStore(path string) *DynamicStore {
	return &DynamicStore{path: path, now: time.Now}
}

// DynamicSlots returns the persisted allocation for a race, if any. Read
// failures report as absent; the caller recomputes, which is harmless
// because the computation is deterministic.
func (s *DynamicStore) DynamicSlots(raceKey string) (map[string]model.GenderSlots, map[string]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, nil, false
	}
	rec, ok := s.cache[raceKey]
	if !ok {
		return nil, nil, false
	}
	return rec.Slots, rec.StartedCounts, true
}

// SaveDynamicSlots persists an allocation. An existing record for the race
// is kept as-is: once computed, the allocation is immutable.
func (s *DynamicStore) SaveDynamicSlots(raceKey string, alloc map[string]model.GenderSlots, started map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.cache[raceKey]; ok {
		return nil
	}
	s.cache[raceKey] = DynamicRecord{
		Slots:         alloc,
		StartedCounts: started,
		ComputedAt:    s.now().UTC(),
	}
	return WriteJSON(s.path, s.cache)
}

func (s *DynamicStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	cache := make(map[string]DynamicRecord)
	if _, err := ReadJSON(s.path, &cache); err != nil {
		return err
	}
	s.cache = cache
	s.loaded = true
	return nil
}
