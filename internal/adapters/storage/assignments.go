package storage

import "sync"

// Assignment records which adjustments version a race is locked to.
type Assignment struct {
	AdjustmentsVersion string `json:"adjustments_version"`
}

// AssignmentStore is the persistent race_key -> adjustments version mapping.
// The document is loaded lazily and cached; writes go through the atomic
// replace path.
type AssignmentStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	cache  map[string]Assignment
}

// NewAssignmentStore creates a store backed by the document at path. A
// missing file reads as an empty mapping.
func NewAssignmentStore(path string) *AssignmentStore {
	return &AssignmentStore{path: path}
}

// Get returns the version id assigned to a race, if any.
func (s *AssignmentStore) Get(raceKey string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return "", false, err
	}
	a, ok := s.cache[raceKey]
	return a.AdjustmentsVersion, ok, nil
}

// Put records an assignment and persists the whole document. Existing
// assignments for other races are preserved.
func (s *AssignmentStore) Put(raceKey, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	s.cache[raceKey] = Assignment{AdjustmentsVersion: versionID}
	return WriteJSON(s.path, s.cache)
}

func (s *AssignmentStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	cache := make(map[string]Assignment)
	if _, err := ReadJSON(s.path, &cache); err != nil {
		return err
	}
	s.cache = cache
	s.loaded = true
	return nil
}
