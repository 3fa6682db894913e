// Package adjustments resolves which age-grading factor table applies to a
// race and locks that choice so later manifest edits never regrade a race.
package adjustments

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/longcourse/agegrade/internal/adapters/storage"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/results"
	"github.com/longcourse/agegrade/pkg/logger"
)

// Version is one entry of the adjustments manifest.
type Version struct {
	ID            string `json:"id"`
	Distance      string `json:"distance"`
	EffectiveFrom string `json:"effective_from"` // YYYY-MM-DD
	File          string `json:"file"`           // factor table, relative to the manifest dir
}

// manifest is the on-disk shape of the manifest document.
type manifest struct {
	Versions []Version `json:"versions"`
}

// Resolver maps races to factor tables. The manifest and factor tables are
// cached in memory after first load and only a process restart reloads them.
type Resolver struct {
	manifestPath string
	assignments  *storage.AssignmentStore
	log          logger.Logger

	mu           sync.Mutex
	manifest     *manifest
	factorTables map[string]map[string]float64
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the resolver.
func WithLogger(log logger.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a resolver reading the manifest at manifestPath and
// recording assignments through the given store.
func NewResolver(manifestPath string, assignments *storage.AssignmentStore, opts ...Option) *Resolver {
	r := &Resolver{
		manifestPath: manifestPath,
		assignments:  assignments,
		factorTables: make(map[string]map[string]float64),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("adjustments")
	}
	return r
}

// Resolve returns the factor table and version id for a race.
//
// An existing assignment whose version is still in the manifest is the fast
// path and guarantees grading stability. Otherwise the latest version with
// effective_from on or before the race date is selected and the assignment
// is persisted; a persistence failure is logged but never blocks returning
// the resolved table.
func (r *Resolver) Resolve(ctx context.Context, race *model.Race) (map[string]float64, string, error) {
	raceKey := race.Identity()

	assigned, ok, err := r.assignments.Get(raceKey)
	if err != nil {
		// Treat an unreadable assignments document like a missing one; the
		// date rule below re-derives the same version deterministically.
		r.log.Warn(ctx, "failed to read adjustments assignments",
			logger.String("race", raceKey),
			logger.Error(err),
		)
	}
	if ok {
		if v, found := r.versionByID(race.Distance, assigned); found {
			factors, err := r.factorTable(v.File)
			if err != nil {
				return nil, "", err
			}
			return factors, assigned, nil
		}
		r.log.Warn(ctx, "assigned adjustments version missing from manifest, falling back by date",
			logger.String("race", raceKey),
			logger.String("version", assigned),
		)
	}

	v, found := r.selectByDate(race.Distance, race.Date)
	if !found {
		return nil, "", fmt.Errorf("%w for distance %s", results.ErrNoAdjustments, race.Distance)
	}
	factors, err := r.factorTable(v.File)
	if err != nil {
		return nil, "", err
	}

	if err := r.assignments.Put(raceKey, v.ID); err != nil {
		// Bookkeeping only; the resolved table is still returned.
		r.log.Error(ctx, "failed to persist adjustments assignment",
			logger.String("race", raceKey),
			logger.String("version", v.ID),
			logger.Error(err),
		)
	} else {
		r.log.Info(ctx, "assigned adjustments version",
			logger.String("race", raceKey),
			logger.String("version", v.ID),
		)
	}

	return factors, v.ID, nil
}

// versionsForDistance returns the manifest versions for a distance sorted by
// effective_from ascending.
func (r *Resolver) versionsForDistance(distance string) ([]Version, error) {
	m, err := r.loadManifest()
	if err != nil {
		return nil, err
	}
	var versions []Version
	for _, v := range m.Versions {
		if v.Distance == distance {
			versions = append(versions, v)
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return parseDate(versions[i].EffectiveFrom).Before(parseDate(versions[j].EffectiveFrom))
	})
	return versions, nil
}

func (r *Resolver) versionByID(distance, id string) (Version, bool) {
	versions, err := r.versionsForDistance(distance)
	if err != nil {
		return Version{}, false
	}
	for _, v := range versions {
		if v.ID == id {
			return v, true
		}
	}
	return Version{}, false
}

// selectByDate picks the latest version whose effective_from does not
// exceed the race date.
func (r *Resolver) selectByDate(distance, raceDate string) (Version, bool) {
	versions, err := r.versionsForDistance(distance)
	if err != nil {
		return Version{}, false
	}
	target := parseDate(raceDate)
	var selected Version
	found := false
	for _, v := range versions {
		if parseDate(v.EffectiveFrom).After(target) {
			break
		}
		selected = v
		found = true
	}
	return selected, found
}

func (r *Resolver) loadManifest() (*manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.manifest != nil {
		return r.manifest, nil
	}
	var m manifest
	ok, err := storage.ReadJSON(r.manifestPath, &m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("adjustments manifest missing at %s", r.manifestPath)
	}
	r.manifest = &m
	return r.manifest, nil
}

// factorTable loads and caches the factor table referenced by a manifest
// entry. Relative paths resolve against the manifest's directory.
func (r *Resolver) factorTable(file string) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if factors, ok := r.factorTables[file]; ok {
		return factors, nil
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(r.manifestPath), file)
	}
	factors := make(map[string]float64)
	ok, err := storage.ReadJSON(path, &factors)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("factor table missing at %s", path)
	}
	r.factorTables[file] = factors
	return factors, nil
}

// parseDate parses YYYY-MM-DD, treating unparsable input as the epoch.
func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}
