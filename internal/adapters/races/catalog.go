// Package races loads and serves the race catalog.
package races

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/longcourse/agegrade/internal/adapters/storage"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/pkg/logger"
)

// Catalog holds the in-memory race list loaded from the races document.
// Lookups return copies so the pipeline can attach derived fields without
// racing a concurrent reload.
type Catalog struct {
	path string
	log  logger.Logger

	mu    sync.RWMutex
	races []model.Race
}

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithLogger sets a custom logger for the catalog.
func WithLogger(log logger.Logger) Option {
	return func(c *Catalog) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a catalog backed by the document at path. Call Load before
// serving lookups.
func New(path string, opts ...Option) *Catalog {
	c := &Catalog{path: path}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("races")
	}
	return c
}

// Load reads the races document and replaces the in-memory list, sorted by
// date descending so the most recent race comes first.
func (c *Catalog) Load(ctx context.Context) error {
	var races []model.Race
	ok, err := storage.ReadJSON(c.path, &races)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("races document missing at %s", c.path)
	}

	sort.SliceStable(races, func(i, j int) bool {
		return races[i].Date > races[j].Date
	})

	c.mu.Lock()
	c.races = races
	c.mu.Unlock()

	c.log.Info(ctx, "race catalog loaded", logger.Int("races", len(races)))
	return nil
}

// List returns a copy of the catalog in date-descending order.
func (c *Catalog) List() []model.Race {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Race, len(c.races))
	copy(out, c.races)
	return out
}

// ByKey looks a race up by its key, falling back to an exact name match for
// catalog entries that predate keys. The returned race is a copy.
func (c *Catalog) ByKey(key string) (model.Race, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.races {
		if r.Key == key {
			return r, true
		}
	}
	for _, r := range c.races {
		if r.Name == key {
			return r, true
		}
	}
	return model.Race{}, false
}
