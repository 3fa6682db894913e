// Package cache implements the two-tier (in-progress/final) file-backed
// result cache that decides when the upstream feed is actually called.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/longcourse/agegrade/internal/adapters/storage"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/pkg/keylock"
	"github.com/longcourse/agegrade/pkg/logger"
	"github.com/longcourse/agegrade/pkg/metrics"
)

// Cache stages.
const (
	StageInProgress = "in_progress"
	StageFinal      = "final"
)

// Defaults for the freshness window and the final promotion delay.
const (
	DefaultFreshness  = 60 * time.Second
	DefaultFinalDelay = 24 * time.Hour
)

// Grader performs one full grading pass. The cache invokes it only when no
// usable cache entry exists for the requested tier.
type Grader func(ctx context.Context) ([]model.ResultEntry, error)

// ResultCache serves cached result documents and governs upstream calls.
// Final entries are write-once ground truth; in-progress entries are only
// trusted within the freshness window.
type ResultCache struct {
	dataDir    string
	freshness  time.Duration
	finalDelay time.Duration
	locks      *keylock.KeyLock
	now        func() time.Time
	log        logger.Logger
}

// Option applies a configuration option to the ResultCache.
type Option func(*ResultCache)

// WithFreshness sets the in-progress freshness window.
func WithFreshness(d time.Duration) Option {
	return func(c *ResultCache) {
		if d > 0 {
			c.freshness = d
		}
	}
}

// WithFinalDelay sets how long after the earliest start time a race's
// results become final.
func WithFinalDelay(d time.Duration) Option {
	return func(c *ResultCache) {
		if d > 0 {
			c.finalDelay = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(log logger.Logger) Option {
	return func(c *ResultCache) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a result cache rooted at dataDir.
func New(dataDir string, opts ...Option) *ResultCache {
	c := &ResultCache{
		dataDir:    dataDir,
		freshness:  DefaultFreshness,
		finalDelay: DefaultFinalDelay,
		locks:      keylock.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("cache")
	}
	return c
}

// GetResults returns a race's results, serving from cache when allowed.
//
// Once the final window is reached an existing final entry is returned
// verbatim and never re-fetched or overwritten; an absent one triggers
// exactly one successful grading pass which is then persisted as final.
// Before the final window, a fresh in-progress entry short-circuits the
// grader; otherwise the grader runs and overwrites the in-progress entry.
// Grader errors never touch the cache, so a later call can retry.
func (c *ResultCache) GetResults(ctx context.Context, race *model.Race, gender string, grader Grader) ([]model.ResultEntry, error) {
	lockKey := race.Identity() + "|" + gender
	c.locks.Lock(lockKey)
	defer c.locks.Unlock(lockKey)

	if c.finalReached(race) {
		return c.finalTier(ctx, race, gender, grader)
	}
	return c.inProgressTier(ctx, race, gender, grader)
}

// FinalReached reports whether the race is old enough for the final tier.
func (c *ResultCache) FinalReached(race *model.Race) bool {
	return c.finalReached(race)
}

func (c *ResultCache) finalReached(race *model.Race) bool {
	start := race.EarliestStartTime.Unix()
	if start <= 0 {
		return false
	}
	return c.now().Unix() >= start+int64(c.finalDelay.Seconds())
}

func (c *ResultCache) finalTier(ctx context.Context, race *model.Race, gender string, grader Grader) ([]model.ResultEntry, error) {
	path := c.entryPath(race, StageFinal, gender)
	if entries, ok := c.read(ctx, path); ok {
		metrics.RecordCacheHit(StageFinal)
		return entries, nil
	}
	metrics.RecordCacheMiss(StageFinal)

	entries, err := grader(ctx)
	if err != nil {
		return nil, err
	}
	c.write(ctx, path, StageFinal, entries)
	return entries, nil
}

func (c *ResultCache) inProgressTier(ctx context.Context, race *model.Race, gender string, grader Grader) ([]model.ResultEntry, error) {
	path := c.entryPath(race, StageInProgress, gender)
	if c.isFresh(path) {
		if entries, ok := c.read(ctx, path); ok {
			metrics.RecordCacheHit(StageInProgress)
			return entries, nil
		}
	}
	metrics.RecordCacheMiss(StageInProgress)

	entries, err := grader(ctx)
	if err != nil {
		return nil, err
	}
	c.write(ctx, path, StageInProgress, entries)
	return entries, nil
}

// entryPath builds the cache file path for (distance, stage, gender, race).
// The gender segment is present only when the caller fetched per gender;
// an empty gender under a split policy defensively falls back to men so a
// missing parameter never writes outside the gendered layout.
func (c *ResultCache) entryPath(race *model.Race, stage, gender string) string {
	parts := []string{c.dataDir, race.Distance}
	if gender != "" {
		parts = append(parts, gender)
	}
	parts = append(parts, stage, sanitizeKey(race.Identity())+".json")
	return filepath.Join(parts...)
}

func (c *ResultCache) read(ctx context.Context, path string) ([]model.ResultEntry, bool) {
	var entries []model.ResultEntry
	ok, err := storage.ReadJSON(path, &entries)
	if err != nil {
		c.log.Warn(ctx, "failed to read cache entry", logger.String("path", path), logger.Error(err))
		return nil, false
	}
	return entries, ok
}

// write persists a cache entry. Failures are logged and swallowed: serving
// fresh-but-uncached data beats failing the request.
func (c *ResultCache) write(ctx context.Context, path, stage string, entries []model.ResultEntry) {
	if err := storage.WriteJSON(path, entries); err != nil {
		c.log.Warn(ctx, "failed to write cache entry", logger.String("path", path), logger.Error(err))
		return
	}
	metrics.RecordCacheWrite(stage)
	c.log.Debug(ctx, "cache write", logger.String("path", path), logger.String("stage", stage))
}

// isFresh reports whether the entry at path was written within the
// freshness window. Missing files are simply not fresh.
func (c *ResultCache) isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return c.now().Sub(info.ModTime()) <= c.freshness
}

// sanitizeKey keeps race identities filesystem-safe.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, strings.ReplaceAll(key, " ", "_"))
}
