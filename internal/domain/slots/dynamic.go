package slots

import (
	"context"
	"math"
	"time"

	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/pkg/keylock"
	"github.com/longcourse/agegrade/pkg/logger"
	"github.com/longcourse/agegrade/pkg/metrics"
)

// Starter counts straight off the gun are noisy; the split is not computed
// until this long after the earliest start time.
const defaultStabilizationWindow = time.Hour

// StarterCounter fetches the lightweight starter-count summary for one
// gender's feed endpoint.
type StarterCounter interface {
	StarterCount(ctx context.Context, endpoint string) (int, error)
}

// Store persists computed allocations so each race is computed at most once,
// including across process restarts.
type Store interface {
	// DynamicSlots returns the persisted allocation and starter counts for
	// a race, with ok=false when none exists.
	DynamicSlots(raceKey string) (map[string]model.GenderSlots, map[string]int, bool)

	// SaveDynamicSlots persists the allocation. Once saved it is immutable.
	SaveDynamicSlots(raceKey string, alloc map[string]model.GenderSlots, started map[string]int) error
}

// Calculator computes the performance-proportional split of a shared slot
// pool between genders under the split-dynamic policy.
type Calculator struct {
	counter       StarterCounter
	store         Store
	stabilization time.Duration
	locks         *keylock.KeyLock
	now           func() time.Time
	log           logger.Logger
}

// CalculatorOption applies a configuration option to the Calculator.
type CalculatorOption func(*Calculator)

// WithStabilizationWindow overrides how long after the earliest start time
// starter counts are trusted.
func WithStabilizationWindow(d time.Duration) CalculatorOption {
	return func(c *Calculator) {
		if d > 0 {
			c.stabilization = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCalculatorLogger sets a custom logger.
func WithCalculatorLogger(log logger.Logger) CalculatorOption {
	return func(c *Calculator) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCalculator creates a dynamic slot calculator.
func NewCalculator(counter StarterCounter, store Store, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		counter:       counter,
		store:         store,
		stabilization: defaultStabilizationWindow,
		locks:         keylock.New(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("slots")
	}
	return c
}

// Allocation returns the per-gender allocation for a race, computing and
// persisting it on first eligible call. ok=false means the allocation is
// not ready yet; callers show a waiting state, never an error.
//
// A persisted allocation is never recomputed. The compute-and-persist
// sequence runs under a per-race lock so concurrent first-time calls do not
// double-compute.
func (c *Calculator) Allocation(ctx context.Context, race *model.Race) (map[string]model.GenderSlots, bool) {
	if len(race.DynamicSlots) > 0 {
		return race.DynamicSlots, true
	}
	if alloc, started, ok := c.store.DynamicSlots(race.Identity()); ok {
		race.DynamicSlots = alloc
		race.StartedCounts = started
		return alloc, true
	}

	if !c.eligible(race) {
		metrics.RecordDynamicSlotWait()
		return nil, false
	}

	c.locks.Lock(race.Identity())
	defer c.locks.Unlock(race.Identity())

	// Another request may have computed while we waited for the lock.
	if alloc, started, ok := c.store.DynamicSlots(race.Identity()); ok {
		race.DynamicSlots = alloc
		race.StartedCounts = started
		return alloc, true
	}

	alloc, started, ok := c.compute(ctx, race)
	if !ok {
		metrics.RecordDynamicSlotWait()
		return nil, false
	}

	if err := c.store.SaveDynamicSlots(race.Identity(), alloc, started); err != nil {
		// Persistence failure does not invalidate the computed split.
		c.log.Warn(ctx, "failed to persist dynamic slots",
			logger.String("race", race.Identity()),
			logger.Error(err),
		)
	}
	metrics.RecordDynamicSlotComputation()
	c.log.Info(ctx, "computed dynamic slot split",
		logger.String("race", race.Identity()),
		logger.Int("men_total", alloc[model.GenderMen].TotalSlots),
		logger.Int("women_total", alloc[model.GenderWomen].TotalSlots),
	)

	race.DynamicSlots = alloc
	race.StartedCounts = started
	return alloc, true
}

// eligible checks the preconditions that make starter counts trustworthy.
func (c *Calculator) eligible(race *model.Race) bool {
	start := race.EarliestStartTime.Unix()
	if start <= 0 {
		return false
	}
	if c.now().Unix() < start+int64(c.stabilization.Seconds()) {
		return false
	}
	if race.Slots.Total() <= 0 {
		return false
	}
	menCats := len(race.AgeGroupCategories[model.GenderMen])
	womenCats := len(race.AgeGroupCategories[model.GenderWomen])
	return menCats > 0 || womenCats > 0
}

// compute fetches starter counts and splits the performance pool. ok=false
// means a count could not be obtained; that is "not ready", not an error.
func (c *Calculator) compute(ctx context.Context, race *model.Race) (map[string]model.GenderSlots, map[string]int, bool) {
	started := make(map[string]int, 2)
	for _, g := range []string{model.GenderMen, model.GenderWomen} {
		endpoint := race.ResultsURLs.Live[g]
		if endpoint == "" {
			return nil, nil, false
		}
		n, err := c.counter.StarterCount(ctx, endpoint)
		if err != nil || n < 0 {
			c.log.Debug(ctx, "starter count unavailable",
				logger.String("race", race.Identity()),
				logger.String("gender", g),
				logger.Error(err),
			)
			return nil, nil, false
		}
		started[g] = n
	}

	totalStarted := started[model.GenderMen] + started[model.GenderWomen]
	if totalStarted == 0 {
		return nil, nil, false
	}

	menWinners := len(race.AgeGroupCategories[model.GenderMen])
	womenWinners := len(race.AgeGroupCategories[model.GenderWomen])
	perfPool := race.Slots.Total() - menWinners - womenWinners
	if perfPool < 0 {
		perfPool = 0
	}

	// Round the men's share to the nearest integer and give women the exact
	// remainder so the two pools always sum to perfPool.
	menShare := float64(started[model.GenderMen]) / float64(totalStarted)
	menPool := int(math.Round(float64(perfPool) * menShare))
	womenPool := perfPool - menPool

	alloc := map[string]model.GenderSlots{
		model.GenderMen: {
			WinnerSlots: menWinners,
			PoolSlots:   menPool,
			TotalSlots:  menWinners + menPool,
		},
		model.GenderWomen: {
			WinnerSlots: womenWinners,
			PoolSlots:   womenPool,
			TotalSlots:  womenWinners + womenPool,
		},
	}
	return alloc, started, true
}
