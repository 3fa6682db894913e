// Package app provides the core results service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/longcourse/agegrade/internal/adapters/adjustments"
	"github.com/longcourse/agegrade/internal/adapters/cache"
	"github.com/longcourse/agegrade/internal/adapters/feed"
	"github.com/longcourse/agegrade/internal/adapters/races"
	"github.com/longcourse/agegrade/internal/adapters/storage"
	"github.com/longcourse/agegrade/internal/domain/grading"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/policy"
	"github.com/longcourse/agegrade/internal/domain/results"
	"github.com/longcourse/agegrade/internal/domain/slots"
	"github.com/longcourse/agegrade/pkg/logger"
)

// ResultsResponse is the annotated result set handed to the API layer.
type ResultsResponse struct {
	RaceKey            string              `json:"race_key"`
	RaceName           string              `json:"race_name"`
	Distance           string              `json:"distance"`
	Gender             string              `json:"gender,omitempty"`
	Policy             string              `json:"policy"`
	AdjustmentsVersion string              `json:"adjustments_version"`
	Final              bool                `json:"final"`
	DynamicWaiting     bool                `json:"dynamic_waiting,omitempty"`
	Results            []model.ResultEntry `json:"results"`
}

// Service wires the results pipeline: catalog -> adjustments -> cache ->
// grading -> slot annotation.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog    *races.Catalog
	resolver   *adjustments.Resolver
	cache      *cache.ResultCache
	feedClient *feed.Client
	engine     *grading.Engine
	dynamic    *slots.Calculator

	// Configuration
	dataDir         string
	racesFile       string
	manifestFile    string
	assignmentsFile string
	dynamicFile     string
	feedAppID       string
	feedToken       string
	feedTimeout     time.Duration
	freshness       time.Duration
	finalDelay      time.Duration
	stabilization   time.Duration

	// State
	started  bool
	cancelFn context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithDataDir roots all persisted state under dir.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithRacesFile sets the race catalog document path.
func WithRacesFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.racesFile = path
		}
	}
}

// WithManifestFile sets the adjustments manifest path.
func WithManifestFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.manifestFile = path
		}
	}
}

// WithAssignmentsFile sets the adjustments-assignment document path.
func WithAssignmentsFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.assignmentsFile = path
		}
	}
}

// WithDynamicSlotsFile sets the dynamic-slots persistence document path.
func WithDynamicSlotsFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dynamicFile = path
		}
	}
}

// WithFeedCredentials sets the upstream app id and token.
func WithFeedCredentials(appID, token string) Option {
	return func(s *Service) {
		s.feedAppID = appID
		s.feedToken = token
	}
}

// WithFeedTimeout bounds each upstream round trip.
func WithFeedTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.feedTimeout = d
		}
	}
}

// WithFreshness sets the in-progress cache trust window.
func WithFreshness(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.freshness = d
		}
	}
}

// WithFinalDelay sets the final-tier promotion delay.
func WithFinalDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.finalDelay = d
		}
	}
}

// WithStabilizationWindow sets the dynamic-slot stabilization window.
func WithStabilizationWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stabilization = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:       "data",
		racesFile:     "races.json",
		manifestFile:  "adjustments/manifest.json",
		feedTimeout:   feed.DefaultTimeout,
		freshness:     cache.DefaultFreshness,
		finalDelay:    cache.DefaultFinalDelay,
		stabilization: time.Hour,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.assignmentsFile == "" {
		s.assignmentsFile = s.dataDir + "/ag_assignments.json"
	}
	if s.dynamicFile == "" {
		s.dynamicFile = s.dataDir + "/dynamic_slots.json"
	}

	return s
}

// Start initializes the pipeline components, loads the race catalog and
// begins watching it for changes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting results service...")

	s.catalog = races.New(s.racesFile, races.WithLogger(s.logger.Named("races")))
	if err := s.catalog.Load(ctx); err != nil {
		return err
	}

	s.resolver = adjustments.NewResolver(
		s.manifestFile,
		storage.NewAssignmentStore(s.assignmentsFile),
		adjustments.WithLogger(s.logger.Named("adjustments")),
	)

	s.feedClient = feed.New(
		feed.WithCredentials(s.feedAppID, s.feedToken),
		feed.WithTimeout(s.feedTimeout),
		feed.WithLogger(s.logger.Named("feed")),
	)

	s.engine = grading.NewEngine(s.feedClient, grading.WithLogger(s.logger.Named("grading")))

	s.cache = cache.New(
		s.dataDir,
		cache.WithFreshness(s.freshness),
		cache.WithFinalDelay(s.finalDelay),
		cache.WithLogger(s.logger.Named("cache")),
	)

	s.dynamic = slots.NewCalculator(
		s.feedClient,
		storage.NewDynamicStore(s.dynamicFile),
		slots.WithStabilizationWindow(s.stabilization),
		slots.WithCalculatorLogger(s.logger.Named("slots")),
	)

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancelFn = cancel
	go func() {
		if err := s.catalog.Watch(watchCtx); err != nil {
			s.logger.Warn(watchCtx, "race catalog watch stopped", logger.Error(err))
		}
	}()

	s.started = true
	s.logger.Info(ctx, "results service started",
		logger.String("dataDir", s.dataDir),
		logger.Duration("freshness", s.freshness),
		logger.Duration("finalDelay", s.finalDelay),
	)

	return nil
}

// Stop shuts down background work.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.cancelFn != nil {
		s.cancelFn()
	}
	s.started = false
	s.logger.Info(context.Background(), "results service stopped")
}

// Races returns the catalog in date-descending order.
func (s *Service) Races(ctx context.Context) []model.Race {
	return s.catalog.List()
}

// Results runs the full pipeline for one race and optional gender.
//
// Distinguished conditions surface as results.Err* sentinels; anything the
// caller can render as "come back later" (no finishers, no live data) is
// among them rather than a generic failure.
func (s *Service) Results(ctx context.Context, raceKey, gender string) (*ResultsResponse, error) {
	race, ok := s.catalog.ByKey(raceKey)
	if !ok {
		return nil, results.ErrUnknownRace
	}

	pol := policy.Resolve(&race)
	gender, err := normalizeGender(pol, gender)
	if err != nil {
		return nil, err
	}

	factors, versionID, err := s.resolver.Resolve(ctx, &race)
	if err != nil {
		return nil, err
	}
	race.AdjustmentsVersion = versionID

	grader := func(gctx context.Context) ([]model.ResultEntry, error) {
		return s.engine.Grade(gctx, &race, gender, policy.NeedsGender(pol), factors)
	}

	entries, err := s.cache.GetResults(ctx, &race, cacheGender(pol, gender), grader)
	if err != nil {
		return nil, err
	}

	// Slot flags are applied when the response is assembled, never persisted.
	// Cache entries hold the graded ranking only: a final entry written while
	// the dynamic allocation was not ready would otherwise freeze unflagged,
	// and a cache hit would report a stale waiting state.
	waiting := s.annotate(ctx, &race, gender, pol, entries)

	return &ResultsResponse{
		RaceKey:            race.Identity(),
		RaceName:           race.Name,
		Distance:           race.Distance,
		Gender:             gender,
		Policy:             string(pol),
		AdjustmentsVersion: versionID,
		Final:              s.cache.FinalReached(&race),
		DynamicWaiting:     waiting,
		Results:            entries,
	}, nil
}

// annotate applies slot flags for the resolved policy. It runs on every
// response, cache hits included. The returned flag is true when the dynamic
// allocation is not ready yet, in which case the entries are left unflagged
// and the caller shows a waiting state.
func (s *Service) annotate(ctx context.Context, race *model.Race, gender string, pol policy.SlotPolicy, entries []model.ResultEntry) bool {
	switch pol {
	case policy.CombinedFixed:
		slots.Allocate(entries, race.Slots.Total())
	case policy.SplitFixed:
		slots.Allocate(entries, race.Slots.GenderShare(gender))
	case policy.SplitDynamic:
		alloc, ready := s.dynamic.Allocation(ctx, race)
		if !ready {
			return true
		}
		slots.Allocate(entries, alloc[gender].TotalSlots)
	}
	return false
}

// SlotSummary describes the slot regime and counts for a race.
func (s *Service) SlotSummary(ctx context.Context, raceKey string) (results.SlotSummary, error) {
	race, ok := s.catalog.ByKey(raceKey)
	if !ok {
		return results.SlotSummary{}, results.ErrUnknownRace
	}

	pol := policy.Resolve(&race)
	summary := results.SlotSummary{Policy: string(pol)}

	menWinners := len(race.AgeGroupCategories[model.GenderMen])
	womenWinners := len(race.AgeGroupCategories[model.GenderWomen])

	switch pol {
	case policy.CombinedFixed:
		total := race.Slots.Total()
		winners := menWinners + womenWinners
		summary.TotalSlots = total
		summary.WinnerSlots = winners
		summary.PoolSlots = maxInt(0, total-winners)

	case policy.SplitFixed:
		summary.Genders = make(map[string]results.GenderSummary, 2)
		for g, winners := range map[string]int{model.GenderMen: menWinners, model.GenderWomen: womenWinners} {
			total := race.Slots.GenderShare(g)
			summary.Genders[g] = results.GenderSummary{
				TotalSlots:  total,
				WinnerSlots: winners,
				PoolSlots:   maxInt(0, total-winners),
			}
			summary.TotalSlots += total
			summary.WinnerSlots += winners
		}
		summary.PoolSlots = maxInt(0, summary.TotalSlots-summary.WinnerSlots)

	case policy.SplitDynamic:
		alloc, ready := s.dynamic.Allocation(ctx, &race)
		if !ready {
			summary.Waiting = true
			summary.TotalSlots = race.Slots.Total()
			break
		}
		summary.Genders = make(map[string]results.GenderSummary, 2)
		for g, gs := range alloc {
			summary.Genders[g] = results.GenderSummary{
				TotalSlots:  gs.TotalSlots,
				WinnerSlots: gs.WinnerSlots,
				PoolSlots:   gs.PoolSlots,
			}
			summary.TotalSlots += gs.TotalSlots
			summary.WinnerSlots += gs.WinnerSlots
			summary.PoolSlots += gs.PoolSlots
		}
	}

	return summary, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":    s.started,
		"races":      len(s.catalog.List()),
		"dataDir":    s.dataDir,
		"freshness":  s.freshness.String(),
		"finalDelay": s.finalDelay.String(),
	}
}

// normalizeGender validates the gender parameter against the policy.
func normalizeGender(pol policy.SlotPolicy, gender string) (string, error) {
	switch gender {
	case "", model.GenderMen, model.GenderWomen:
	default:
		return "", results.ErrGenderRequired
	}
	if policy.NeedsGender(pol) && gender == "" {
		return "", results.ErrGenderRequired
	}
	if !policy.NeedsGender(pol) {
		// Combined regimes grade both feeds together; a stray gender
		// parameter is ignored rather than rejected.
		return "", nil
	}
	return gender, nil
}

// cacheGender is the gender segment of the cache key: present only when the
// policy fetches per gender.
func cacheGender(pol policy.SlotPolicy, gender string) string {
	if policy.NeedsGender(pol) {
		return gender
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
