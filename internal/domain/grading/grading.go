// Package grading turns raw feed records into a ranked, age-graded result set.
package grading

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/results"
	"github.com/longcourse/agegrade/internal/domain/timecode"
	"github.com/longcourse/agegrade/pkg/logger"
	"github.com/longcourse/agegrade/pkg/metrics"
)

// Fetcher retrieves raw athlete records from an upstream feed endpoint.
type Fetcher interface {
	Results(ctx context.Context, endpoint string) ([]model.AthleteRecord, error)
}

// Engine fetches, filters, grades and ranks live results.
type Engine struct {
	fetcher Fetcher
	log     logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates a grading engine backed by the given fetcher.
func NewEngine(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{fetcher: fetcher}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Named("grading")
	}
	return e
}

// Grade produces the fully ranked result set for a race.
//
// When the slot policy is per gender, only that gender's feed is fetched;
// otherwise both feeds are fetched and concatenated, tolerating one of the
// two failing. A feed reporting "no finishers yet" surfaces as
// results.ErrNoFinishers only if no usable records came from anywhere.
func (e *Engine) Grade(ctx context.Context, race *model.Race, gender string, perGender bool, factors map[string]float64) ([]model.ResultEntry, error) {
	start := time.Now()

	records, err := e.fetch(ctx, race, gender, perGender)
	if err != nil {
		return nil, err
	}

	entries, skipped := Process(records, factors)
	metrics.RecordRecordsGraded(len(entries))
	metrics.RecordRecordsSkipped(skipped)
	if skipped > 0 {
		e.log.Debug(ctx, "dropped non-age-group records",
			logger.String("race", race.Identity()),
			logger.Int("skipped", skipped),
		)
	}
	if len(entries) == 0 {
		return nil, results.ErrNoLiveData
	}

	Rank(entries)
	metrics.ObserveGradingLatency(float64(time.Since(start).Milliseconds()))
	return entries, nil
}

// fetch collects raw records from one or both gender feeds.
func (e *Engine) fetch(ctx context.Context, race *model.Race, gender string, perGender bool) ([]model.AthleteRecord, error) {
	if perGender {
		if gender == "" {
			gender = model.GenderMen
		}
		endpoint := race.ResultsURLs.Live[gender]
		if endpoint == "" {
			return nil, results.ErrNoEndpoint
		}
		return e.fetcher.Results(ctx, endpoint)
	}

	var records []model.AthleteRecord
	var failures []error
	for _, g := range []string{model.GenderMen, model.GenderWomen} {
		endpoint := race.ResultsURLs.Live[g]
		if endpoint == "" {
			failures = append(failures, results.ErrNoEndpoint)
			continue
		}
		list, err := e.fetcher.Results(ctx, endpoint)
		if err != nil {
			if !errors.Is(err, results.ErrNoFinishers) {
				e.log.Warn(ctx, "gender feed failed, continuing with the other",
					logger.String("race", race.Identity()),
					logger.String("gender", g),
					logger.Error(err),
				)
			}
			failures = append(failures, err)
			continue
		}
		records = append(records, list...)
	}

	if len(records) == 0 && len(failures) == 2 {
		// Prefer surfacing a hard failure over the transient no-finishers
		// condition so operators see transport problems.
		for _, err := range failures {
			if !errors.Is(err, results.ErrNoFinishers) {
				return nil, err
			}
		}
		return nil, results.ErrNoFinishers
	}
	return records, nil
}

// Process filters raw records to valid age-group divisions and computes the
// age-graded time for each survivor. It returns the accepted entries plus a
// count of records dropped by the time or division filter; skips are not
// errors.
func Process(records []model.AthleteRecord, factors map[string]float64) ([]model.ResultEntry, int) {
	entries := make([]model.ResultEntry, 0, len(records))
	skipped := 0
	for _, rec := range records {
		finishStr := timecode.Truncate(rec.Time)
		finishSeconds, ok := timecode.ParseClock(finishStr)
		if !ok {
			skipped++
			continue
		}
		ageGroup, ok := NormalizeDivision(rec.Division)
		if !ok {
			skipped++
			continue
		}

		factor, ok := factors[ageGroup]
		if !ok {
			// An age group absent from the table grades at face value.
			factor = 1.0
		}
		graded := float64(finishSeconds) * factor

		entries = append(entries, model.ResultEntry{
			Bib:           rec.Bib,
			Name:          rec.Name,
			AgeGroup:      ageGroup,
			FinishTime:    finishStr,
			FinishSeconds: finishSeconds,
			GenderPlace:   rec.Place,
			GradedSeconds: graded,
			GradedTime:    timecode.FormatSeconds(graded),
		})
	}
	return entries, skipped
}

// Rank sorts entries by graded time ascending and assigns places in place.
//
// GradedPlace uses 1-based position indices: entries with exactly equal
// graded times share a place, and the first distinct time after a tie block
// gets its own position index, so [100,100,100,105] ranks [1,1,1,4]. This
// is normative behavior, not rank-skipping.
//
// AGPlace is dense per age group in the same graded order, starting at 1.
func Rank(entries []model.ResultEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].GradedSeconds < entries[j].GradedSeconds
	})

	agCounters := make(map[string]int)
	for i := range entries {
		if i == 0 {
			entries[i].GradedPlace = 1
		} else if entries[i].GradedSeconds == entries[i-1].GradedSeconds {
			entries[i].GradedPlace = entries[i-1].GradedPlace
		} else {
			entries[i].GradedPlace = i + 1
		}

		agCounters[entries[i].AgeGroup]++
		entries[i].AGPlace = agCounters[entries[i].AgeGroup]
	}
}
