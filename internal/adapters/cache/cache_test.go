package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longcourse/agegrade/internal/adapters/cache"
	"github.com/longcourse/agegrade/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// countingGrader returns canned entries and counts invocations.
type countingGrader struct {
	entries []model.ResultEntry
	err     error
	calls   int
}

func (g *countingGrader) grade(ctx context.Context) ([]model.ResultEntry, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.entries, nil
}

func cachedRace(start int64) *model.Race {
	return &model.Race{
		Key:               "half-2026",
		Distance:          model.DistanceHalf,
		EarliestStartTime: model.EpochSeconds(start),
	}
}

func TestResultCacheInProgress(t *testing.T) {
	Convey("Given an in-progress race", t, func() {
		// Start the race "now" so the freshness comparison against real file
		// modification times behaves, while staying a day short of final.
		raceStart := time.Now().Unix() - 3600
		entries := []model.ResultEntry{{Bib: "1", AgeGroup: "M18-24", GradedPlace: 1, AGPlace: 1}}

		Convey("When nothing is cached yet", func() {
			c := cache.New(t.TempDir())
			grader := &countingGrader{entries: entries}
			got, err := c.GetResults(context.Background(), cachedRace(raceStart), model.GenderMen, grader.grade)

			Convey("Then the grader runs once and the result is cached", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, entries)
				So(grader.calls, ShouldEqual, 1)
			})

			Convey("And a fresh entry short-circuits the next call", func() {
				again, err := c.GetResults(context.Background(), cachedRace(raceStart), model.GenderMen, grader.grade)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, entries)
				So(grader.calls, ShouldEqual, 1)
			})

			Convey("And a different gender has its own entry", func() {
				other := &countingGrader{entries: entries}
				_, err := c.GetResults(context.Background(), cachedRace(raceStart), model.GenderWomen, other.grade)
				So(err, ShouldBeNil)
				So(other.calls, ShouldEqual, 1)
			})
		})

		Convey("When the cached entry has gone stale", func() {
			dir := t.TempDir()
			writer := cache.New(dir)
			grader := &countingGrader{entries: entries}
			_, err := writer.GetResults(context.Background(), cachedRace(raceStart), model.GenderMen, grader.grade)
			So(err, ShouldBeNil)

			// A one-nanosecond window makes the just-written entry stale.
			stale := cache.New(dir, cache.WithFreshness(time.Nanosecond))
			_, err = stale.GetResults(context.Background(), cachedRace(raceStart), model.GenderMen, grader.grade)

			Convey("Then the grader runs again and overwrites the entry", func() {
				So(err, ShouldBeNil)
				So(grader.calls, ShouldEqual, 2)
			})
		})

		Convey("When the grader fails", func() {
			c := cache.New(t.TempDir())
			boom := errors.New("feed down")
			grader := &countingGrader{err: boom}
			_, err := c.GetResults(context.Background(), cachedRace(raceStart), model.GenderMen, grader.grade)

			Convey("Then the error surfaces and nothing is cached", func() {
				So(errors.Is(err, boom), ShouldBeTrue)

				retry := &countingGrader{entries: entries}
				got, err := c.GetResults(context.Background(), cachedRace(raceStart), model.GenderMen, retry.grade)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, entries)
				So(retry.calls, ShouldEqual, 1)
			})
		})
	})
}

func TestResultCacheFinal(t *testing.T) {
	Convey("Given a race past the final window", t, func() {
		raceStart := int64(1_700_000_000)
		afterFinal := func() time.Time { return time.Unix(raceStart+25*3600, 0) }
		entries := []model.ResultEntry{{Bib: "1", AgeGroup: "M18-24", GradedPlace: 1, AGPlace: 1}}

		c := cache.New(t.TempDir(), cache.WithClock(afterFinal))
		race := cachedRace(raceStart)

		So(c.FinalReached(race), ShouldBeTrue)

		Convey("When no final entry exists", func() {
			grader := &countingGrader{entries: entries}
			got, err := c.GetResults(context.Background(), race, model.GenderMen, grader.grade)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, entries)
			So(grader.calls, ShouldEqual, 1)

			Convey("Then the persisted final entry is served forever after", func() {
				different := &countingGrader{entries: []model.ResultEntry{{Bib: "other"}}}
				again, err := c.GetResults(context.Background(), race, model.GenderMen, different.grade)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, entries)
				So(different.calls, ShouldEqual, 0)
			})
		})

		Convey("When the grader fails before any final entry exists", func() {
			boom := errors.New("feed down")
			grader := &countingGrader{err: boom}
			_, err := c.GetResults(context.Background(), race, model.GenderMen, grader.grade)

			Convey("Then no final entry is written and a retry can succeed", func() {
				So(errors.Is(err, boom), ShouldBeTrue)

				retry := &countingGrader{entries: entries}
				got, err := c.GetResults(context.Background(), race, model.GenderMen, retry.grade)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, entries)
			})
		})

		Convey("When the start time is unknown", func() {
			Convey("Then the race never reaches the final tier", func() {
				So(c.FinalReached(cachedRace(0)), ShouldBeFalse)
			})
		})
	})
}
