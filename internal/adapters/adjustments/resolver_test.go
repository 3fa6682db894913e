package adjustments_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/longcourse/agegrade/internal/adapters/adjustments"
	"github.com/longcourse/agegrade/internal/adapters/storage"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/results"
	. "github.com/smartystreets/goconvey/convey"
)

type manifestDoc struct {
	Versions []adjustments.Version `json:"versions"`
}

func writeManifest(t *testing.T, dir string, versions ...adjustments.Version) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.json")
	if err := storage.WriteJSON(path, manifestDoc{Versions: versions}); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFactors(t *testing.T, dir, name string, factors map[string]float64) {
	t.Helper()
	if err := storage.WriteJSON(filepath.Join(dir, name), factors); err != nil {
		t.Fatal(err)
	}
}

func TestResolverResolve(t *testing.T) {
	Convey("Given a manifest with two full-distance versions", t, func() {
		dir := t.TempDir()
		manifestPath := writeManifest(t, dir,
			adjustments.Version{ID: "full-2024", Distance: "140.6", EffectiveFrom: "2024-01-01", File: "full_2024.json"},
			adjustments.Version{ID: "full-2025", Distance: "140.6", EffectiveFrom: "2025-06-01", File: "full_2025.json"},
		)
		writeFactors(t, dir, "full_2024.json", map[string]float64{"M18-24": 0.97})
		writeFactors(t, dir, "full_2025.json", map[string]float64{"M18-24": 0.95})

		newResolver := func() *adjustments.Resolver {
			return adjustments.NewResolver(manifestPath, storage.NewAssignmentStore(filepath.Join(dir, "assignments.json")))
		}

		Convey("When a race falls between the effective dates", func() {
			race := &model.Race{Key: "r1", Distance: "140.6", Date: "2025-03-15"}
			factors, version, err := newResolver().Resolve(context.Background(), race)

			Convey("Then the latest version not exceeding the race date wins", func() {
				So(err, ShouldBeNil)
				So(version, ShouldEqual, "full-2024")
				So(factors["M18-24"], ShouldEqual, 0.97)
			})
		})

		Convey("When a race is after both effective dates", func() {
			race := &model.Race{Key: "r2", Distance: "140.6", Date: "2025-12-01"}
			_, version, err := newResolver().Resolve(context.Background(), race)

			So(err, ShouldBeNil)
			So(version, ShouldEqual, "full-2025")
		})

		Convey("When a race predates every version", func() {
			race := &model.Race{Key: "r3", Distance: "140.6", Date: "2023-01-01"}
			_, _, err := newResolver().Resolve(context.Background(), race)

			So(errors.Is(err, results.ErrNoAdjustments), ShouldBeTrue)
		})

		Convey("When the distance has no versions at all", func() {
			race := &model.Race{Key: "r4", Distance: "70.3", Date: "2025-12-01"}
			_, _, err := newResolver().Resolve(context.Background(), race)

			So(errors.Is(err, results.ErrNoAdjustments), ShouldBeTrue)
		})

		Convey("When a race has been resolved once", func() {
			race := &model.Race{Key: "r5", Distance: "140.6", Date: "2025-03-15"}
			_, first, err := newResolver().Resolve(context.Background(), race)
			So(err, ShouldBeNil)
			So(first, ShouldEqual, "full-2024")

			Convey("And the manifest later gains an earlier-effective version", func() {
				writeManifest(t, dir,
					adjustments.Version{ID: "full-2024", Distance: "140.6", EffectiveFrom: "2024-01-01", File: "full_2024.json"},
					adjustments.Version{ID: "full-2025", Distance: "140.6", EffectiveFrom: "2025-06-01", File: "full_2025.json"},
					adjustments.Version{ID: "full-2025b", Distance: "140.6", EffectiveFrom: "2025-03-01", File: "full_2025.json"},
				)

				Convey("Then a fresh resolver still honors the recorded assignment", func() {
					_, version, err := newResolver().Resolve(context.Background(), race)
					So(err, ShouldBeNil)
					So(version, ShouldEqual, "full-2024")
				})
			})

			Convey("And the assigned version vanishes from the manifest", func() {
				writeManifest(t, dir,
					adjustments.Version{ID: "full-2025", Distance: "140.6", EffectiveFrom: "2024-06-01", File: "full_2025.json"},
				)

				Convey("Then resolution falls back to the date rule", func() {
					_, version, err := newResolver().Resolve(context.Background(), race)
					So(err, ShouldBeNil)
					So(version, ShouldEqual, "full-2025")
				})
			})
		})

		Convey("When the factor table file is missing", func() {
			brokenDir := t.TempDir()
			broken := writeManifest(t, brokenDir,
				adjustments.Version{ID: "v1", Distance: "140.6", EffectiveFrom: "2024-01-01", File: "missing.json"},
			)
			r := adjustments.NewResolver(broken, storage.NewAssignmentStore(filepath.Join(brokenDir, "assignments.json")))

			_, _, err := r.Resolve(context.Background(), &model.Race{Key: "r6", Distance: "140.6", Date: "2025-01-01"})
			So(err, ShouldNotBeNil)
		})
	})
}
