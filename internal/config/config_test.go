package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/longcourse/agegrade/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given configuration sources", t, func() {
		// Keep the process env clean between cases.
		for _, key := range []string{"AGEGRADE_CONFIG", "AGEGRADE_ADDR", "AGEGRADE_DATA_DIR", "AGEGRADE_FRESHNESS_SECONDS"} {
			So(os.Unsetenv(key), ShouldBeNil)
		}

		Convey("When nothing is set", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9090")
				So(cfg.DataDir, ShouldEqual, "data")
				So(cfg.RacesFile, ShouldEqual, "races.json")
				So(cfg.FreshnessSeconds, ShouldEqual, 60)
				So(cfg.FinalDelayHours, ShouldEqual, 24)
				So(cfg.StabilizationMinutes, ShouldEqual, 60)
			})
		})

		Convey("When a YAML file is provided", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			So(os.WriteFile(path, []byte("addr: \":8088\"\nfreshness_seconds: 30\n"), 0o644), ShouldBeNil)
			t.Setenv("AGEGRADE_CONFIG", path)

			cfg, err := config.Load(context.Background())

			Convey("Then file values override defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":8088")
				So(cfg.FreshnessSeconds, ShouldEqual, 30)
				So(cfg.DataDir, ShouldEqual, "data")
			})

			Convey("And environment variables override the file", func() {
				t.Setenv("AGEGRADE_ADDR", ":7070")
				cfg, err := config.Load(context.Background())
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
			})
		})

		Convey("When the config file does not exist", func() {
			t.Setenv("AGEGRADE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
			_, err := config.Load(context.Background())
			So(err, ShouldNotBeNil)
		})

		Convey("When a value fails validation", func() {
			t.Setenv("AGEGRADE_FRESHNESS_SECONDS", "-5")
			_, err := config.Load(context.Background())
			So(err, ShouldNotBeNil)
		})

		Convey("When derived paths are requested", func() {
			cfg := config.New()
			cfg.DataDir = "/var/lib/agegrade"
			So(cfg.AssignmentsFile(), ShouldEqual, "/var/lib/agegrade/ag_assignments.json")
			So(cfg.DynamicSlotsFile(), ShouldEqual, "/var/lib/agegrade/dynamic_slots.json")
		})
	})
}
