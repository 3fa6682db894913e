package timecode_test

import (
	"testing"

	"github.com/longcourse/agegrade/internal/domain/timecode"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseClock(t *testing.T) {
	Convey("Given clock-time strings from the live feed", t, func() {
		Convey("When parsing a plain clock time", func() {
			seconds, ok := timecode.ParseClock("9:41:23")

			Convey("Then it should convert to total seconds", func() {
				So(ok, ShouldBeTrue)
				So(seconds, ShouldEqual, 9*3600+41*60+23)
			})
		})

		Convey("When the time carries fractional seconds", func() {
			seconds, ok := timecode.ParseClock("9:41:23.7")

			Convey("Then the fraction should be discarded, not rounded", func() {
				So(ok, ShouldBeTrue)
				So(seconds, ShouldEqual, 9*3600+41*60+23)
			})
		})

		Convey("When hours have more than one digit", func() {
			seconds, ok := timecode.ParseClock("12:00:00")

			So(ok, ShouldBeTrue)
			So(seconds, ShouldEqual, 12*3600)
		})

		Convey("When the string is surrounded by whitespace", func() {
			seconds, ok := timecode.ParseClock("  1:02:03 ")

			So(ok, ShouldBeTrue)
			So(seconds, ShouldEqual, 3723)
		})

		Convey("When the string is not a clock time", func() {
			for _, s := range []string{"DNF", "", "41:23", "1:2", "abc:de:fg", "-1:00:00"} {
				_, ok := timecode.ParseClock(s)
				So(ok, ShouldBeFalse)
			}
		})
	})
}

func TestTruncate(t *testing.T) {
	Convey("Given strings with and without fractional seconds", t, func() {
		So(timecode.Truncate("9:41:23.754"), ShouldEqual, "9:41:23")
		So(timecode.Truncate("9:41:23"), ShouldEqual, "9:41:23")
		So(timecode.Truncate(""), ShouldEqual, "")
	})
}

func TestFormatSeconds(t *testing.T) {
	Convey("Given second counts to render", t, func() {
		Convey("When the count is positive", func() {
			So(timecode.FormatSeconds(34883), ShouldEqual, "09:41:23")
			So(timecode.FormatSeconds(0), ShouldEqual, "00:00:00")
			So(timecode.FormatSeconds(3661), ShouldEqual, "01:01:01")
		})

		Convey("When the count carries a fraction", func() {
			Convey("Then it should truncate toward zero", func() {
				So(timecode.FormatSeconds(34883.9), ShouldEqual, "09:41:23")
			})
		})

		Convey("When the count is negative", func() {
			Convey("Then it should render as empty", func() {
				So(timecode.FormatSeconds(-1), ShouldEqual, "")
			})
		})
	})
}
