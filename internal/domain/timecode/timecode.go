// Package timecode converts between clock-time strings and second counts.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockPattern = regexp.MustCompile(`^(\d+):(\d+):(\d+)$`)

// ParseClock converts a clock string like "9:41:23" to total seconds.
// Anything after a decimal point is discarded before parsing; sub-second
// precision is deliberately not carried into grading.
// The second return value is false when the string is not a clock time.
func ParseClock(s string) (int, bool) {
	s, _, _ = strings.Cut(s, ".")
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return hours*3600 + minutes*60 + seconds, true
}

// Truncate strips fractional seconds from a clock string without validating it.
func Truncate(s string) string {
	s, _, _ = strings.Cut(s, ".")
	return s
}

// FormatSeconds renders a second count as "HH:MM:SS". Negative input
// renders as the empty string, matching how missing times are displayed.
func FormatSeconds(total float64) string {
	if total < 0 {
		return ""
	}
	whole := int(total)
	hours := whole / 3600
	minutes := (whole % 3600) / 60
	seconds := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
