package grading

import (
	"regexp"
	"strings"
)

// Age-group divisions look like "M18-24" or "F45-49". The hyphen is
// optional in feed data and whitespace shows up in older events; anything
// that does not match after cleanup (pro, relay, handcycle, ...) is not an
// age-group division and is dropped from grading.
var divisionPattern = regexp.MustCompile(`^([MF])(\d{2})-?(\d{2})$`)

var whitespaceReplacer = strings.NewReplacer(" ", "", "\t", "")

// NormalizeDivision canonicalizes a raw division string to "{M|F}NN-NN".
// The second return value is false when the input is not an age-group
// division.
func NormalizeDivision(raw string) (string, bool) {
	cleaned := strings.ToUpper(whitespaceReplacer.Replace(raw))
	m := divisionPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", false
	}
	return m[1] + m[2] + "-" + m[3], true
}
