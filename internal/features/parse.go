package features

import (
	"regexp"
	"strconv"
	"strings"
)

// evalRegex matches lichess eval tags: [%eval 0.17], [%eval -1.50], [%eval #-3].
// Scores always carry a decimal part.
var evalRegex = regexp.MustCompile(`\[%eval\s+([-+]?\d+\.\d+|#-?\d+)\]`)

// ParseEval extracts the evaluation embedded in a move comment.
// Mate markers map to ±MateScore by the sign of the mate count; #0 is
// non-positive and maps to -MateScore.
func ParseEval(comment string) (float64, bool) {
	if comment == "" {
		return 0, false
	}
	m := evalRegex.FindStringSubmatch(comment)
	if m == nil {
		return 0, false
	}
	s := m[1]
	if strings.HasPrefix(s, "#") {
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return 0, false
		}
		return MateValue(n), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MateValue maps a signed mate distance to the saturating sentinel.
func MateValue(n int) float64 {
	if n > 0 {
		return MateScore
	}
	return -MateScore
}

// TimeControl is a parsed "base+increment" header.
type TimeControl struct {
	BaseSeconds      int
	IncrementSeconds int
}

// ParseTimeControl parses "180+2" or "600"; only the first two "+" fields
// are read. Anything else ("-", "?", "") is reported as unparsable.
func ParseTimeControl(s string) (TimeControl, bool) {
	if s == "" {
		return TimeControl{}, false
	}
	parts := strings.Split(s, "+")
	base, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeControl{}, false
	}
	tc := TimeControl{BaseSeconds: base}
	if len(parts) > 1 {
		inc, err := strconv.Atoi(parts[1])
		if err != nil {
			return TimeControl{}, false
		}
		tc.IncrementSeconds = inc
	}
	return tc, true
}

// Class buckets the base time: bullet <180s, blitz <600s, rapid <1800s.
func (tc TimeControl) Class() string {
	switch {
	case tc.BaseSeconds < 180:
		return TimeClassBullet
	case tc.BaseSeconds < 600:
		return TimeClassBlitz
	case tc.BaseSeconds < 1800:
		return TimeClassRapid
	default:
		return TimeClassClassical
	}
}

// ParseRating reads an Elo header; unknown ratings are 0.
func ParseRating(s string) int {
	if s == "" || s == "?" || s == "-" {
		return 0
	}
	r, _ := strconv.Atoi(s)
	return r
}
