package query

import (
	"regexp"
	"strconv"
	"strings"
)

// durationField is the one field whose values get unit normalization.
const durationField = "duration"

// durationRegex matches "<number><unit?>" with optional whitespace before
// the unit. The unit defaults to seconds when omitted.
var durationRegex = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([a-zA-Z]*)$`)

// unitSeconds maps accepted duration units to their length in seconds.
var unitSeconds = map[string]float64{
	"":    1,
	"s":   1,
	"sec": 1,
	"ms":  0.001,
	"m":   60,
	"min": 60,
	"h":   3600,
	"hr":  3600,
}

// normalizeDuration converts a duration literal ("90s", "1.5m", "1500ms")
// to a decimal-seconds string ("90.0", "1.5"). Returns false when the value
// is not a recognizable duration, in which case the caller keeps the raw
// text.
func normalizeDuration(value string) (string, bool) {
	m := durationRegex.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", false
	}

	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", false
	}

	mult, ok := unitSeconds[strings.ToLower(m[2])]
	if !ok {
		return "", false
	}

	return formatSeconds(number * mult), true
}

// formatSeconds renders seconds with minimal digits but always a decimal
// point, so "90" becomes "90.0" and "1.5" stays "1.5".
func formatSeconds(secs float64) string {
	s := strconv.FormatFloat(secs, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
