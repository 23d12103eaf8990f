package models

import (
	"regexp"
	"strconv"
	"time"
)

var timeframePattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTimeframe converts a compact lookback token ("30s", "10m", "1h",
// "7d") into a duration. Anything else fails with a ParseError.
func ParseTimeframe(tf string) (time.Duration, error) {
	m := timeframePattern.FindStringSubmatch(tf)
	if m == nil {
		return 0, &ParseError{Input: tf, Reason: "expected <integer><s|m|h|d>"}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &ParseError{Input: tf, Reason: "magnitude out of range"}
	}
	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	default:
		return time.Duration(n) * 24 * time.Hour, nil
	}
}
