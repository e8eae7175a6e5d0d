package report

import (
	"regexp"
	"strconv"
	"strings"
)

// Status classifies a reading against its reference range.
type Status string

const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
)

var twoSidedRangeRe = regexp.MustCompile(`(-?\d+\.?\d*)\s*-\s*(-?\d+\.?\d*)`)

// ClassifyValue compares value against a reference-range string. Supported
// forms are "low - high" and "< high". Returns false when the range is in
// neither form or its bounds are not numeric; callers keep the parameter
// without a status in that case.
func ClassifyValue(value float64, normalRange string) (Status, bool) {
	if m := twoSidedRangeRe.FindStringSubmatch(normalRange); m != nil {
		low, err1 := strconv.ParseFloat(m[1], 64)
		high, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return "", false
		}
		switch {
		case value < low:
			return StatusLow, true
		case value > high:
			return StatusHigh, true
		default:
			return StatusNormal, true
		}
	}

	if strings.Contains(normalRange, "<") {
		bound, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(normalRange, "<", "")), 64)
		if err != nil {
			return "", false
		}
		if value > bound {
			return StatusHigh, true
		}
		return StatusNormal, true
	}

	return "", false
}
