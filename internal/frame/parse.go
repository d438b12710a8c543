package frame

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order when parsing source timestamps. Local
// wall-clock values carry no zone; everything parses into time.Local-free
// naive timestamps (time.Time with UTC location, compared only to each other).
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// Float parses a cell as a float64. Empty or unparsable cells yield NaN,
// never an error: missing-value propagation is the pervasive policy.
func Float(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FloatOrZero parses a cell as a float64, treating missing or unparsable
// values as 0. Used where a zero-fill convention is specified.
func FloatOrZero(s string) float64 {
	v := Float(s)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Time parses a cell as a timestamp. Empty or unparsable cells yield the
// zero time.
func Time(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// IsNumericColumn reports whether the named column holds numeric data: at
// least one non-empty cell, and every non-empty cell parses as a float.
func (f *Frame) IsNumericColumn(col string) bool {
	i, ok := f.index[col]
	if !ok {
		return false
	}
	seen := false
	for _, row := range f.rows {
		s := strings.TrimSpace(row[i])
		if s == "" {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
