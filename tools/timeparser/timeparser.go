package timeparser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// layouts accepted for non-numeric transaction timestamps
var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
}

// ParseTransactionTime interprets a raw time field as a point in time.
// Numeric values (integer or fractional) are treated as seconds since
// the Unix epoch; anything else is tried against the known layouts.
func ParseTransactionTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if secs, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return time.Time{}, fmt.Errorf("time value '%s' is not a finite instant", raw)
		}
		return FromEpochSeconds(secs), nil
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, trimmed)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse time '%s': %w", raw, lastErr)
}

// FromEpochSeconds converts seconds since the Unix epoch, with
// fractional-second precision, into a UTC time.Time.
func FromEpochSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}
