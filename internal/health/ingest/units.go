package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AppleTimeLayout is the timestamp format of Apple Health exports, e.g. "2024-01-01 08:00:00 +0100".
const AppleTimeLayout = "2006-01-02 15:04:05 -0700"

const workoutActivityPrefix = "HKWorkoutActivityType"

// ParseAppleTime parses an export timestamp and keeps its wall clock, tagged as UTC.
// Records are bucketed by the local calendar day they happened on, so the
// offset is dropped rather than converted. Bare dates (YYYY-MM-DD...) are accepted too.
func ParseAppleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(AppleTimeLayout, s)
	if err != nil {
		if len(s) < 10 {
			return time.Time{}, fmt.Errorf("invalid timestamp [%s]", s)
		}
		d, dErr := time.Parse("2006-01-02", s[:10])
		if dErr != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp [%s]: %w", s, err)
		}
		return d, nil
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

// ActivityName strips the HealthKit prefix: HKWorkoutActivityTypeRunning -> Running.
func ActivityName(activityType string) string {
	return strings.TrimPrefix(strings.TrimSpace(activityType), workoutActivityPrefix)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number [%s]", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value [%s]", s)
	}
	return v, nil
}

func toMinutes(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "min":
		return v, nil
	case "s", "sec":
		return v / 60, nil
	case "h", "hr":
		return v * 60, nil
	default:
		return 0, fmt.Errorf("unknown duration unit [%s]", unit)
	}
}

func toKcal(v float64, unit string) (float64, error) {
	switch strings.TrimSpace(unit) {
	case "", "kcal", "Cal":
		return v, nil
	case "kJ":
		return v / 4.184, nil
	case "cal":
		return v / 1000, nil
	default:
		return 0, fmt.Errorf("unknown energy unit [%s]", unit)
	}
}

func toKm(v float64, unit string) (float64, error) {
	switch strings.TrimSpace(unit) {
	case "", "km":
		return v, nil
	case "m":
		return v / 1000, nil
	case "mi":
		return v * 1.609344, nil
	case "yd":
		return v * 0.0009144, nil
	default:
		return 0, fmt.Errorf("unknown distance unit [%s]", unit)
	}
}
