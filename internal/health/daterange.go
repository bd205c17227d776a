package health

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in labels and query params.
const DateLayout = "2006-01-02"

// ErrInvalidParameter is returned for structurally invalid query input:
// bad granularity, start date after end date, malformed activity filter.
var ErrInvalidParameter = errors.New("invalid parameter")

// DateOf returns the wall-clock calendar date of t (in t's own location)
// as midnight UTC, so dates compare with Equal/Before/After.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive calendar-date range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (*DateRange, error) {
	rng := &DateRange{
		Start: DateOf(start),
		End:   DateOf(end),
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return rng, nil
}

// ParseDateRange parses two YYYY-MM-DD strings. Both empty means no range.
func ParseDateRange(from, to string) (*DateRange, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: both date_from and date_to are required for a date range", ErrInvalidParameter)
	}

	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date_from [%s] (expected YYYY-MM-DD)", ErrInvalidParameter, from)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date_to [%s] (expected YYYY-MM-DD)", ErrInvalidParameter, to)
	}

	return NewDateRange(start, end)
}

// Validate fails when start is after end. A nil range is valid (unrestricted).
func (r *DateRange) Validate() error {
	if r == nil {
		return nil
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: date range bounds must be set", ErrInvalidParameter)
	}
	if DateOf(r.Start).After(DateOf(r.End)) {
		return fmt.Errorf(
			"%w: date range start %s is after end %s",
			ErrInvalidParameter, r.Start.Format(DateLayout), r.End.Format(DateLayout),
		)
	}
	return nil
}

// Contains reports whether the calendar date of t lies in the range.
// A nil range contains everything.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	day := DateOf(t)
	return !day.Before(DateOf(r.Start)) && !day.After(DateOf(r.End))
}

// Days returns the number of calendar days in the range, both ends included.
func (r *DateRange) Days() int {
	if r == nil {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

func (r *DateRange) String() string {
	if r == nil {
		return "all"
	}
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	// dates are UTC midnights, so the hour division is exact
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Filter returns the records whose date lies in the range.
func Filter(records []Record, rng *DateRange) []Record {
	if rng == nil {
		return records
	}
	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		if rng.Contains(r.Start) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
