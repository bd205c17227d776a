package stats

import (
	"sort"
	"time"

	"github.com/2beens/healthdash/internal/health"
)

// Streaks returns the current and the longest run of consecutive calendar days
// among the given dates. The current streak ends at the latest date, so the
// result does not depend on when it is computed.
func Streaks(dates []time.Time) (current, longest int) {
	if len(dates) == 0 {
		return 0, 0
	}

	seen := make(map[time.Time]bool, len(dates))
	distinct := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := health.DateOf(d)
		if seen[day] {
			continue
		}
		seen[day] = true
		distinct = append(distinct, day)
	}
	sort.Slice(distinct, func(i, j int) bool {
		return distinct[i].Before(distinct[j])
	})

	run := 1
	longest = 1
	for i := 1; i < len(distinct); i++ {
		if health.DaysBetween(distinct[i-1], distinct[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	// the last run is the one ending at the latest date
	current = run

	return current, longest
}
