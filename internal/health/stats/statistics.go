package stats

import (
	"math"
	"sort"

	"github.com/2beens/healthdash/internal/health"
)

// Summary holds the overall workout statistics for a period.
type Summary struct {
	TotalWorkouts        int     `json:"totalWorkouts"`
	TotalDurationMinutes float64 `json:"totalDurationMinutes"`
	TotalEnergyKcal      float64 `json:"totalEnergyKcal"`
	TotalDistanceKm      float64 `json:"totalDistanceKm"`
	AvgWorkoutsPerWeek   float64 `json:"avgWorkoutsPerWeek"`
	AvgWorkoutsPerMonth  float64 `json:"avgWorkoutsPerMonth"`
	// Period is the span the averages were computed over, nil when there are no workouts.
	Period *health.DateRange `json:"period,omitempty"`
}

// ComputeStatistics summarizes the workout records inside rng (nil = all).
// The averages use the explicit range as span if given, otherwise the span
// between the earliest and the latest workout.
func ComputeStatistics(records []health.Record, rng *health.DateRange) (Summary, error) {
	if err := rng.Validate(); err != nil {
		return Summary{}, err
	}

	workouts := filterWorkouts(records, rng)
	if len(workouts) == 0 {
		return Summary{}, nil
	}

	var summary Summary
	for _, w := range workouts {
		summary.TotalWorkouts++
		summary.TotalDurationMinutes += w.Workout.DurationMinutes
		summary.TotalEnergyKcal += w.Workout.EnergyKcal
		summary.TotalDistanceKm += w.Workout.DistanceKm
	}

	period := rng
	if period == nil {
		period = spanOf(workouts)
	}
	summary.Period = period

	weeks := int(math.Ceil(float64(period.Days()) / 7))
	months := monthsTouched(period)
	summary.AvgWorkoutsPerWeek = round2(float64(summary.TotalWorkouts) / float64(weeks))
	summary.AvgWorkoutsPerMonth = round2(float64(summary.TotalWorkouts) / float64(months))

	return summary, nil
}

// ActivityStats are the totals of a single activity.
type ActivityStats struct {
	Activity             string  `json:"activity"`
	Count                int     `json:"count"`
	TotalDurationMinutes float64 `json:"totalDurationMinutes"`
	TotalEnergyKcal      float64 `json:"totalEnergyKcal"`
	TotalDistanceKm      float64 `json:"totalDistanceKm"`
}

// ActivityBreakdown returns per-activity totals, most frequent activity first,
// ties broken by activity name.
func ActivityBreakdown(records []health.Record, rng *health.DateRange) ([]ActivityStats, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	byActivity := make(map[string]*ActivityStats)
	for _, w := range filterWorkouts(records, rng) {
		as, ok := byActivity[w.Workout.Activity]
		if !ok {
			as = &ActivityStats{Activity: w.Workout.Activity}
			byActivity[w.Workout.Activity] = as
		}
		as.Count++
		as.TotalDurationMinutes += w.Workout.DurationMinutes
		as.TotalEnergyKcal += w.Workout.EnergyKcal
		as.TotalDistanceKm += w.Workout.DistanceKm
	}

	breakdown := make([]ActivityStats, 0, len(byActivity))
	for _, as := range byActivity {
		breakdown = append(breakdown, *as)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Activity < breakdown[j].Activity
	})

	return breakdown, nil
}

func filterWorkouts(records []health.Record, rng *health.DateRange) []health.Record {
	workouts := make([]health.Record, 0, len(records))
	for _, r := range records {
		if r.IsWorkout() && rng.Contains(r.Start) {
			workouts = append(workouts, r)
		}
	}
	return workouts
}

func spanOf(records []health.Record) *health.DateRange {
	earliest := records[0].Date()
	latest := earliest
	for _, r := range records[1:] {
		d := r.Date()
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	return &health.DateRange{Start: earliest, End: latest}
}

// monthsTouched counts the calendar months the range overlaps.
func monthsTouched(rng *health.DateRange) int {
	start, end := rng.Start, rng.End
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
