package stats

import (
	"fmt"
	"time"

	"github.com/2beens/healthdash/internal/health"
)

type LongestWorkout struct {
	DurationMinutes float64 `json:"durationMinutes"`
	Activity        string  `json:"activity"`
	// Date is nil when there are no workouts.
	Date *time.Time `json:"date"`
}

type MonthCount struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Count int        `json:"count"`
}

// Found is false for the zero value, returned when there are no workouts.
func (m MonthCount) Found() bool {
	return m.Year != 0
}

func (m MonthCount) String() string {
	if !m.Found() {
		return "-"
	}
	return fmt.Sprintf("%s %04d", m.Month.String()[:3], m.Year)
}

type PersonalRecords struct {
	LongestWorkout  LongestWorkout `json:"longestWorkout"`
	MostActiveMonth MonthCount     `json:"mostActiveMonth"`
	CurrentStreak   int            `json:"currentStreak"`
	LongestStreak   int            `json:"longestStreak"`
}

// ComputePersonalRecords finds the personal bests among the workouts inside rng.
func ComputePersonalRecords(records []health.Record, rng *health.DateRange) (PersonalRecords, error) {
	if err := rng.Validate(); err != nil {
		return PersonalRecords{}, err
	}

	workouts := filterWorkouts(records, rng)
	if len(workouts) == 0 {
		return PersonalRecords{}, nil
	}

	var pr PersonalRecords

	var longest *health.Record
	for i := range workouts {
		w := &workouts[i]
		if longest == nil ||
			w.Workout.DurationMinutes > longest.Workout.DurationMinutes ||
			(w.Workout.DurationMinutes == longest.Workout.DurationMinutes && w.Start.Before(longest.Start)) {
			longest = w
		}
	}
	longestDate := longest.Date()
	pr.LongestWorkout = LongestWorkout{
		DurationMinutes: longest.Workout.DurationMinutes,
		Activity:        longest.Workout.Activity,
		Date:            &longestDate,
	}

	monthCounts := make(map[time.Time]int)
	dates := make([]time.Time, 0, len(workouts))
	for _, w := range workouts {
		d := w.Date()
		dates = append(dates, d)
		monthCounts[time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)]++
	}
	for month, count := range monthCounts {
		best := pr.MostActiveMonth
		bestMonth := time.Date(best.Year, best.Month, 1, 0, 0, 0, 0, time.UTC)
		if !best.Found() || count > best.Count || (count == best.Count && month.Before(bestMonth)) {
			pr.MostActiveMonth = MonthCount{Year: month.Year(), Month: month.Month(), Count: count}
		}
	}

	pr.CurrentStreak, pr.LongestStreak = Streaks(dates)

	return pr, nil
}
