package health

import (
	"errors"
	"fmt"
	"time"
)

// Kind tells which payload a Record carries.
type Kind string

const (
	KindWorkout   Kind = "workout"
	KindSleep     Kind = "sleep"
	KindSteps     Kind = "steps"
	KindHeartRate Kind = "heart_rate"
)

func (k Kind) Valid() bool {
	switch k {
	case KindWorkout, KindSleep, KindSteps, KindHeartRate:
		return true
	default:
		return false
	}
}

// Record is a single health record. Exactly one of the payload pointers is set,
// matching Kind. Records are treated as immutable values once loaded.
type Record struct {
	Kind  Kind      `json:"kind"`
	Start time.Time `json:"start"`
	// End is optional, zero when absent
	End time.Time `json:"end,omitempty"`

	Workout   *Workout   `json:"workout,omitempty"`
	Sleep     *Sleep     `json:"sleep,omitempty"`
	Steps     *Steps     `json:"steps,omitempty"`
	HeartRate *HeartRate `json:"heartRate,omitempty"`
}

type Workout struct {
	Activity        string  `json:"activity"`
	DurationMinutes float64 `json:"durationMinutes"`
	EnergyKcal      float64 `json:"energyKcal"`
	DistanceKm      float64 `json:"distanceKm"`
	// Category is optional; when empty the Classifier decides.
	Category string `json:"category,omitempty"`
}

type Sleep struct {
	Hours float64 `json:"hours"`
}

type Steps struct {
	Count int64 `json:"count"`
}

type HeartRate struct {
	AvgBPM float64 `json:"avgBpm"`
	MaxBPM float64 `json:"maxBpm"`
}

func NewWorkout(start time.Time, w Workout) Record {
	return Record{Kind: KindWorkout, Start: start, Workout: &w}
}

func NewSleep(start time.Time, hours float64) Record {
	return Record{Kind: KindSleep, Start: start, Sleep: &Sleep{Hours: hours}}
}

func NewSteps(start time.Time, count int64) Record {
	return Record{Kind: KindSteps, Start: start, Steps: &Steps{Count: count}}
}

func NewHeartRate(start time.Time, avgBPM, maxBPM float64) Record {
	return Record{Kind: KindHeartRate, Start: start, HeartRate: &HeartRate{AvgBPM: avgBPM, MaxBPM: maxBPM}}
}

// Date returns the calendar date of the record start.
func (r Record) Date() time.Time {
	return DateOf(r.Start)
}

func (r Record) IsWorkout() bool {
	return r.Kind == KindWorkout && r.Workout != nil
}

var ErrInvalidRecord = errors.New("invalid record")

// Validate checks the record invariants: a valid calendar date, the payload
// matching the kind and non-negative values.
func (r Record) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidRecord)
	}
	if !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRecord, r.End, r.Start)
	}

	switch r.Kind {
	case KindWorkout:
		if r.Workout == nil {
			return fmt.Errorf("%w: workout payload missing", ErrInvalidRecord)
		}
		if r.Workout.Activity == "" {
			return fmt.Errorf("%w: workout activity empty", ErrInvalidRecord)
		}
		if r.Workout.DurationMinutes < 0 || r.Workout.EnergyKcal < 0 || r.Workout.DistanceKm < 0 {
			return fmt.Errorf("%w: negative workout value", ErrInvalidRecord)
		}
	case KindSleep:
		if r.Sleep == nil {
			return fmt.Errorf("%w: sleep payload missing", ErrInvalidRecord)
		}
		if r.Sleep.Hours < 0 {
			return fmt.Errorf("%w: negative sleep hours", ErrInvalidRecord)
		}
	case KindSteps:
		if r.Steps == nil {
			return fmt.Errorf("%w: steps payload missing", ErrInvalidRecord)
		}
		if r.Steps.Count < 0 {
			return fmt.Errorf("%w: negative steps count", ErrInvalidRecord)
		}
	case KindHeartRate:
		if r.HeartRate == nil {
			return fmt.Errorf("%w: heart rate payload missing", ErrInvalidRecord)
		}
		if r.HeartRate.AvgBPM <= 0 || r.HeartRate.MaxBPM <= 0 {
			return fmt.Errorf("%w: heart rate must be positive", ErrInvalidRecord)
		}
		if r.HeartRate.MaxBPM < r.HeartRate.AvgBPM {
			return fmt.Errorf("%w: max bpm %.1f below avg bpm %.1f", ErrInvalidRecord, r.HeartRate.MaxBPM, r.HeartRate.AvgBPM)
		}
	default:
		return fmt.Errorf("%w: unknown kind [%s]", ErrInvalidRecord, r.Kind)
	}

	return nil
}

// Workouts returns only the workout records, preserving order.
func Workouts(records []Record) []Record {
	workouts := make([]Record, 0, len(records))
	for _, r := range records {
		if r.IsWorkout() {
			workouts = append(workouts, r)
		}
	}
	return workouts
}
