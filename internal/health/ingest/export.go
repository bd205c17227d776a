package ingest

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/2beens/healthdash/internal/health"

	"go.uber.org/multierr"
)

const (
	typeStepCount     = "HKQuantityTypeIdentifierStepCount"
	typeHeartRate     = "HKQuantityTypeIdentifierHeartRate"
	typeSleepAnalysis = "HKCategoryTypeIdentifierSleepAnalysis"

	statActiveEnergy     = "HKQuantityTypeIdentifierActiveEnergyBurned"
	statDistanceWalkRun  = "HKQuantityTypeIdentifierDistanceWalkingRunning"
	statDistanceCycling  = "HKQuantityTypeIdentifierDistanceCycling"
	statDistanceSwimming = "HKQuantityTypeIdentifierDistanceSwimming"
)

var asleepValues = map[string]bool{
	"HKCategoryValueSleepAnalysisAsleep":            true,
	"HKCategoryValueSleepAnalysisAsleepUnspecified": true,
	"HKCategoryValueSleepAnalysisAsleepCore":        true,
	"HKCategoryValueSleepAnalysisAsleepDeep":        true,
	"HKCategoryValueSleepAnalysisAsleepREM":         true,
}

// maxRowErrors caps the collected row errors; the rest are only counted.
const maxRowErrors = 50

// ParseResult is the outcome of parsing one export file.
type ParseResult struct {
	Records []health.Record
	// Skipped counts elements or rows that could not be parsed.
	Skipped int
	// RowErrors combines (up to maxRowErrors) row errors via multierr.
	RowErrors error
}

func (r *ParseResult) skip(err error) {
	r.Skipped++
	if r.Skipped <= maxRowErrors {
		r.RowErrors = multierr.Append(r.RowErrors, err)
	}
}

type xmlWorkout struct {
	ActivityType          string                 `xml:"workoutActivityType,attr"`
	Duration              string                 `xml:"duration,attr"`
	DurationUnit          string                 `xml:"durationUnit,attr"`
	TotalDistance         string                 `xml:"totalDistance,attr"`
	TotalDistanceUnit     string                 `xml:"totalDistanceUnit,attr"`
	TotalEnergyBurned     string                 `xml:"totalEnergyBurned,attr"`
	TotalEnergyBurnedUnit string                 `xml:"totalEnergyBurnedUnit,attr"`
	StartDate             string                 `xml:"startDate,attr"`
	EndDate               string                 `xml:"endDate,attr"`
	Statistics            []xmlWorkoutStatistics `xml:"WorkoutStatistics"`
}

type xmlWorkoutStatistics struct {
	Type string `xml:"type,attr"`
	Sum  string `xml:"sum,attr"`
	Unit string `xml:"unit,attr"`
}

type sleepInterval struct {
	start, end time.Time
}

type heartRateDay struct {
	sum   float64
	count int
	max   float64
}

// exportParser accumulates the daily health series while streaming the export.
type exportParser struct {
	result    *ParseResult
	steps     map[time.Time]int64
	heartRate map[time.Time]*heartRateDay
	sleep     map[time.Time][]sleepInterval
}

// ParseExport streams an Apple Health export.xml and returns workout records
// plus daily sleep, steps and heart rate records. Malformed elements are
// skipped and reported in the result; only an unreadable document is an error.
func ParseExport(ctx context.Context, r io.Reader) (*ParseResult, error) {
	p := &exportParser{
		result:    &ParseResult{},
		steps:     map[time.Time]int64{},
		heartRate: map[time.Time]*heartRateDay{},
		sleep:     map[time.Time][]sleepInterval{},
	}

	dec := xml.NewDecoder(r)
	dec.Strict = false

	for tokens := 0; ; tokens++ {
		if tokens%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export xml: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "Workout":
			var w xmlWorkout
			if err := dec.DecodeElement(&w, &se); err != nil {
				return nil, fmt.Errorf("decode workout: %w", err)
			}
			rec, err := w.record()
			if err != nil {
				p.result.skip(err)
				continue
			}
			p.result.Records = append(p.result.Records, rec)
		case "Record":
			if err := p.addRecord(attrs(se)); err != nil {
				p.result.skip(err)
			}
		}
	}

	p.flushDaily()
	return p.result, nil
}

func attrs(se xml.StartElement) map[string]string {
	m := make(map[string]string, len(se.Attr))
	for _, a := range se.Attr {
		m[a.Name.Local] = a.Value
	}
	return m
}

func (w xmlWorkout) record() (health.Record, error) {
	activity := ActivityName(w.ActivityType)
	if activity == "" {
		return health.Record{}, errors.New("workout: missing activity type")
	}

	start, err := ParseAppleTime(w.StartDate)
	if err != nil {
		return health.Record{}, fmt.Errorf("workout %s: start: %w", activity, err)
	}
	var end time.Time
	if w.EndDate != "" {
		if end, err = ParseAppleTime(w.EndDate); err != nil {
			return health.Record{}, fmt.Errorf("workout %s: end: %w", activity, err)
		}
	}

	duration, err := parseFloat(w.Duration)
	if err != nil {
		return health.Record{}, fmt.Errorf("workout %s: duration: %w", activity, err)
	}
	if duration, err = toMinutes(duration, w.DurationUnit); err != nil {
		return health.Record{}, fmt.Errorf("workout %s: %w", activity, err)
	}

	energy, distance, err := w.energyAndDistance()
	if err != nil {
		return health.Record{}, fmt.Errorf("workout %s: %w", activity, err)
	}

	rec := health.NewWorkout(start, health.Workout{
		Activity:        activity,
		DurationMinutes: duration,
		EnergyKcal:      energy,
		DistanceKm:      distance,
	})
	rec.End = end
	if err := rec.Validate(); err != nil {
		return health.Record{}, err
	}
	return rec, nil
}

// energyAndDistance prefers the WorkoutStatistics sums (newer exports) over
// the legacy totalEnergyBurned/totalDistance attributes.
func (w xmlWorkout) energyAndDistance() (energy, distance float64, err error) {
	var haveEnergy, haveDistance bool
	for _, st := range w.Statistics {
		v, err := parseFloat(st.Sum)
		if err != nil {
			return 0, 0, fmt.Errorf("statistics %s: %w", st.Type, err)
		}
		switch st.Type {
		case statActiveEnergy:
			if energy, err = toKcal(v, st.Unit); err != nil {
				return 0, 0, err
			}
			haveEnergy = true
		case statDistanceWalkRun, statDistanceCycling, statDistanceSwimming:
			km, err := toKm(v, st.Unit)
			if err != nil {
				return 0, 0, err
			}
			distance += km
			haveDistance = true
		}
	}

	if !haveEnergy {
		v, err := parseFloat(w.TotalEnergyBurned)
		if err != nil {
			return 0, 0, fmt.Errorf("energy: %w", err)
		}
		if energy, err = toKcal(v, w.TotalEnergyBurnedUnit); err != nil {
			return 0, 0, err
		}
	}
	if !haveDistance {
		v, err := parseFloat(w.TotalDistance)
		if err != nil {
			return 0, 0, fmt.Errorf("distance: %w", err)
		}
		if distance, err = toKm(v, w.TotalDistanceUnit); err != nil {
			return 0, 0, err
		}
	}

	return energy, distance, nil
}

func (p *exportParser) addRecord(a map[string]string) error {
	switch a["type"] {
	case typeStepCount:
		start, err := ParseAppleTime(a["startDate"])
		if err != nil {
			return fmt.Errorf("steps: %w", err)
		}
		v, err := parseFloat(a["value"])
		if err != nil {
			return fmt.Errorf("steps: %w", err)
		}
		p.steps[health.DateOf(start)] += int64(v)
	case typeHeartRate:
		start, err := ParseAppleTime(a["startDate"])
		if err != nil {
			return fmt.Errorf("heart rate: %w", err)
		}
		v, err := parseFloat(a["value"])
		if err != nil {
			return fmt.Errorf("heart rate: %w", err)
		}
		if v == 0 {
			return errors.New("heart rate: zero bpm")
		}
		day := health.DateOf(start)
		hr, ok := p.heartRate[day]
		if !ok {
			hr = &heartRateDay{}
			p.heartRate[day] = hr
		}
		hr.sum += v
		hr.count++
		if v > hr.max {
			hr.max = v
		}
	case typeSleepAnalysis:
		if !asleepValues[a["value"]] {
			return nil
		}
		start, err := ParseAppleTime(a["startDate"])
		if err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
		end, err := ParseAppleTime(a["endDate"])
		if err != nil {
			return fmt.Errorf("sleep: %w", err)
		}
		if end.Before(start) {
			return fmt.Errorf("sleep: end %s before start %s", end, start)
		}
		// a night counts for the day you wake up on
		day := health.DateOf(end)
		p.sleep[day] = append(p.sleep[day], sleepInterval{start: start, end: end})
	}
	return nil
}

func (p *exportParser) flushDaily() {
	var daily []health.Record
	for day, steps := range p.steps {
		daily = append(daily, health.NewSteps(day, steps))
	}
	for day, hr := range p.heartRate {
		daily = append(daily, health.NewHeartRate(day, hr.sum/float64(hr.count), hr.max))
	}
	for day, intervals := range p.sleep {
		daily = append(daily, health.NewSleep(day, asleepHours(intervals)))
	}

	sort.Slice(daily, func(i, j int) bool {
		if !daily[i].Start.Equal(daily[j].Start) {
			return daily[i].Start.Before(daily[j].Start)
		}
		return daily[i].Kind < daily[j].Kind
	})
	p.result.Records = append(p.result.Records, daily...)
}

// asleepHours sums the union of the intervals. Watch and iPhone both record
// the same night, so their samples overlap.
func asleepHours(intervals []sleepInterval) float64 {
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start.Before(intervals[j].start)
	})

	var total time.Duration
	cur := intervals[0]
	for _, in := range intervals[1:] {
		if in.start.After(cur.end) {
			total += cur.end.Sub(cur.start)
			cur = in
			continue
		}
		if in.end.After(cur.end) {
			cur.end = in.end
		}
	}
	total += cur.end.Sub(cur.start)
	return total.Hours()
}
