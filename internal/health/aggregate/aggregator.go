package aggregate

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/2beens/healthdash/internal/health"
)

// Bucket is one time bucket of a year: a day or a month.
type Bucket struct {
	Label  string
	Values map[Metric]Value
}

func (b Bucket) Value(m Metric) Value {
	return b.Values[m]
}

// YearAggregate holds the ordered buckets of a single year.
type YearAggregate struct {
	Year        int
	Granularity Granularity
	Buckets     []Bucket
}

func (y YearAggregate) Labels() []string {
	labels := make([]string, len(y.Buckets))
	for i, b := range y.Buckets {
		labels[i] = b.Label
	}
	return labels
}

// Metrics returns the metrics present in the buckets, in AllMetrics order.
func (y YearAggregate) Metrics() []Metric {
	var metrics []Metric
	for _, m := range AllMetrics {
		for _, b := range y.Buckets {
			if _, ok := b.Values[m]; ok {
				metrics = append(metrics, m)
				break
			}
		}
	}
	return metrics
}

// YearChart is the chart-ready shape of a YearAggregate.
type YearChart struct {
	Year        int                `json:"year"`
	Granularity Granularity        `json:"granularity"`
	Labels      []string           `json:"labels"`
	Datasets    map[Metric][]Value `json:"datasets"`
}

func (y YearAggregate) Chart() YearChart {
	datasets := make(map[Metric][]Value)
	for _, m := range y.Metrics() {
		values := make([]Value, len(y.Buckets))
		for i, b := range y.Buckets {
			values[i] = b.Values[m]
		}
		datasets[m] = values
	}
	return YearChart{
		Year:        y.Year,
		Granularity: y.Granularity,
		Labels:      y.Labels(),
		Datasets:    datasets,
	}
}

func (y YearAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(y.Chart())
}

// Aggregator groups records into per-year buckets. It holds no mutable state.
type Aggregator struct {
	classifier *health.Classifier
}

func New(classifier *health.Classifier) *Aggregator {
	if classifier == nil {
		classifier = health.DefaultClassifier()
	}
	return &Aggregator{
		classifier: classifier,
	}
}

type totals struct {
	count    float64
	duration float64
	energy   float64
	distance float64
}

func (t *totals) add(w *health.Workout) {
	t.count++
	t.duration += w.DurationMinutes
	t.energy += w.EnergyKcal
	t.distance += w.DistanceKm
}

type accumulator struct {
	workouts   totals
	byCategory map[string]*totals

	sleepHours float64
	steps      float64
	hrAvgSum   float64
	hrAvgN     int
	hrMax      float64
}

func newAccumulator() *accumulator {
	return &accumulator{byCategory: make(map[string]*totals)}
}

// Aggregate validates the query, filters the records and groups them by
// (year, bucket). Years without records are omitted; within a year the bucket
// list is complete (12 months, or every day of the effective range).
func (a *Aggregator) Aggregate(records []health.Record, q Query) ([]YearAggregate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	filtered := a.filter(records, q)
	if len(filtered) == 0 {
		return []YearAggregate{}, nil
	}

	effective := q.Range
	if effective == nil {
		effective = span(filtered)
	}

	var categories []string
	if q.GroupByCategory {
		categories = a.categoriesOf(filtered)
	}

	accumulators := make(map[time.Time]*accumulator)
	yearsSet := make(map[int]bool)
	for _, r := range filtered {
		date := r.Date()
		yearsSet[date.Year()] = true

		key := bucketKey(date, q.Granularity)
		acc, ok := accumulators[key]
		if !ok {
			acc = newAccumulator()
			accumulators[key] = acc
		}
		a.accumulate(acc, r)
	}

	years := make([]int, 0, len(yearsSet))
	for y := range yearsSet {
		years = append(years, y)
	}
	sort.Ints(years)

	result := make([]YearAggregate, 0, len(years))
	for _, year := range years {
		keys := bucketKeys(year, q.Granularity, effective)
		buckets := make([]Bucket, 0, len(keys))
		for _, key := range keys {
			acc, ok := accumulators[key]
			if !ok {
				acc = newAccumulator()
			}
			buckets = append(buckets, Bucket{
				Label:  bucketLabel(key, q.Granularity),
				Values: acc.values(q, categories),
			})
		}
		result = append(result, YearAggregate{
			Year:        year,
			Granularity: q.Granularity,
			Buckets:     buckets,
		})
	}

	return result, nil
}

func (a *Aggregator) filter(records []health.Record, q Query) []health.Record {
	total := q.IsTotal()
	filtered := make([]health.Record, 0, len(records))
	for _, r := range records {
		if !q.Range.Contains(r.Start) {
			continue
		}
		switch r.Kind {
		case health.KindWorkout:
			if r.Workout == nil {
				continue
			}
			if total || r.Workout.Activity == q.Activity {
				filtered = append(filtered, r)
			}
		case health.KindSleep:
			if total && r.Sleep != nil {
				filtered = append(filtered, r)
			}
		case health.KindSteps:
			if total && r.Steps != nil {
				filtered = append(filtered, r)
			}
		case health.KindHeartRate:
			if total && r.HeartRate != nil {
				filtered = append(filtered, r)
			}
		}
	}
	return filtered
}

func (a *Aggregator) categoriesOf(records []health.Record) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		if r.IsWorkout() {
			seen[a.classifier.CategoryOf(r.Workout)] = true
		}
	}
	return sortedKeys(seen)
}

func (a *Aggregator) accumulate(acc *accumulator, r health.Record) {
	switch r.Kind {
	case health.KindWorkout:
		acc.workouts.add(r.Workout)
		category := a.classifier.CategoryOf(r.Workout)
		t, ok := acc.byCategory[category]
		if !ok {
			t = &totals{}
			acc.byCategory[category] = t
		}
		t.add(r.Workout)
	case health.KindSleep:
		acc.sleepHours += r.Sleep.Hours
	case health.KindSteps:
		acc.steps += float64(r.Steps.Count)
	case health.KindHeartRate:
		acc.hrAvgSum += r.HeartRate.AvgBPM
		acc.hrAvgN++
		if r.HeartRate.MaxBPM > acc.hrMax {
			acc.hrMax = r.HeartRate.MaxBPM
		}
	}
}

func (acc *accumulator) values(q Query, categories []string) map[Metric]Value {
	values := make(map[Metric]Value, len(AllMetrics))

	if q.GroupByCategory {
		for _, m := range WorkoutMetrics {
			entries := make(map[string]float64, len(categories))
			for _, category := range categories {
				t, ok := acc.byCategory[category]
				if !ok {
					entries[category] = 0
					continue
				}
				entries[category] = metricOf(*t, m, acc.workouts.count)
			}
			values[m] = Breakdown(entries)
		}
	} else {
		for _, m := range WorkoutMetrics {
			values[m] = Scalar(metricOf(acc.workouts, m, acc.workouts.count))
		}
	}

	if q.IsTotal() {
		values[MetricSleepHours] = Scalar(acc.sleepHours)
		values[MetricSteps] = Scalar(acc.steps)
		hrAvg := 0.0
		if acc.hrAvgN > 0 {
			hrAvg = acc.hrAvgSum / float64(acc.hrAvgN)
		}
		values[MetricHeartRateAvg] = Scalar(hrAvg)
		values[MetricHeartRateMax] = Scalar(acc.hrMax)
	}

	return values
}

// metricOf computes metric m from the totals t. Averages divide by the
// bucket count, so category shares of an average add up to the bucket average.
func metricOf(t totals, m Metric, bucketCount float64) float64 {
	switch m {
	case MetricCount:
		return t.count
	case MetricDuration:
		return t.duration
	case MetricEnergy:
		return t.energy
	case MetricDistance:
		return t.distance
	case MetricAvgDuration:
		if bucketCount == 0 {
			return 0
		}
		return t.duration / bucketCount
	case MetricAvgEnergy:
		if bucketCount == 0 {
			return 0
		}
		return t.energy / bucketCount
	}
	return 0
}

// span returns [earliest, latest] calendar date of the records.
func span(records []health.Record) *health.DateRange {
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

func bucketKey(date time.Time, g Granularity) time.Time {
	if g == Monthly {
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return date
}

func bucketKeys(year int, g Granularity, effective *health.DateRange) []time.Time {
	if g == Monthly {
		keys := make([]time.Time, 0, 12)
		for m := time.January; m <= time.December; m++ {
			keys = append(keys, time.Date(year, m, 1, 0, 0, 0, 0, time.UTC))
		}
		return keys
	}

	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if start := health.DateOf(effective.Start); start.After(first) {
		first = start
	}
	if end := health.DateOf(effective.End); end.Before(last) {
		last = end
	}

	var keys []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d)
	}
	return keys
}

func bucketLabel(key time.Time, g Granularity) string {
	if g == Monthly {
		return key.Month().String()[:3]
	}
	return key.Format(health.DateLayout)
}
