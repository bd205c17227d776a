package aggregate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/2beens/healthdash/internal/health"
)

type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

func (g Granularity) Valid() bool {
	return g == Daily || g == Monthly
}

func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: unknown granularity [%s], expected daily or monthly", health.ErrInvalidParameter, s)
	}
	return g, nil
}

// Metric names one per-bucket statistic.
type Metric string

const (
	MetricCount       Metric = "count"
	MetricDuration    Metric = "duration"
	MetricEnergy      Metric = "energy"
	MetricDistance    Metric = "distance"
	MetricAvgDuration Metric = "avg_duration"
	MetricAvgEnergy   Metric = "avg_energy"

	MetricSleepHours   Metric = "sleep_hours"
	MetricSteps        Metric = "steps"
	MetricHeartRateAvg Metric = "heart_rate_avg"
	MetricHeartRateMax Metric = "heart_rate_max"
)

// WorkoutMetrics are computed from workout records and can be broken down by category.
var WorkoutMetrics = []Metric{
	MetricCount,
	MetricDuration,
	MetricEnergy,
	MetricDistance,
	MetricAvgDuration,
	MetricAvgEnergy,
}

// HealthMetrics are only present for the Total activity filter.
var HealthMetrics = []Metric{
	MetricSleepHours,
	MetricSteps,
	MetricHeartRateAvg,
	MetricHeartRateMax,
}

// AllMetrics lists every metric in output order.
var AllMetrics = append(append([]Metric{}, WorkoutMetrics...), HealthMetrics...)

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllMetrics {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metric [%s]", health.ErrInvalidParameter, s)
}

func ParseMetrics(values []string) ([]Metric, error) {
	var metrics []Metric
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			m, err := ParseMetric(part)
			if err != nil {
				return nil, err
			}
			metrics = append(metrics, m)
		}
	}
	return metrics, nil
}

var activityFilterRegex = regexp.MustCompile(`^[A-Za-z0-9 _&()'.-]{1,64}$`)

// Query selects and shapes the aggregation. An empty Activity means Total.
type Query struct {
	Activity        string
	Granularity     Granularity
	GroupByCategory bool
	Range           *health.DateRange
}

func (q Query) IsTotal() bool {
	return q.Activity == "" || q.Activity == health.ActivityTotal
}

func (q Query) Validate() error {
	if !q.Granularity.Valid() {
		return fmt.Errorf("%w: unknown granularity [%s], expected daily or monthly", health.ErrInvalidParameter, q.Granularity)
	}
	if err := q.Range.Validate(); err != nil {
		return err
	}
	if !q.IsTotal() && !activityFilterRegex.MatchString(q.Activity) {
		return fmt.Errorf("%w: malformed activity filter [%s]", health.ErrInvalidParameter, q.Activity)
	}
	return nil
}

// Key is a normalized representation of the query, usable as a cache key.
func (q Query) Key() string {
	activity := q.Activity
	if q.IsTotal() {
		activity = health.ActivityTotal
	}
	return fmt.Sprintf("%s|%s|%t|%s", activity, q.Granularity, q.GroupByCategory, q.Range)
}
