package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2beens/healthdash/internal/health"
)

// Dataset is one flattened metric: a plain sequence, or one sequence per category.
type Dataset struct {
	Values     []float64
	Categories map[string][]float64
}

func (d Dataset) IsBreakdown() bool {
	return d.Categories != nil
}

// Len returns the length of the sequences in the dataset.
func (d Dataset) Len() int {
	if d.Categories == nil {
		return len(d.Values)
	}
	for _, seq := range d.Categories {
		return len(seq)
	}
	return 0
}

func (d Dataset) MarshalJSON() ([]byte, error) {
	if d.Categories != nil {
		return json.Marshal(d.Categories)
	}
	if d.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Values)
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var categories map[string][]float64
		if err := json.Unmarshal(data, &categories); err != nil {
			return err
		}
		*d = Dataset{Categories: categories}
		return nil
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*d = Dataset{Values: values}
	return nil
}

// FlattenedSeries is a single continuous label/value series spanning all years.
type FlattenedSeries struct {
	Labels   []string           `json:"labels"`
	Datasets map[Metric]Dataset `json:"datasets"`
}

// Flatten concatenates the buckets of all years, in the given order, into one
// series. With no metrics given, every metric present in any bucket is used.
func Flatten(years []YearAggregate, metrics ...Metric) FlattenedSeries {
	if len(metrics) == 0 {
		metrics = presentMetrics(years)
	}

	var labels []string
	for _, y := range years {
		for _, b := range y.Buckets {
			labels = append(labels, seriesLabel(b.Label, y.Year))
		}
	}
	if labels == nil {
		labels = []string{}
	}

	datasets := make(map[Metric]Dataset, len(metrics))
	for _, m := range metrics {
		datasets[m] = flattenMetric(years, m, len(labels))
	}

	return FlattenedSeries{
		Labels:   labels,
		Datasets: datasets,
	}
}

func flattenMetric(years []YearAggregate, m Metric, n int) Dataset {
	categorySet := make(map[string]bool)
	breakdown := false
	for _, y := range years {
		for _, b := range y.Buckets {
			v, ok := b.Values[m]
			if !ok || !v.IsBreakdown() {
				continue
			}
			breakdown = true
			for _, category := range v.Categories() {
				categorySet[category] = true
			}
		}
	}

	if !breakdown {
		values := make([]float64, 0, n)
		for _, y := range years {
			for _, b := range y.Buckets {
				values = append(values, b.Values[m].Total())
			}
		}
		return Dataset{Values: values}
	}

	categorySet[health.ActivityTotal] = true
	categories := make(map[string][]float64, len(categorySet))
	for category := range categorySet {
		categories[category] = make([]float64, 0, n)
	}
	for _, y := range years {
		for _, b := range y.Buckets {
			v := b.Values[m]
			for category := range categorySet {
				categories[category] = append(categories[category], v.Get(category))
			}
		}
	}
	return Dataset{Categories: categories}
}

func presentMetrics(years []YearAggregate) []Metric {
	present := make(map[Metric]bool)
	for _, y := range years {
		for _, m := range y.Metrics() {
			present[m] = true
		}
	}
	var metrics []Metric
	for _, m := range AllMetrics {
		if present[m] {
			metrics = append(metrics, m)
		}
	}
	return metrics
}

// seriesLabel keeps daily labels (YYYY-MM-DD) as they are and turns
// month labels into "Jan 2023".
func seriesLabel(label string, year int) string {
	if strings.Contains(label, "-") {
		return label
	}
	short := label
	if len(short) > 3 {
		short = short[:3]
	}
	return fmt.Sprintf("%s %04d", short, year)
}
