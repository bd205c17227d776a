package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
)

// WriteSeriesCSV writes the series as one row per label. Scalar metrics get a
// single column, breakdown metrics one "metric:category" column per category
// with the Total column first.
func WriteSeriesCSV(w io.Writer, series aggregate.FlattenedSeries) error {
	type column struct {
		name   string
		values []float64
	}

	var columns []column
	for _, m := range aggregate.AllMetrics {
		dataset, ok := series.Datasets[m]
		if !ok {
			continue
		}
		if !dataset.IsBreakdown() {
			columns = append(columns, column{name: string(m), values: dataset.Values})
			continue
		}

		categories := make([]string, 0, len(dataset.Categories))
		for category := range dataset.Categories {
			if category != health.ActivityTotal {
				categories = append(categories, category)
			}
		}
		sort.Strings(categories)
		categories = append([]string{health.ActivityTotal}, categories...)
		for _, category := range categories {
			columns = append(columns, column{
				name:   fmt.Sprintf("%s:%s", m, category),
				values: dataset.Categories[category],
			})
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"label"}
	for _, c := range columns {
		header = append(header, c.name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, label := range series.Labels {
		row := []string{label}
		for _, c := range columns {
			value := ""
			if i < len(c.values) {
				value = strconv.FormatFloat(c.values[i], 'f', -1, 64)
			}
			row = append(row, value)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
