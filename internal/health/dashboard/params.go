package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
)

// ParseRange reads the optional date_from/date_to params.
func ParseRange(values url.Values) (*health.DateRange, error) {
	return health.ParseDateRange(values.Get("date_from"), values.Get("date_to"))
}

// ParseQuery reads activity, granularity, group_by_category and the date range.
// Missing params fall back to Total, monthly, no grouping and no range.
func ParseQuery(values url.Values) (aggregate.Query, error) {
	q := aggregate.Query{
		Activity:    strings.TrimSpace(values.Get("activity")),
		Granularity: aggregate.Monthly,
	}

	if g := values.Get("granularity"); g != "" {
		granularity, err := aggregate.ParseGranularity(g)
		if err != nil {
			return aggregate.Query{}, err
		}
		q.Granularity = granularity
	}

	if groupBy := values.Get("group_by_category"); groupBy != "" {
		grouped, err := strconv.ParseBool(groupBy)
		if err != nil {
			return aggregate.Query{}, fmt.Errorf("%w: invalid group_by_category [%s]", health.ErrInvalidParameter, groupBy)
		}
		q.GroupByCategory = grouped
	}

	rng, err := ParseRange(values)
	if err != nil {
		return aggregate.Query{}, err
	}
	q.Range = rng

	if err := q.Validate(); err != nil {
		return aggregate.Query{}, err
	}
	return q, nil
}

// ParseSeriesMetrics reads the repeated (or comma separated) metric param.
func ParseSeriesMetrics(values url.Values) ([]aggregate.Metric, error) {
	return aggregate.ParseMetrics(values["metric"])
}
