package dashboard_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/dashboard"
	"github.com/2beens/healthdash/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		want    aggregate.Query
		wantKey string
		wantErr bool
	}{
		{
			name:    "defaults",
			values:  url.Values{},
			want:    aggregate.Query{Granularity: aggregate.Monthly},
			wantKey: "Total|monthly|false|all",
		},
		{
			name: "all params",
			values: url.Values{
				"activity":          {" Running "},
				"granularity":       {"DAILY"},
				"group_by_category": {"1"},
				"date_from":         {"2024-01-01"},
				"date_to":           {"2024-01-31"},
			},
			want: aggregate.Query{
				Activity:        "Running",
				Granularity:     aggregate.Daily,
				GroupByCategory: true,
			},
			wantKey: "Running|daily|true|2024-01-01..2024-01-31",
		},
		{
			name:    "explicit total",
			values:  url.Values{"activity": {"Total"}},
			want:    aggregate.Query{Activity: "Total", Granularity: aggregate.Monthly},
			wantKey: "Total|monthly|false|all",
		},
		{name: "bad granularity", values: url.Values{"granularity": {"yearly"}}, wantErr: true},
		{name: "bad bool", values: url.Values{"group_by_category": {"yes please"}}, wantErr: true},
		{name: "bad activity", values: url.Values{"activity": {"<script>"}}, wantErr: true},
		{name: "reversed range", values: url.Values{"date_from": {"2024-02-01"}, "date_to": {"2024-01-01"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := dashboard.ParseQuery(tt.values)
			if tt.wantErr {
				require.ErrorIs(t, err, health.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Activity, q.Activity)
			assert.Equal(t, tt.want.Granularity, q.Granularity)
			assert.Equal(t, tt.want.GroupByCategory, q.GroupByCategory)
			assert.Equal(t, tt.wantKey, q.Key())
		})
	}
}

func TestParseSeriesMetrics(t *testing.T) {
	metrics, err := dashboard.ParseSeriesMetrics(url.Values{"metric": {"count,duration", "steps"}})
	require.NoError(t, err)
	assert.Equal(t, []aggregate.Metric{aggregate.MetricCount, aggregate.MetricDuration, aggregate.MetricSteps}, metrics)

	metrics, err = dashboard.ParseSeriesMetrics(url.Values{})
	require.NoError(t, err)
	assert.Empty(t, metrics)

	_, err = dashboard.ParseSeriesMetrics(url.Values{"metric": {"weight"}})
	require.ErrorIs(t, err, health.ErrInvalidParameter)
}

func TestResponseCache(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	cache := dashboard.NewResponseCache(1, 60, metricsManager)

	calls := 0
	compute := func() (any, error) {
		calls++
		return map[string]int{"calls": calls}, nil
	}

	resp, err := cache.GetOrCompute("data", "q1", 1, compute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"calls":1}`, string(resp))

	resp, err = cache.GetOrCompute("data", "q1", 1, compute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"calls":1}`, string(resp))

	// a new snapshot version never sees the old entries
	resp, err = cache.GetOrCompute("data", "q1", 2, compute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"calls":2}`, string(resp))
	assert.Equal(t, int64(2), cache.EntryCount())

	boom := errors.New("boom")
	_, err = cache.GetOrCompute("data", "q2", 2, func() (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), cache.EntryCount())

	cache.Clear()
	assert.Equal(t, int64(0), cache.EntryCount())

	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterCacheHits.WithLabelValues("data")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metricsManager.CounterCacheMisses.WithLabelValues("data")))
}
