package dashboard

import (
	"context"
	"time"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/stats"
	"github.com/2beens/healthdash/internal/telemetry/metrics"
	"github.com/2beens/healthdash/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Service answers the dashboard queries against the current records snapshot.
// It is shared by the HTTP handler and the MCP tools.
type Service struct {
	source         recordsSource
	aggregator     *aggregate.Aggregator
	metricsManager *metrics.Manager
}

func NewService(source recordsSource, aggregator *aggregate.Aggregator, metricsManager *metrics.Manager) *Service {
	if aggregator == nil {
		aggregator = aggregate.New(nil)
	}
	return &Service{
		source:         source,
		aggregator:     aggregator,
		metricsManager: metricsManager,
	}
}

// Version of the records snapshot the answers are computed from.
func (s *Service) Version() uint64 {
	return s.source.Version()
}

func (s *Service) Activities(ctx context.Context) (_ []string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.activities")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return s.source.Activities()
}

func (s *Service) ActivityStats(ctx context.Context, rng *health.DateRange) (_ []stats.ActivityStats, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.activityStats")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("range", rng.String()))

	records, err := s.source.Records()
	if err != nil {
		return nil, err
	}
	defer s.observe("activity_stats", time.Now())
	return stats.ActivityBreakdown(records, rng)
}

func (s *Service) Aggregate(ctx context.Context, q aggregate.Query) (_ []aggregate.YearAggregate, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.aggregate")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("query", q.Key()))

	records, err := s.source.Records()
	if err != nil {
		return nil, err
	}
	defer s.observe("aggregate", time.Now())
	return s.aggregator.Aggregate(records, q)
}

// Series aggregates q and flattens the years into one continuous series.
func (s *Service) Series(ctx context.Context, q aggregate.Query, metrics []aggregate.Metric) (_ aggregate.FlattenedSeries, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.series")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	years, err := s.Aggregate(ctx, q)
	if err != nil {
		return aggregate.FlattenedSeries{}, err
	}
	defer s.observe("flatten", time.Now())
	return aggregate.Flatten(years, metrics...), nil
}

func (s *Service) Statistics(ctx context.Context, rng *health.DateRange) (_ stats.Summary, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.statistics")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("range", rng.String()))

	records, err := s.source.Records()
	if err != nil {
		return stats.Summary{}, err
	}
	defer s.observe("statistics", time.Now())
	return stats.ComputeStatistics(records, rng)
}

func (s *Service) PersonalRecords(ctx context.Context, rng *health.DateRange) (_ stats.PersonalRecords, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "service.dashboard.personalRecords")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.String("range", rng.String()))

	records, err := s.source.Records()
	if err != nil {
		return stats.PersonalRecords{}, err
	}
	defer s.observe("personal_records", time.Now())
	return stats.ComputePersonalRecords(records, rng)
}

func (s *Service) observe(operation string, started time.Time) {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.HistAggregateDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
