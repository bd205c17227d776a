package mcp

import (
	"context"
	"encoding/json"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/stats"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// healthService answers the dashboard queries (dashboard.Service).
type healthService interface {
	ActivityStats(ctx context.Context, rng *health.DateRange) ([]stats.ActivityStats, error)
	Statistics(ctx context.Context, rng *health.DateRange) (stats.Summary, error)
	PersonalRecords(ctx context.Context, rng *health.DateRange) (stats.PersonalRecords, error)
	Series(ctx context.Context, q aggregate.Query, metrics []aggregate.Metric) (aggregate.FlattenedSeries, error)
}

// Handler handles MCP tool requests: parses input, calls the service, formats the result as JSON text.
type Handler struct {
	service healthService
}

func NewHandler(service healthService) *Handler {
	return &Handler{
		service: service,
	}
}

// RangeInput is the optional date range shared by most tools.
type RangeInput struct {
	FromDate string `json:"from_date,omitempty" jsonschema:"Start date (YYYY-MM-DD), leave empty together with to_date for all time"`
	ToDate   string `json:"to_date,omitempty" jsonschema:"End date (YYYY-MM-DD), inclusive"`
}

func (in RangeInput) dateRange() (*health.DateRange, error) {
	return health.ParseDateRange(in.FromDate, in.ToDate)
}

// SeriesInput is the input for get_series.
type SeriesInput struct {
	FromDate        string   `json:"from_date,omitempty" jsonschema:"Start date (YYYY-MM-DD), leave empty together with to_date for all time"`
	ToDate          string   `json:"to_date,omitempty" jsonschema:"End date (YYYY-MM-DD), inclusive"`
	Activity        string   `json:"activity,omitempty" jsonschema:"Workout activity (e.g. Running), empty or Total for all activities"`
	Granularity     string   `json:"granularity,omitempty" jsonschema:"daily or monthly (default monthly)"`
	GroupByCategory bool     `json:"group_by_category,omitempty" jsonschema:"Break workout metrics down by category (Cardio, Strength Training, ...)"`
	Metrics         []string `json:"metrics,omitempty" jsonschema:"Metrics to include (count, duration, energy, distance, avg_duration, avg_energy, sleep_hours, steps, heart_rate_avg, heart_rate_max), empty for all"`
}

func (in SeriesInput) query() (aggregate.Query, []aggregate.Metric, error) {
	q := aggregate.Query{
		Activity:        in.Activity,
		Granularity:     aggregate.Monthly,
		GroupByCategory: in.GroupByCategory,
	}
	if in.Granularity != "" {
		g, err := aggregate.ParseGranularity(in.Granularity)
		if err != nil {
			return aggregate.Query{}, nil, err
		}
		q.Granularity = g
	}

	rng, err := health.ParseDateRange(in.FromDate, in.ToDate)
	if err != nil {
		return aggregate.Query{}, nil, err
	}
	q.Range = rng

	if err := q.Validate(); err != nil {
		return aggregate.Query{}, nil, err
	}

	metrics, err := aggregate.ParseMetrics(in.Metrics)
	if err != nil {
		return aggregate.Query{}, nil, err
	}
	return q, metrics, nil
}

// ListActivitiesTool returns the MCP tool handler for list_activities.
func (h *Handler) ListActivitiesTool() func(context.Context, *mcp.CallToolRequest, RangeInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in RangeInput) (*mcp.CallToolResult, any, error) {
		rng, err := in.dateRange()
		if err != nil {
			return errorResult("Invalid date range: " + err.Error()), nil, nil
		}
		breakdown, err := h.service.ActivityStats(ctx, rng)
		if err != nil {
			return errorResult("Error listing activities: " + err.Error()), nil, nil
		}
		return jsonResult(breakdown), nil, nil
	}
}

// GetStatisticsTool returns the MCP tool handler for get_statistics.
func (h *Handler) GetStatisticsTool() func(context.Context, *mcp.CallToolRequest, RangeInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in RangeInput) (*mcp.CallToolResult, any, error) {
		rng, err := in.dateRange()
		if err != nil {
			return errorResult("Invalid date range: " + err.Error()), nil, nil
		}
		summary, err := h.service.Statistics(ctx, rng)
		if err != nil {
			return errorResult("Error computing statistics: " + err.Error()), nil, nil
		}
		return jsonResult(summary), nil, nil
	}
}

// GetPersonalRecordsTool returns the MCP tool handler for get_personal_records.
func (h *Handler) GetPersonalRecordsTool() func(context.Context, *mcp.CallToolRequest, RangeInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in RangeInput) (*mcp.CallToolResult, any, error) {
		rng, err := in.dateRange()
		if err != nil {
			return errorResult("Invalid date range: " + err.Error()), nil, nil
		}
		records, err := h.service.PersonalRecords(ctx, rng)
		if err != nil {
			return errorResult("Error computing personal records: " + err.Error()), nil, nil
		}
		return jsonResult(records), nil, nil
	}
}

// GetSeriesTool returns the MCP tool handler for get_series.
func (h *Handler) GetSeriesTool() func(context.Context, *mcp.CallToolRequest, SeriesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in SeriesInput) (*mcp.CallToolResult, any, error) {
		q, metrics, err := in.query()
		if err != nil {
			return errorResult("Invalid input: " + err.Error()), nil, nil
		}
		series, err := h.service.Series(ctx, q, metrics)
		if err != nil {
			return errorResult("Error computing series: " + err.Error()), nil, nil
		}
		return jsonResult(series), nil, nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
