package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server with the health tools: list_activities,
// get_statistics, get_personal_records, get_series.
// Mounted on the main service at /mcp and served over stdio by cmd/healthdash_mcp.
func NewServer(service healthService) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "healthdash",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_activities",
		Description: "Returns the workout activities with their totals (count, duration in minutes, energy in kcal, distance in km), most frequent first. Optional: from_date, to_date (YYYY-MM-DD).",
	}, h.ListActivitiesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_statistics",
		Description: "Returns the overall workout statistics: total workouts, duration, energy, distance and the average workouts per week and per month. Optional: from_date, to_date (YYYY-MM-DD).",
	}, h.GetStatisticsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_personal_records",
		Description: "Returns personal records: the longest workout, the most active month, the current and the longest streak of consecutive workout days. Optional: from_date, to_date (YYYY-MM-DD).",
	}, h.GetPersonalRecordsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_series",
		Description: "Returns a continuous time series (labels plus one dataset per metric) of workout and health metrics, daily or monthly, optionally for one activity or broken down by category. Use for trends over time.",
	}, h.GetSeriesTool())

	return s
}

// NewHTTPHandler serves the MCP server over streamable HTTP.
func NewHTTPHandler(s *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s
	}, nil)
}
