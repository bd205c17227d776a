package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/2beens/healthdash/internal/health/stats"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestNewServer_Tools(t *testing.T) {
	ctx := context.Background()
	svc := &mockHealthService{summary: stats.Summary{TotalWorkouts: 7}}

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := NewServer(svc).Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer func() { _ = clientSession.Close() }()

	tools, err := clientSession.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"get_personal_records", "get_series", "get_statistics", "list_activities"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tools = %v, want %v", names, want)
		}
	}

	res, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_statistics",
		Arguments: map[string]any{"from_date": "2024-01-01", "to_date": "2024-06-30"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected IsError: %s", resultText(t, res))
	}

	var got stats.Summary
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if got.TotalWorkouts != 7 {
		t.Fatalf("got summary %+v", got)
	}
	if svc.gotRange == nil || svc.gotRange.Days() != 182 {
		t.Fatalf("range not passed to service: %v", svc.gotRange)
	}
}
