package dashboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/dashboard"
	"github.com/2beens/healthdash/internal/health/ingest"
	"github.com/2beens/healthdash/internal/health/stats"
	"github.com/2beens/healthdash/internal/health/store"
	"github.com/2beens/healthdash/internal/telemetry/metrics"
	"github.com/2beens/healthdash/internal/testinternals"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type yearChart struct {
	Year     int              `json:"year"`
	Labels   []string         `json:"labels"`
	Datasets map[string][]any `json:"datasets"`
}

func testRecords() []health.Record {
	return []health.Record{
		testinternals.WorkoutOn(2023, time.December, 31, "Running", 40),
		testinternals.WorkoutOn(2024, time.January, 3, "Running", 30),
		testinternals.WorkoutOn(2024, time.January, 4, "Yoga", 60),
		testinternals.WorkoutOn(2024, time.March, 10, "Cycling", 95),
		health.NewSteps(time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), 12000),
	}
}

func loadedSnapshot(t *testing.T) *store.Snapshot {
	t.Helper()
	snapshot := store.NewSnapshot(nil)
	require.Equal(t, uint64(1), snapshot.Replace(testRecords()))
	return snapshot
}

type handlerDeps struct {
	importer *MockexportImporter
	reloader *MocksnapshotReloader
	metrics  *metrics.Manager
}

func newTestHandler(t *testing.T, source interface {
	Records() ([]health.Record, error)
	Activities() ([]string, error)
	Version() uint64
}) (*dashboard.Handler, *mux.Router, handlerDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := handlerDeps{
		importer: NewMockexportImporter(ctrl),
		reloader: NewMocksnapshotReloader(ctrl),
		metrics:  metrics.NewTestManager(),
	}
	h := dashboard.NewHandler(dashboard.NewHandlerParams{
		Service:     dashboard.NewService(source, nil, deps.metrics),
		Cache:       dashboard.NewResponseCache(1, 60, deps.metrics),
		Importer:    deps.importer,
		Reloader:    deps.reloader,
		VersionInfo: "test-version",
	})
	r := mux.NewRouter()
	h.SetupRoutes(r)
	return h, r, deps
}

func serve(r *mux.Router, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HandleData(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/api/data?granularity=monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var years []yearChart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &years))
	require.Len(t, years, 2)
	assert.Equal(t, 2023, years[0].Year)
	assert.Equal(t, 2024, years[1].Year)
	require.Len(t, years[1].Labels, 12)
	assert.Equal(t, "Jan", years[1].Labels[0])

	assert.Equal(t, 1.0, years[0].Datasets["count"][11])
	assert.Equal(t, 2.0, years[1].Datasets["count"][0])
	assert.Equal(t, 0.0, years[1].Datasets["count"][1])
	assert.Equal(t, 1.0, years[1].Datasets["count"][2])
	assert.Equal(t, 12000.0, years[1].Datasets["steps"][0])
}

func TestHandler_HandleData_GroupByCategory(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/api/data?granularity=monthly&group_by_category=true&date_from=2024-01-01&date_to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var years []struct {
		Year     int                        `json:"year"`
		Datasets map[string]json.RawMessage `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &years))
	require.Len(t, years, 1)

	var duration []map[string]float64
	require.NoError(t, json.Unmarshal(years[0].Datasets["duration"], &duration))
	require.Len(t, duration, 12)
	january := duration[0]
	assert.Equal(t, 90.0, january[health.ActivityTotal])
	assert.Equal(t, 30.0, january[health.CategoryCardio])
	assert.Equal(t, 60.0, january[health.CategoryMindBody])
}

func TestHandler_InvalidQuery(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	tests := []struct {
		name   string
		target string
	}{
		{name: "unknown granularity", target: "/api/data?granularity=weekly"},
		{name: "start after end", target: "/api/data?date_from=2024-02-01&date_to=2024-01-01"},
		{name: "only one date", target: "/api/statistics?date_from=2024-02-01"},
		{name: "malformed date", target: "/api/records?date_from=2024-13-01&date_to=2024-12-01"},
		{name: "malformed activity", target: "/api/data?activity=Run%3Bdrop"},
		{name: "bad group by", target: "/api/series?group_by_category=maybe"},
		{name: "unknown metric", target: "/api/series?metric=calories"},
		{name: "report range", target: "/api/report.pdf?date_from=2024-02-01&date_to=2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, "GET", tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_NotLoaded(t *testing.T) {
	_, r, _ := newTestHandler(t, store.NewSnapshot(nil))

	for _, target := range []string{"/api/activities", "/api/data", "/api/statistics", "/api/records"} {
		rec := serve(r, "GET", target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}

	rec := serve(r, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var healthResp dashboard.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &healthResp))
	assert.Equal(t, "loading", healthResp.Status)
}

func TestHandler_HandleStatistics_Cached(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockrecordsSource(ctrl)
	source.EXPECT().Version().Return(uint64(3)).AnyTimes()
	source.EXPECT().Records().Return(testRecords(), nil).Times(1)

	_, r, deps := newTestHandler(t, source)

	first := serve(r, "GET", "/api/statistics", nil)
	require.Equal(t, http.StatusOK, first.Code)
	second := serve(r, "GET", "/api/statistics", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	var summary stats.Summary
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &summary))
	assert.Equal(t, 4, summary.TotalWorkouts)
	assert.Equal(t, 225.0, summary.TotalDurationMinutes)

	assert.Equal(t, 1.0, testutil.ToFloat64(deps.metrics.CounterCacheMisses.WithLabelValues("statistics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.metrics.CounterCacheHits.WithLabelValues("statistics")))
}

func TestHandler_HandleRecords_NotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockrecordsSource(ctrl)
	source.EXPECT().Version().Return(uint64(1)).AnyTimes()
	source.EXPECT().Records().Return(testRecords(), nil).Times(2)

	_, r, _ := newTestHandler(t, source)

	for i := 0; i < 2; i++ {
		rec := serve(r, "GET", "/api/records", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var personalRecords stats.PersonalRecords
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &personalRecords))
		assert.Equal(t, "Cycling", personalRecords.LongestWorkout.Activity)
		assert.Equal(t, 95.0, personalRecords.LongestWorkout.DurationMinutes)
		assert.Equal(t, 2024, personalRecords.MostActiveMonth.Year)
		assert.Equal(t, time.January, personalRecords.MostActiveMonth.Month)
		assert.Equal(t, 2, personalRecords.LongestStreak)
	}
}

func TestHandler_HandleActivities(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/api/activities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Cycling","Running","Yoga"]`, rec.Body.String())

	rec = serve(r, "GET", "/api/activities/stats?date_from=2024-01-01&date_to=2024-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var breakdown []stats.ActivityStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &breakdown))
	require.Len(t, breakdown, 3)
	assert.Equal(t, "Cycling", breakdown[0].Activity)
	assert.Equal(t, 1, breakdown[0].Count)
}

func TestHandler_HandleSeries(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/api/series?metric=count&metric=duration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var series aggregate.FlattenedSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series.Labels, 24)
	assert.Equal(t, "Jan 2023", series.Labels[0])
	assert.Equal(t, "Dec 2024", series.Labels[23])
	require.Len(t, series.Datasets, 2)
	assert.Equal(t, 40.0, series.Datasets[aggregate.MetricDuration].Values[11])
	assert.Equal(t, 90.0, series.Datasets[aggregate.MetricDuration].Values[12])
}

func TestHandler_HandleExportCSV(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/api/export.csv?metric=count&activity=Running", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 25)
	assert.Equal(t, "label,count", lines[0])
	assert.Equal(t, "Dec 2023,1", lines[12])
	assert.Equal(t, "Jan 2024,1", lines[13])
}

func TestHandler_HandleReportPDF(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/api/report.pdf?date_from=2024-01-01&date_to=2024-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestHandler_HandleImport(t *testing.T) {
	_, r, deps := newTestHandler(t, loadedSnapshot(t))

	batchID := uuid.New()
	deps.importer.EXPECT().
		Import(gomock.Any(), "export.xml").
		Return(&ingest.Result{BatchID: batchID, Key: "export.xml", Parsed: 10, Inserted: 8}, nil)
	deps.reloader.EXPECT().Reload(gomock.Any()).Return(42, nil)

	rec := serve(r, "POST", "/api/import", []byte(`{"key":"export.xml"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var importResp dashboard.ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &importResp))
	assert.Equal(t, 42, importResp.SnapshotRecords)
	require.NotNil(t, importResp.Import)
	assert.Equal(t, batchID, importResp.Import.BatchID)
	assert.Equal(t, 8, importResp.Import.Inserted)
}

func TestHandler_HandleImport_Errors(t *testing.T) {
	_, r, deps := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "POST", "/api/import", []byte(`{"key":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, "POST", "/api/import", []byte(`{"key":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/api/import", strings.NewReader(`{"key":"export.xml"}`))
	plain := httptest.NewRecorder()
	r.ServeHTTP(plain, req)
	assert.Equal(t, http.StatusBadRequest, plain.Code)

	deps.importer.EXPECT().Import(gomock.Any(), "export.xml").Return(nil, ingest.ErrImportInProgress)
	rec = serve(r, "POST", "/api/import", []byte(`{"key":"export.xml"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	deps.importer.EXPECT().Import(gomock.Any(), "notes.txt").Return(nil, ingest.ErrUnsupportedFormat)
	rec = serve(r, "POST", "/api/import", []byte(`{"key":"notes.txt"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleReload(t *testing.T) {
	snapshot := loadedSnapshot(t)
	h, r, deps := newTestHandler(t, snapshot)

	// warm the cache, then reload a snapshot without the 2023 workout
	rec := serve(r, "GET", "/api/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	deps.reloader.EXPECT().
		Reload(gomock.Any()).
		DoAndReturn(func(_ context.Context) (int, error) {
			snapshot.Replace(testRecords()[1:])
			return 4, nil
		})

	rec = serve(r, "POST", "/api/reload", []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var reloadResp dashboard.ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reloadResp))
	assert.Equal(t, 4, reloadResp.Records)
	assert.Equal(t, uint64(2), reloadResp.Version)

	rec = serve(r, "GET", "/api/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary stats.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalWorkouts)

	deps.reloader.EXPECT().Reload(gomock.Any()).Return(0, assert.AnError)
	_, err := h.ReloadSnapshot(context.Background())
	require.ErrorIs(t, err, assert.AnError)
}

func TestHandler_VersionAndHealth(t *testing.T) {
	_, r, _ := newTestHandler(t, loadedSnapshot(t))

	rec := serve(r, "GET", "/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-version", rec.Body.String())

	rec = serve(r, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","snapshotVersion":1}`, rec.Body.String())
}
