package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/healthdash/internal/blob"
	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/ingest"
	"github.com/2beens/healthdash/internal/health/report"
	"github.com/2beens/healthdash/internal/health/store"
	"github.com/2beens/healthdash/internal/telemetry/tracing"
	"github.com/2beens/healthdash/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=dashboard_test

// recordsSource is the loaded record store (store.Snapshot).
type recordsSource interface {
	Records() ([]health.Record, error)
	Activities() ([]string, error)
	Version() uint64
}

type exportImporter interface {
	Import(ctx context.Context, key string) (*ingest.Result, error)
}

type snapshotReloader interface {
	Reload(ctx context.Context) (int, error)
}

type ImportRequest struct {
	Key string `json:"key"`
}

type ImportResponse struct {
	Import          *ingest.Result `json:"import"`
	SnapshotRecords int            `json:"snapshotRecords"`
}

type ReloadResponse struct {
	Records int    `json:"records"`
	Version uint64 `json:"version"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	SnapshotVersion uint64 `json:"snapshotVersion"`
}

type Handler struct {
	service     *Service
	cache       *ResponseCache
	importer    exportImporter
	reloader    snapshotReloader
	versionInfo string
}

type NewHandlerParams struct {
	Service     *Service
	Cache       *ResponseCache
	Importer    exportImporter // optional, POST /api/import answers 501 without it
	Reloader    snapshotReloader
	VersionInfo string
}

func NewHandler(params NewHandlerParams) *Handler {
	return &Handler{
		service:     params.Service,
		cache:       params.Cache,
		importer:    params.Importer,
		reloader:    params.Reloader,
		versionInfo: params.VersionInfo,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/activities", handler.HandleActivities).Methods("GET", "OPTIONS").Name("activities")
	r.HandleFunc("/api/activities/stats", handler.HandleActivityStats).Methods("GET", "OPTIONS").Name("activity-stats")
	r.HandleFunc("/api/data", handler.HandleData).Methods("GET", "OPTIONS").Name("data")
	r.HandleFunc("/api/series", handler.HandleSeries).Methods("GET", "OPTIONS").Name("series")
	r.HandleFunc("/api/statistics", handler.HandleStatistics).Methods("GET", "OPTIONS").Name("statistics")
	r.HandleFunc("/api/records", handler.HandleRecords).Methods("GET", "OPTIONS").Name("records")
	r.HandleFunc("/api/report.pdf", handler.HandleReportPDF).Methods("GET", "OPTIONS").Name("report-pdf")
	r.HandleFunc("/api/export.csv", handler.HandleExportCSV).Methods("GET", "OPTIONS").Name("export-csv")
	r.HandleFunc("/api/import", handler.HandleImport).Methods("POST", "OPTIONS").Name("import")
	r.HandleFunc("/api/reload", handler.HandleReload).Methods("POST", "OPTIONS").Name("reload")
	r.HandleFunc("/version", handler.HandleVersion).Methods("GET").Name("version")
	r.HandleFunc("/health", handler.HandleHealth).Methods("GET").Name("health")
}

// ReloadSnapshot reloads the records from the repository and drops all
// cached responses.
func (handler *Handler) ReloadSnapshot(ctx context.Context) (int, error) {
	count, err := handler.reloader.Reload(ctx)
	if err != nil {
		return 0, err
	}
	handler.cache.Clear()
	if m := handler.service.metricsManager; m != nil {
		m.GaugeSnapshotRecords.Set(float64(count))
	}
	return count, nil
}

func (handler *Handler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.activities")
	defer span.End()

	respJson, err := handler.cache.GetOrCompute("activities", "", handler.service.Version(), func() (any, error) {
		return handler.service.Activities(ctx)
	})
	if err != nil {
		handleError(w, "activities", err)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleActivityStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.activityStats")
	defer span.End()

	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		handleError(w, "activity stats", err)
		return
	}

	respJson, err := handler.cache.GetOrCompute("activity_stats", rng.String(), handler.service.Version(), func() (any, error) {
		return handler.service.ActivityStats(ctx, rng)
	})
	if err != nil {
		handleError(w, "activity stats", err)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

// HandleData returns the per-year chart data: {year, granularity, labels, datasets}.
func (handler *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.data")
	defer span.End()

	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		span.SetStatus(codes.Error, "invalid-query")
		handleError(w, "data", err)
		return
	}

	log.Tracef("aggregate data: %s", q.Key())

	respJson, err := handler.cache.GetOrCompute("data", q.Key(), handler.service.Version(), func() (any, error) {
		return handler.service.Aggregate(ctx, q)
	})
	if err != nil {
		handleError(w, "data", err)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.series")
	defer span.End()

	q, metrics, err := parseSeriesRequest(r)
	if err != nil {
		span.SetStatus(codes.Error, "invalid-query")
		handleError(w, "series", err)
		return
	}

	respJson, err := handler.cache.GetOrCompute("series", seriesKey(q, metrics), handler.service.Version(), func() (any, error) {
		return handler.service.Series(ctx, q, metrics)
	})
	if err != nil {
		handleError(w, "series", err)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.statistics")
	defer span.End()

	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		handleError(w, "statistics", err)
		return
	}

	respJson, err := handler.cache.GetOrCompute("statistics", rng.String(), handler.service.Version(), func() (any, error) {
		return handler.service.Statistics(ctx, rng)
	})
	if err != nil {
		handleError(w, "statistics", err)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

// HandleRecords is not cached: the current streak depends on the latest data.
func (handler *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.records")
	defer span.End()

	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		handleError(w, "records", err)
		return
	}

	personalRecords, err := handler.service.PersonalRecords(ctx, rng)
	if err != nil {
		handleError(w, "records", err)
		return
	}

	respJson, err := json.Marshal(personalRecords)
	if err != nil {
		log.Errorf("failed to marshal personal records: %s", err)
		http.Error(w, "failed to marshal personal records", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleReportPDF(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.reportPdf")
	defer span.End()

	rng, err := ParseRange(r.URL.Query())
	if err != nil {
		handleError(w, "report", err)
		return
	}

	summary := report.Summary{
		Period:      rng,
		GeneratedAt: time.Now(),
	}
	if summary.Statistics, err = handler.service.Statistics(ctx, rng); err != nil {
		handleError(w, "report", err)
		return
	}
	if summary.Records, err = handler.service.PersonalRecords(ctx, rng); err != nil {
		handleError(w, "report", err)
		return
	}
	summary.Monthly, err = handler.service.Aggregate(ctx, aggregate.Query{
		Granularity: aggregate.Monthly,
		Range:       rng,
	})
	if err != nil {
		handleError(w, "report", err)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderPDF(&buf, summary); err != nil {
		log.Errorf("render pdf report: %s", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="health-report.pdf"`)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.PDF, buf.Bytes())
}

func (handler *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.exportCsv")
	defer span.End()

	q, metrics, err := parseSeriesRequest(r)
	if err != nil {
		handleError(w, "export", err)
		return
	}

	series, err := handler.service.Series(ctx, q, metrics)
	if err != nil {
		handleError(w, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteSeriesCSV(&buf, series); err != nil {
		log.Errorf("write series csv: %s", err)
		http.Error(w, "failed to export series", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="health-series.csv"`)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.CSV, buf.Bytes())
}

func (handler *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.import")
	defer span.End()

	if handler.importer == nil {
		http.Error(w, "import not available", http.StatusNotImplemented)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var importReq ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&importReq); err != nil {
		log.Errorf("import, unmarshal json params: %s", err)
		http.Error(w, "invalid import request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(importReq.Key) == "" {
		http.Error(w, "error, export key empty", http.StatusBadRequest)
		return
	}

	result, err := handler.importer.Import(ctx, importReq.Key)
	if err != nil {
		span.RecordError(err)
		handleError(w, "import", err)
		return
	}

	count, err := handler.ReloadSnapshot(ctx)
	if err != nil {
		// the records are stored, the periodic reload will pick them up
		log.Errorf("reload snapshot after import %s: %s", result.BatchID, err)
	}

	respJson, err := json.Marshal(ImportResponse{
		Import:          result,
		SnapshotRecords: count,
	})
	if err != nil {
		log.Errorf("failed to marshal import response: %s", err)
		http.Error(w, "failed to marshal import response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.dashboard.reload")
	defer span.End()

	count, err := handler.ReloadSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		log.Errorf("reload snapshot: %s", err)
		http.Error(w, "failed to reload records", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ReloadResponse{
		Records: count,
		Version: handler.service.Version(),
	})
	if err != nil {
		log.Errorf("failed to marshal reload response: %s", err)
		http.Error(w, "failed to marshal reload response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

// HandleHealth reports "loading" until the first snapshot is loaded.
func (handler *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	version := handler.service.Version()
	status := "ok"
	if version == 0 {
		status = "loading"
	}

	respJson, err := json.Marshal(HealthResponse{
		Status:          status,
		SnapshotVersion: version,
	})
	if err != nil {
		http.Error(w, "failed to marshal health response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func parseSeriesRequest(r *http.Request) (aggregate.Query, []aggregate.Metric, error) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		return aggregate.Query{}, nil, err
	}
	metrics, err := ParseSeriesMetrics(r.URL.Query())
	if err != nil {
		return aggregate.Query{}, nil, err
	}
	return q, metrics, nil
}

func seriesKey(q aggregate.Query, metrics []aggregate.Metric) string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return q.Key() + "|" + strings.Join(names, ",")
}

func handleError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, health.ErrInvalidParameter),
		errors.Is(err, blob.ErrInvalidKey),
		errors.Is(err, ingest.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, blob.ErrObjectNotFound):
		http.Error(w, "export not found", http.StatusNotFound)
	case errors.Is(err, ingest.ErrImportInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrStoreNotLoaded):
		http.Error(w, "records not loaded yet, try again later", http.StatusServiceUnavailable)
	default:
		log.Errorf("%s: %s", endpoint, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
