package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/healthdash/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRequestMetrics(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	r := mux.NewRouter()
	r.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {}).Methods("GET")
	r.HandleFunc("/api/import", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods("POST")
	r.Use(RequestMetrics(metricsManager))

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/api/data", nil),
		httptest.NewRequest("GET", "/api/data", nil),
		httptest.NewRequest("POST", "/api/import", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metricsManager.CounterRequests.With(prometheus.Labels{"method": "GET", "status": "200"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterRequests.With(prometheus.Labels{"method": "POST", "status": "400"})))
	assert.Equal(t, 2, testutil.CollectAndCount(metricsManager.HistogramRequestDuration))
}

func TestDrainAndCloseRequest(t *testing.T) {
	called := false
	handler := DrainAndCloseRequest()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/import", nil))
	assert.True(t, called)
}
