package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2beens/healthdash/internal/health/ingest"
	"github.com/2beens/healthdash/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	promcl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImportNotification(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    ingest.ImportNotification
		wantErr bool
	}{
		{
			name: "valid",
			msg:  "records-count::15||duration::12.5",
			want: ingest.ImportNotification{RecordsCount: 15, Duration: 12500 * time.Millisecond},
		},
		{name: "missing separator", msg: "records-count::15", wantErr: true},
		{name: "wrong key", msg: "visits-count::15||duration::1", wantErr: true},
		{name: "negative count", msg: "records-count::-1||duration::1", wantErr: true},
		{name: "bad duration", msg: "records-count::1||duration::abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ingest.ParseImportNotification(tt.msg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "records-count::15||duration::12.500000", got.Message())
		})
	}
}

func TestImportUnixSocketListenerSetup(t *testing.T) {
	metricsManager, reg := metrics.NewTestManagerAndRegistry()
	dir, err := os.MkdirTemp("", "healthdash-unix")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, os.RemoveAll(dir))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notified := make(chan ingest.ImportNotification, 2)
	onImport := func(_ context.Context, n ingest.ImportNotification) error {
		notified <- n
		if n.RecordsCount == 0 {
			return errors.New("reload failed")
		}
		return nil
	}

	socket := fmt.Sprintf("%d.sock", os.Getpid())
	addr, err := ingest.ImportUnixSocketListenerSetup(ctx, dir, socket, metricsManager, onImport)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, socket), addr.String())

	duration := 12.1234
	err = ingest.NotifyImport(ctx, addr.String(), ingest.ImportNotification{
		RecordsCount: 15,
		Duration:     time.Duration(duration * float64(time.Second)),
	})
	require.NoError(t, err)

	select {
	case n := <-notified:
		assert.Equal(t, 15, n.RecordsCount)
	case <-time.After(2 * time.Second):
		t.Fatal("import notification not received")
	}

	// the service reports a failed reload back to the importer
	err = ingest.NotifyImport(ctx, addr.String(), ingest.ImportNotification{})
	require.Error(t, err)
	<-notified

	assert.Equal(t, 15.0, testutil.ToFloat64(metricsManager.CounterImportedRecords))
	assert.Equal(t, 2.0, testutil.ToFloat64(metricsManager.CounterImports.WithLabelValues("ok")))

	gathered, err := reg.Gather()
	require.NoError(t, err)
	var durationHistogram *promcl.MetricFamily
	for _, m := range gathered {
		if m.GetName() == "healthdash_test_server_import_duration_seconds" {
			durationHistogram = m
			break
		}
	}
	require.NotNil(t, durationHistogram)
	require.Len(t, durationHistogram.Metric, 1)
	assert.Equal(t, uint64(2), durationHistogram.Metric[0].GetHistogram().GetSampleCount())
	assert.InDelta(t, duration, durationHistogram.Metric[0].GetHistogram().GetSampleSum(), 0.0001)
}
