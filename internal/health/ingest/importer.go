package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/2beens/healthdash/internal/blob"
	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/store"
	"github.com/2beens/healthdash/internal/telemetry/metrics"
	"github.com/2beens/healthdash/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

const (
	importLockKey     = "healthdash:import:lock"
	defaultImportLock = 30 * time.Minute
)

// deletes the import lock only while it still names our export; once the lock
// expired another import may hold it
const releaseLockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

var (
	ErrImportInProgress  = errors.New("another import is in progress")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=ingest_test

type recordsWriter interface {
	AddBatch(ctx context.Context, batch store.Batch, records []health.Record) (int, error)
}

// Result summarizes one import run.
type Result struct {
	BatchID  uuid.UUID     `json:"batchId"`
	Key      string        `json:"key"`
	Parsed   int           `json:"parsed"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	// RowErrors holds the first row errors, for the import report.
	RowErrors []string `json:"rowErrors,omitempty"`
}

type Importer struct {
	blobs          blob.Store
	repo           recordsWriter
	rdb            *redis.Client
	metricsManager *metrics.Manager
	lockTTL        time.Duration
}

type NewImporterParams struct {
	Blobs          blob.Store
	Repo           recordsWriter
	RedisClient    *redis.Client // optional; without it imports are not locked
	MetricsManager *metrics.Manager
	LockTTL        time.Duration
}

func NewImporter(params NewImporterParams) *Importer {
	lockTTL := params.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultImportLock
	}
	return &Importer{
		blobs:          params.Blobs,
		repo:           params.Repo,
		rdb:            params.RedisClient,
		metricsManager: params.MetricsManager,
		lockTTL:        lockTTL,
	}
}

// Import reads the export stored under key, parses it (export.xml or a
// per-activity workouts CSV) and stores the records as a new batch.
func (i *Importer) Import(ctx context.Context, key string) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ingest.import")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
		i.observe(err)
	}()
	span.SetAttributes(attribute.String("key", key))

	started := time.Now()
	batchID := uuid.New()

	release, err := i.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	body, err := i.blobs.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get export %s: %w", key, err)
	}
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			log.Warnf("import [%s]: close export: %s", key, closeErr)
		}
	}()

	parsed, err := Parse(ctx, key, body)
	if err != nil {
		return nil, err
	}
	if parsed.Skipped > 0 {
		log.Warnf("import [%s]: skipped %d rows: %s", key, parsed.Skipped, parsed.RowErrors)
	}

	inserted, err := i.repo.AddBatch(ctx, store.Batch{
		ID:        batchID,
		Source:    key,
		CreatedAt: started.UTC(),
	}, parsed.Records)
	if err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}

	res := &Result{
		BatchID:   batchID,
		Key:       key,
		Parsed:    len(parsed.Records),
		Inserted:  inserted,
		Skipped:   parsed.Skipped,
		Duration:  time.Since(started),
		RowErrors: rowErrors(parsed.RowErrors),
	}
	span.SetAttributes(
		attribute.Int("parsed", res.Parsed),
		attribute.Int("inserted", res.Inserted),
		attribute.Int("skipped", res.Skipped),
	)
	log.Infof("import [%s] batch %s: parsed %d, inserted %d, skipped %d in %s",
		key, batchID, res.Parsed, res.Inserted, res.Skipped, res.Duration)

	if i.metricsManager != nil {
		i.metricsManager.CounterImportedRecords.Add(float64(inserted))
		i.metricsManager.HistImportDuration.Observe(res.Duration.Seconds())
	}

	return res, nil
}

// Parse picks the parser by the key extension and reads the export from r as a stream.
func Parse(ctx context.Context, key string, r io.Reader) (*ParseResult, error) {
	switch strings.ToLower(path.Ext(key)) {
	case ".xml":
		res, err := ParseExport(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("parse export %s: %w", key, err)
		}
		return res, nil
	case ".csv":
		res, err := ParseWorkoutsCSV(ActivityFromCSVKey(key), r)
		if err != nil {
			return nil, fmt.Errorf("parse workouts csv %s: %w", key, err)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, key)
	}
}

// lock marks the import of key as running; the lock value names the export being imported.
func (i *Importer) lock(ctx context.Context, key string) (func(), error) {
	if i.rdb == nil {
		return func() {}, nil
	}

	ok, err := i.rdb.SetNX(ctx, importLockKey, key, i.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrImportInProgress
	}

	return func() {
		// the request ctx may be done already
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		released, err := i.rdb.Eval(releaseCtx, releaseLockScript, []string{importLockKey}, key).Int()
		if err != nil {
			log.Errorf("release import lock: %s", err)
			return
		}
		if released == 0 {
			log.Warnf("import [%s]: lock expired before the import finished", key)
		}
	}, nil
}

func (i *Importer) observe(err error) {
	if i.metricsManager == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrImportInProgress):
		result = "locked"
	case err != nil:
		result = "error"
	}
	i.metricsManager.CounterImports.WithLabelValues(result).Inc()
}

func rowErrors(err error) []string {
	if err == nil {
		return nil
	}
	var msgs []string
	for _, e := range multierr.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
