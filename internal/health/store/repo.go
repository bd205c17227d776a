package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/telemetry/tracing"
	"github.com/2beens/healthdash/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrBatchNotFound = errors.New("import batch not found")
	ErrBatchExists   = errors.New("import batch already exists")
)

// Batch is one import run; records reference it so an import can be undone.
type Batch struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const insertRecordQuery = `INSERT INTO health_record
		(batch_id, kind, start_at, end_at, activity, category, duration_min, energy_kcal,
		 distance_km, sleep_hours, steps, hr_avg, hr_max)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT ON CONSTRAINT health_record_natural_key`

const (
	insertWorkoutQuery = insertRecordQuery + ` DO NOTHING;`

	// daily sleep/steps/heart rate totals of a later export replace the stored ones,
	// unchanged rows are left alone and not counted
	upsertDailyQuery = insertRecordQuery + ` DO UPDATE SET
		end_at = EXCLUDED.end_at,
		sleep_hours = EXCLUDED.sleep_hours,
		steps = EXCLUDED.steps,
		hr_avg = EXCLUDED.hr_avg,
		hr_max = EXCLUDED.hr_max,
		batch_id = EXCLUDED.batch_id
	WHERE (health_record.sleep_hours, health_record.steps, health_record.hr_avg, health_record.hr_max)
		IS DISTINCT FROM (EXCLUDED.sleep_hours, EXCLUDED.steps, EXCLUDED.hr_avg, EXCLUDED.hr_max);`
)

// AddBatch stores the records under a new import batch. Workouts already present
// (same kind, start and activity) are skipped. Daily sleep, steps and heart rate
// records are updated when the new values differ, so a newer export completes a
// partially recorded day, while re-importing the same export is a no-op.
// Returns the number of inserted or updated records.
func (r *Repo) AddBatch(ctx context.Context, batch Batch, records []health.Record) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.health.add_batch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("batch.id", batch.ID.String()),
		attribute.Int("batch.records", len(records)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO import_batch (id, source, records, created_at) VALUES ($1, $2, 0, $3);`,
		batch.ID, batch.Source, batch.CreatedAt,
	); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return 0, fmt.Errorf("%w: %s", ErrBatchExists, batch.ID)
		}
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	pgxBatch := &pgx.Batch{}
	for _, rec := range records {
		query := insertWorkoutQuery
		if rec.Kind != health.KindWorkout {
			query = upsertDailyQuery
		}
		pgxBatch.Queue(query, recordArgs(batch.ID, rec)...)
	}

	inserted := 0
	results := tx.SendBatch(ctx, pgxBatch)
	for range records {
		tag, execErr := results.Exec()
		if execErr != nil {
			_ = results.Close()
			return 0, fmt.Errorf("insert record: %w", execErr)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch results: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE import_batch SET records = $1 WHERE id = $2;`, inserted, batch.ID); err != nil {
		return 0, fmt.Errorf("update batch count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	span.SetAttributes(attribute.Int("batch.inserted", inserted))
	return inserted, nil
}

func recordArgs(batchID uuid.UUID, rec health.Record) []any {
	var endAt *time.Time
	if !rec.End.IsZero() {
		end := rec.End.UTC()
		endAt = &end
	}

	var (
		activity, category                     string
		duration, energy, distance, sleepHours float64
		steps                                  int64
		hrAvg, hrMax                           float64
	)
	switch {
	case rec.Workout != nil:
		activity = rec.Workout.Activity
		category = rec.Workout.Category
		duration = rec.Workout.DurationMinutes
		energy = rec.Workout.EnergyKcal
		distance = rec.Workout.DistanceKm
	case rec.Sleep != nil:
		sleepHours = rec.Sleep.Hours
	case rec.Steps != nil:
		steps = rec.Steps.Count
	case rec.HeartRate != nil:
		hrAvg = rec.HeartRate.AvgBPM
		hrMax = rec.HeartRate.MaxBPM
	}

	return []any{
		batchID, string(rec.Kind), rec.Start.UTC(), endAt, activity, category,
		duration, energy, distance, sleepHours, steps, hrAvg, hrMax,
	}
}

// ListAll returns every stored record, ordered by start.
func (r *Repo) ListAll(ctx context.Context) (_ []health.Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.health.list_all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT
			kind, start_at, end_at, activity, category, duration_min, energy_kcal,
			distance_km, sleep_hours, steps, hr_avg, hr_max
		FROM health_record
		ORDER BY start_at, id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []health.Record
	for rows.Next() {
		var (
			kind, activity, category                             string
			startAt                                              time.Time
			endAt                                                *time.Time
			duration, energy, distance, sleepHours, hrAvg, hrMax float64
			steps                                                int64
		)
		if err := rows.Scan(
			&kind, &startAt, &endAt, &activity, &category, &duration, &energy,
			&distance, &sleepHours, &steps, &hrAvg, &hrMax,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}

		rec := health.Record{Kind: health.Kind(kind), Start: startAt.UTC()}
		if endAt != nil {
			rec.End = endAt.UTC()
		}
		switch rec.Kind {
		case health.KindWorkout:
			rec.Workout = &health.Workout{
				Activity:        activity,
				Category:        category,
				DurationMinutes: duration,
				EnergyKcal:      energy,
				DistanceKm:      distance,
			}
		case health.KindSleep:
			rec.Sleep = &health.Sleep{Hours: sleepHours}
		case health.KindSteps:
			rec.Steps = &health.Steps{Count: steps}
		case health.KindHeartRate:
			rec.HeartRate = &health.HeartRate{AvgBPM: hrAvg, MaxBPM: hrMax}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

func (r *Repo) Activities(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.health.activities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT DISTINCT activity FROM health_record WHERE kind = $1 ORDER BY activity;`,
		string(health.KindWorkout),
	)
	if err != nil {
		return nil, err
	}

	activities, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect activities: %w", err)
	}
	return activities, nil
}

func (r *Repo) Count(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.health.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM health_record;`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repo) ListBatches(ctx context.Context) (_ []Batch, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.health.list_batches")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, source, records, created_at FROM import_batch ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}

	batches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Batch, error) {
		var b Batch
		err := row.Scan(&b.ID, &b.Source, &b.Records, &b.CreatedAt)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect batches: %w", err)
	}
	return batches, nil
}

// DeleteBatch removes an import batch together with its records.
func (r *Repo) DeleteBatch(ctx context.Context, batchID uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.health.delete_batch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("batch.id", batchID.String()))

	tag, err := r.db.Exec(ctx, `DELETE FROM import_batch WHERE id = $1;`, batchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}
