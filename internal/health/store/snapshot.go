package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrStoreNotLoaded = errors.New("record store not loaded")

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=store_test

type recordsLister interface {
	ListAll(ctx context.Context) ([]health.Record, error)
}

type snapshotState struct {
	records    []health.Record
	activities []string
	version    uint64
	loadedAt   time.Time
}

// Snapshot is the in-memory record store the dashboard reads from.
// The loaded records are never mutated; a reload swaps in a new slice, so
// readers need no locking and always see one consistent version.
type Snapshot struct {
	lister   recordsLister
	reloadMu sync.Mutex
	state    atomic.Pointer[snapshotState]
}

func NewSnapshot(lister recordsLister) *Snapshot {
	return &Snapshot{
		lister: lister,
	}
}

// Reload reads all records from the lister and replaces the current snapshot.
// Invalid records are dropped and logged. Returns the number of loaded records.
func (s *Snapshot) Reload(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.snapshot.reload")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if s.lister == nil {
		return 0, errors.New("snapshot has no records lister")
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	records, err := s.lister.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	version := s.replace(records)
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int64("version", int64(version)),
	)
	return len(s.state.Load().records), nil
}

// Replace swaps in the given records directly, bypassing the lister.
func (s *Snapshot) Replace(records []health.Record) uint64 {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.replace(records)
}

func (s *Snapshot) replace(records []health.Record) uint64 {
	valid := make([]health.Record, 0, len(records))
	dropped := 0
	for _, r := range records {
		if err := r.Validate(); err != nil {
			dropped++
			log.Debugf("snapshot: dropping record: %s", err)
			continue
		}
		valid = append(valid, r)
	}
	if dropped > 0 {
		log.Warnf("snapshot: dropped %d invalid records", dropped)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	var version uint64 = 1
	if prev := s.state.Load(); prev != nil {
		version = prev.version + 1
	}

	s.state.Store(&snapshotState{
		records:    valid,
		activities: health.Activities(valid),
		version:    version,
		loadedAt:   time.Now(),
	})
	log.Debugf("snapshot: loaded version %d with %d records", version, len(valid))

	return version
}

// Records returns the current records, ordered by start. The slice is shared
// and must not be modified.
func (s *Snapshot) Records() ([]health.Record, error) {
	st := s.state.Load()
	if st == nil {
		return nil, ErrStoreNotLoaded
	}
	return st.records, nil
}

func (s *Snapshot) Activities() ([]string, error) {
	st := s.state.Load()
	if st == nil {
		return nil, ErrStoreNotLoaded
	}
	return st.activities, nil
}

// Version is 0 until the first load and grows by one with every reload.
func (s *Snapshot) Version() uint64 {
	if st := s.state.Load(); st != nil {
		return st.version
	}
	return 0
}

func (s *Snapshot) LoadedAt() time.Time {
	if st := s.state.Load(); st != nil {
		return st.loadedAt
	}
	return time.Time{}
}
