package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/store"
	"github.com/2beens/healthdash/internal/testinternals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSnapshot_NotLoaded(t *testing.T) {
	s := store.NewSnapshot(nil)

	_, err := s.Records()
	assert.ErrorIs(t, err, store.ErrStoreNotLoaded)
	_, err = s.Activities()
	assert.ErrorIs(t, err, store.ErrStoreNotLoaded)
	assert.Equal(t, uint64(0), s.Version())
	assert.True(t, s.LoadedAt().IsZero())

	_, err = s.Reload(context.Background())
	assert.Error(t, err)
}

func TestSnapshot_Reload(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := NewMockrecordsLister(ctrl)
	s := store.NewSnapshot(lister)

	later := testinternals.WorkoutOn(2024, time.January, 2, "Running", 45)
	earlier := testinternals.WorkoutOn(2024, time.January, 1, "Yoga", 30)
	invalid := health.Record{Kind: health.KindWorkout, Start: earlier.Start}

	lister.EXPECT().ListAll(gomock.Any()).Return([]health.Record{later, invalid, earlier}, nil)
	n, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(1), s.Version())

	records, err := s.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Yoga", records[0].Workout.Activity)
	assert.Equal(t, "Running", records[1].Workout.Activity)

	activities, err := s.Activities()
	require.NoError(t, err)
	assert.Equal(t, []string{"Running", "Yoga"}, activities)

	// a failing reload keeps the previous snapshot
	lister.EXPECT().ListAll(gomock.Any()).Return(nil, errors.New("db down"))
	_, err = s.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, uint64(1), s.Version())
	records, err = s.Records()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	lister.EXPECT().ListAll(gomock.Any()).Return([]health.Record{}, nil)
	n, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, uint64(2), s.Version())
}

func TestSnapshot_ConcurrentReadersDuringReplace(t *testing.T) {
	s := store.NewSnapshot(nil)
	s.Replace(testinternals.RandomRecords(1, 50, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				records, err := s.Records()
				assert.NoError(t, err)
				assert.NotEmpty(t, records)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		s.Replace(testinternals.RandomRecords(int64(i+2), 50, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	}
	wg.Wait()

	assert.Equal(t, uint64(11), s.Version())
}
