package reaper_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Astemirdum/odl-service/internal/errs"
	"github.com/Astemirdum/odl-service/internal/events"
	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/Astemirdum/odl-service/internal/reaper"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStorage struct {
	mu      sync.Mutex
	expired []model.Hold
	deleted []int
	failIDs map[int]bool
}

func (f *fakeStorage) ListExpiredReservedHolds(context.Context, time.Time) ([]model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Hold, len(f.expired))
	copy(out, f.expired)
	return out, nil
}

func (f *fakeStorage) DeleteHold(_ context.Context, holdID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[holdID] {
		return errs.ErrNotFound
	}
	f.deleted = append(f.deleted, holdID)
	return nil
}

type fakeRecomputer struct {
	mu    sync.Mutex
	pools []int
}

func (f *fakeRecomputer) RecomputePool(_ context.Context, poolID int) (model.Counters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools = append(f.pools, poolID)
	return model.Counters{}, nil
}

// One reserved hold with a lapsed reservation: the sweep deletes it and
// recomputes its pool exactly once.
func TestSweep_ExpiresReservedHold(t *testing.T) {
	t.Parallel()
	past := time.Now().Add(-time.Hour)
	storage := &fakeStorage{
		expired: []model.Hold{
			{ID: 10, PoolID: 1, PoolUid: "pool-1", PatronID: "p1", Position: 0, EndDate: &past},
		},
	}
	rec := &fakeRecomputer{}
	r := reaper.New(storage, rec, events.NewNopPublisher(), time.Minute, zap.NewNop())

	report, err := r.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, reaper.Report{HoldsDeleted: 1, PoolsTouched: 1}, report)
	require.Equal(t, []int{10}, storage.deleted)
	require.Equal(t, []int{1}, rec.pools)
}

// Recompute runs once per distinct pool even when several holds on the same
// pool expire in the same sweep.
func TestSweep_BatchesRecomputePerPool(t *testing.T) {
	t.Parallel()
	past := time.Now().Add(-time.Hour)
	storage := &fakeStorage{
		expired: []model.Hold{
			{ID: 1, PoolID: 1, PoolUid: "pool-1", EndDate: &past},
			{ID: 2, PoolID: 1, PoolUid: "pool-1", EndDate: &past},
			{ID: 3, PoolID: 2, PoolUid: "pool-2", EndDate: &past},
		},
	}
	rec := &fakeRecomputer{}
	r := reaper.New(storage, rec, events.NewNopPublisher(), time.Minute, zap.NewNop())

	report, err := r.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, reaper.Report{HoldsDeleted: 3, PoolsTouched: 2}, report)
	require.Len(t, rec.pools, 2)
}

// One bad row never blocks the sweep; the rest is still processed.
func TestSweep_IsolatesFailures(t *testing.T) {
	t.Parallel()
	past := time.Now().Add(-time.Hour)
	storage := &fakeStorage{
		expired: []model.Hold{
			{ID: 1, PoolID: 1, PoolUid: "pool-1", EndDate: &past},
			{ID: 2, PoolID: 2, PoolUid: "pool-2", EndDate: &past},
		},
		failIDs: map[int]bool{1: true},
	}
	rec := &fakeRecomputer{}
	r := reaper.New(storage, rec, events.NewNopPublisher(), time.Minute, zap.NewNop())

	report, err := r.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, reaper.Report{HoldsDeleted: 1, PoolsTouched: 1}, report)
	require.Equal(t, []int{2}, storage.deleted)
	require.Equal(t, []int{2}, rec.pools)
}
