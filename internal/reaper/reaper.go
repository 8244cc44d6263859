// Package reaper sweeps reserved holds whose reservation window lapsed
// before the patron checked the title out, releasing their copies back into
// the pool.
package reaper

import (
	"context"
	"time"

	"github.com/Astemirdum/odl-service/internal/events"
	"github.com/Astemirdum/odl-service/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Storage interface {
	ListExpiredReservedHolds(ctx context.Context, now time.Time) ([]model.Hold, error)
	DeleteHold(ctx context.Context, holdID int) error
}

type Recomputer interface {
	RecomputePool(ctx context.Context, poolID int) (model.Counters, error)
}

type Report struct {
	HoldsDeleted int `json:"holdsDeleted"`
	PoolsTouched int `json:"poolsTouched"`
}

type Reaper struct {
	log      *zap.Logger
	repo     Storage
	engine   Recomputer
	pub      events.Publisher
	interval time.Duration
	// sf keeps concurrent sweeps (scheduler tick racing an admin-triggered
	// run) collapsed into one.
	sf singleflight.Group
}

func New(repo Storage, engine Recomputer, pub events.Publisher, interval time.Duration, log *zap.Logger) *Reaper {
	return &Reaper{
		log:      log.Named("reaper"),
		repo:     repo,
		engine:   engine,
		pub:      pub,
		interval: interval,
	}
}

// Run sweeps on the configured interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			report, err := r.Sweep(ctx)
			if err != nil {
				r.log.Error("sweep", zap.Error(err))
				continue
			}
			if report.HoldsDeleted > 0 {
				r.log.Info("sweep",
					zap.Int("holds_deleted", report.HoldsDeleted),
					zap.Int("pools_touched", report.PoolsTouched))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep expires every reserved hold whose end date has passed. A failure on
// one hold is logged and skipped so a single bad row never blocks the rest;
// counters are recomputed once per distinct pool touched.
func (r *Reaper) Sweep(ctx context.Context) (Report, error) {
	v, err, _ := r.sf.Do("sweep", func() (interface{}, error) {
		return r.sweep(ctx)
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (r *Reaper) sweep(ctx context.Context) (Report, error) {
	holds, err := r.repo.ListExpiredReservedHolds(ctx, time.Now().UTC())
	if err != nil {
		return Report{}, err
	}

	var report Report
	pools := make(map[int]string)
	for _, h := range holds {
		if err := r.repo.DeleteHold(ctx, h.ID); err != nil {
			r.log.Error("delete expired hold",
				zap.Int("hold_id", h.ID), zap.Int("pool_id", h.PoolID), zap.Error(err))
			continue
		}
		report.HoldsDeleted++
		pools[h.PoolID] = h.PoolUid
		r.publish(h)
	}

	for poolID := range pools {
		if _, err := r.engine.RecomputePool(ctx, poolID); err != nil {
			r.log.Error("recompute pool", zap.Int("pool_id", poolID), zap.Error(err))
			continue
		}
		report.PoolsTouched++
	}
	return report, nil
}

func (r *Reaper) publish(h model.Hold) {
	err := r.pub.Publish(model.CirculationEvent{
		Type:      model.EventHoldExpired,
		PoolUid:   h.PoolUid,
		PatronID:  h.PatronID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		r.log.Warn("publish event", zap.Error(err))
	}
}
