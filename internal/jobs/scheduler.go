package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/geovista/projects-backend/internal/assets"
	"github.com/geovista/projects-backend/internal/auth"
)

// Scheduler runs the two periodic jobs the API needs: signing key set
// refresh (so key rotation does not require a restart) and the temp
// asset orphan sweep.
type Scheduler struct {
	cron    *cron.Cron
	keys    *auth.KeySetCache
	sweeper *assets.Sweeper
}

func NewScheduler(keys *auth.KeySetCache, sweeper *assets.Sweeper) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		keys:    keys,
		sweeper: sweeper,
	}
}

// Start registers the jobs and starts the cron loop. A failed key
// refresh keeps the previous set; a failed sweep retries next round.
func (s *Scheduler) Start(refreshSpec, sweepSpec string) error {
	if _, err := s.cron.AddFunc(refreshSpec, s.refreshKeys); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.sweepTempAssets); err != nil {
		return err
	}

	log.Printf("Cron scheduler started (key refresh %q, asset sweep %q)", refreshSpec, sweepSpec)
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) refreshKeys() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.keys.Refresh(ctx); err != nil {
		log.Printf("Key set refresh failed, keeping previous set: %v", err)
		return
	}
	log.Printf("Key set refreshed (%d keys)", s.keys.Len())
}

func (s *Scheduler) sweepTempAssets() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("Temp asset sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Temp asset sweep removed %d orphaned objects", removed)
	}
}
