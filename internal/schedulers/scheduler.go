package schedulers

import (
	"fmt"
	"time"
	"yieldpool/internal/config"
	"yieldpool/internal/services"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the ledger jobs with the specs from cfg.
func NewScheduler(cfg *config.Config, ledger *services.Ledger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		log.WithError(err).Warn("Failed to load timezone, using UTC")
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"complete ended pools", cfg.CronCompletePools, CompleteEndedPools(ledger.Pools)},
		{"monthly draw", cfg.CronMonthlyDraw, RunMonthlyDraw(ledger.Lottery)},
		{"safety sweep", cfg.CronSafetySweep, SweepAbandonedEscrows(ledger.Escrow, cfg.AutoSafetyRefund)},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for %s: %w", j.spec, j.name, err)
		}
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}
