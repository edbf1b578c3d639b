package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/internal/app/service"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = time.Minute

// PriceRefresher is the part of the gold price service the scheduler drives
type PriceRefresher interface {
	RefreshFromSources(ctx context.Context, source model.PriceSource) (*model.GoldPriceUpdateResult, error)
}

// GoldPriceScheduler refreshes prices from external sources on cron specs
type GoldPriceScheduler struct {
	cron      *cron.Cron
	refresher PriceRefresher
	specs     []string
}

// NewGoldPriceScheduler creates a scheduler evaluating specs in loc
func NewGoldPriceScheduler(refresher PriceRefresher, specs []string, loc *time.Location) *GoldPriceScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &GoldPriceScheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		refresher: refresher,
		specs:     specs,
	}
}

// Start registers every spec and starts the cron runner
func (s *GoldPriceScheduler) Start() error {
	for _, spec := range s.specs {
		if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
			logger.Error("Failed to add cron job for gold price update", err, logger.Fields{"spec": spec})
			return fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}

	s.cron.Start()
	logger.Info("Gold price scheduler started", logger.Fields{
		"schedules": s.specs,
		"location":  s.cron.Location().String(),
	})
	return nil
}

// Stop waits for a running refresh to finish
func (s *GoldPriceScheduler) Stop() {
	logger.Info("Stopping gold price scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Gold price scheduler stopped")
}

// NextRuns returns the next activation time of each job
func (s *GoldPriceScheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	runs := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, e.Next)
	}
	return runs
}

func (s *GoldPriceScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	logger.Info("Starting scheduled gold price update")
	result, err := s.refresher.RefreshFromSources(ctx, model.SourceSystem)
	switch {
	case errors.Is(err, service.ErrPricesUnchanged):
		logger.Info("Scheduled gold price update skipped, prices unchanged")
	case err != nil:
		logger.Error("Failed to update gold prices from scheduler", err)
	default:
		logger.Info("Scheduled gold price update completed", logger.Fields{
			"sell_24k": result.Price.Sell.Price24K,
			"changes":  len(result.Changes),
		})
	}
}
