// Package jobs runs background reward jobs on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/example/loyalty/internal/services"
)

// RewardBatcher calculates rewards for every member in a period.
type RewardBatcher interface {
	CalculateAll(ctx context.Context, year, month int) (*services.BatchSummary, error)
}

// Scheduler owns the cron runner for monthly reward calculation.
type Scheduler struct {
	cron    *cron.Cron
	rewards RewardBatcher
	loc     *time.Location
	spec    string
}

// NewScheduler creates a scheduler whose entries fire in loc.
func NewScheduler(rewards RewardBatcher, spec string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		rewards: rewards,
		loc:     loc,
		spec:    spec,
	}
}

// Start registers the monthly batch and starts the runner.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunPreviousMonth(ctx, time.Now())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.WithField("spec", s.spec).WithField("timezone", s.loc.String()).Info("[CRON] reward scheduler started")
	return nil
}

// RunPreviousMonth calculates rewards for the calendar month before now.
func (s *Scheduler) RunPreviousMonth(ctx context.Context, now time.Time) {
	year, month := PreviousMonth(now.In(s.loc))
	logger := log.WithFields(log.Fields{"year": year, "month": month})
	logger.Info("[CRON] monthly reward batch")

	if _, err := s.rewards.CalculateAll(ctx, year, month); err != nil {
		logger.WithError(err).Error("[CRON] monthly reward batch failed")
	}
}

// Stop waits for running jobs and stops the runner.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	log.Info("[CRON] reward scheduler stopped")
}

// PreviousMonth returns the year and month preceding t's month.
func PreviousMonth(t time.Time) (int, int) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}
