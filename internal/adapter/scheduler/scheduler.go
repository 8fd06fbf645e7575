// Package scheduler runs the periodic deadline sweep that pushes contracts
// with unanswered compliance concerns into workout.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/homeward/homeward/internal/usecase"
)

// Sweeper drives ComplianceUseCase.SweepDeadlines on a cron schedule.
type Sweeper struct {
	cron       *cron.Cron
	compliance *usecase.ComplianceUseCase
	logger     *logrus.Logger
}

// NewSweeper creates a sweeper. The spec is a standard cron expression; a
// daily sweep is the expected cadence since deadlines are whole days.
func NewSweeper(compliance *usecase.ComplianceUseCase, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		cron:       cron.New(),
		compliance: compliance,
		logger:     logger,
	}
}

// Start registers the sweep and starts the scheduler.
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if err := s.compliance.SweepDeadlines(ctx); err != nil {
			s.logger.WithError(err).Error("deadline sweep failed")
			return
		}
		s.logger.Debug("deadline sweep completed")
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("deadline sweeper started")
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
