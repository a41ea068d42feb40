package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"BloomFeed/internal/config"
	"BloomFeed/internal/ports"
)

// CronScheduler drives recurring pipeline runs from a cron expression.
type CronScheduler struct {
	cron       *cron.Cron
	expression string
	logger     *slog.Logger
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler bound to the configured timezone.
func NewCronScheduler(cfg config.SchedulerConfig, logger *slog.Logger) *CronScheduler {
	return &CronScheduler{
		cron:       cron.New(cron.WithLocation(cfg.Location())),
		expression: cfg.CronExpression,
		logger:     logger,
	}
}

// Start registers the job and begins the cron loop. Non-blocking.
func (s *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	_, err := s.cron.AddFunc(s.expression, func() {
		job(time.Now())
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.expression, err)
	}

	s.cron.Start()
	if s.logger != nil {
		s.logger.Info("scheduler started", "expression", s.expression)
	}
	return nil
}

// Stop halts the cron loop and waits for a running job to finish, bounded
// by the caller's context.
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
