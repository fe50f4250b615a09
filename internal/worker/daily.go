package worker

import (
	"context"
	"time"

	"eventscan/internal/logging"

	"github.com/rs/zerolog"
)

// Job is one scheduled invocation.
type Job func(ctx context.Context)

// DailyScheduler runs a job once a day at a fixed UTC wall-clock time.
type DailyScheduler struct {
	hour    int
	minute  int
	timeout time.Duration
	job     Job
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewDailyScheduler(hour, minute int, timeout time.Duration, job Job, logger *zerolog.Logger) *DailyScheduler {
	return &DailyScheduler{
		hour:    hour,
		minute:  minute,
		timeout: timeout,
		job:     job,
		logger:  logging.Component(logger, "scheduler"),
		now:     time.Now,
	}
}

// UntilNext returns the wait from now to the next hour:minute UTC.
func UntilNext(now time.Time, hour, minute int) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// Start blocks until ctx is done. Runs never overlap.
func (s *DailyScheduler) Start(ctx context.Context) {
	wait := UntilNext(s.now(), s.hour, s.minute)
	s.logger.Info().Dur("wait", wait).Msg("Scheduler started")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(UntilNext(s.now(), s.hour, s.minute))
		}
	}
}

func (s *DailyScheduler) runOnce(ctx context.Context) {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	s.job(runCtx)
	s.logger.Info().Dur("elapsed", s.now().Sub(start)).Msg("Scheduled run finished")
}
