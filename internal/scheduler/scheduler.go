// Package scheduler runs the periodic revalidation of every hosted account.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Revalidator is the part of the validator service the job needs.
// ownerID "" means every account.
type Revalidator interface {
	ValidateAll(ctx context.Context, ownerID string) (string, error)
}

// Scheduler wraps a cron runner with a single revalidation job.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	validate Revalidator
	timeout  time.Duration
	logger   *slog.Logger
}

// New parses schedule and registers the job. An empty schedule returns a nil
// Scheduler, and Start/Stop on nil are no-ops.
func New(schedule string, validate Revalidator, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, nil
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		// Overlapping runs are skipped: a slow Discord must not pile up sweeps.
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		schedule: schedule,
		validate: validate,
		timeout:  timeout,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("scheduler: parsing schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the job in the background.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.logger.Info("revalidation scheduled", slog.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts the cron runner and waits up to ctx for a running sweep.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("revalidation still running at shutdown")
	}
}

// Run performs one system-wide revalidation.
func (s *Scheduler) Run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if _, err := s.validate.ValidateAll(ctx, ""); err != nil {
		s.logger.Error("scheduled revalidation failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled revalidation finished", slog.Duration("duration", time.Since(start)))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
