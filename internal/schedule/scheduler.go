// Package schedule reruns the report pipeline at a fixed interval so the
// archived artifact keeps up with records arriving during the period.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/telhawk-systems/telhawk-reporting/internal/dispatch"
	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

const defaultInterval = time.Hour

// Runner executes one report run. Satisfied by dispatch.Dispatcher.
type Runner interface {
	Run(ctx context.Context, req dispatch.RunRequest) (*dispatch.RunResult, error)
}

// Scheduler periodically dispatches the report for the period containing
// the current time.
type Scheduler struct {
	runner   Runner
	basePath string
	mode     dispatch.Mode
	interval time.Duration
	logger   *logging.Logger
	now      func() time.Time
	stop     chan struct{}
	stopped  chan struct{}
}

func NewScheduler(runner Runner, basePath string, mode dispatch.Mode, interval time.Duration, logger *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		runner:   runner,
		basePath: basePath,
		mode:     mode,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the scheduler loop. This should be called in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	s.logger.Info("report scheduler started",
		logging.Component("schedule"),
		logging.Mode(string(s.mode)),
		slog.String("interval", s.interval.String()))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.stop:
			s.logger.Info("report scheduler stopped", logging.Component("schedule"))
			return
		case <-ctx.Done():
			s.logger.Info("report scheduler context cancelled", logging.Component("schedule"))
			return
		}
	}
}

// Stop signals the scheduler to stop and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.stopped
}

func (s *Scheduler) runOnce(ctx context.Context) {
	period := models.PeriodOf(s.now())
	req := dispatch.RunRequest{BasePath: s.basePath, PeriodKey: period.Key(), Mode: s.mode}

	if _, err := s.runner.Run(ctx, req); err != nil {
		s.logger.Error("scheduled run failed",
			logging.Component("schedule"),
			logging.Period(period.Key()),
			logging.Error(err))
	}
}
