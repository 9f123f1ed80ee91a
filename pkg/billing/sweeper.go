package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultSweepSchedule  = "*/5 * * * *"
	defaultSweepBatchSize = 100
	sweepTimeout          = time.Minute
)

// GraceSweeper periodically cancels subscriptions whose payment grace period
// has lapsed. It is the background counterpart to Service.ProcessExpiredGracePeriods.
type GraceSweeper struct {
	svc       Service
	cron      *cron.Cron
	logger    *slog.Logger
	schedule  string
	batchSize int
	now       func() time.Time

	mu      sync.Mutex
	started bool
}

// SweeperOption configures a GraceSweeper.
type SweeperOption func(*GraceSweeper)

// WithSweepSchedule overrides the cron schedule. The default runs every five
// minutes.
func WithSweepSchedule(schedule string) SweeperOption {
	return func(s *GraceSweeper) {
		if schedule != "" {
			s.schedule = schedule
		}
	}
}

// WithSweepBatchSize caps how many subscriptions a single sweep processes.
func WithSweepBatchSize(size int) SweeperOption {
	return func(s *GraceSweeper) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithSweepLogger overrides the default slog logger.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *GraceSweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweepClock overrides the time source used to pick the expiration cutoff.
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *GraceSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGraceSweeper creates a sweeper bound to the given billing service.
// Panics when svc is nil.
func NewGraceSweeper(svc Service, opts ...SweeperOption) *GraceSweeper {
	if svc == nil {
		panic("billing: service is required")
	}

	sweeper := &GraceSweeper{
		svc:       svc,
		cron:      cron.New(),
		logger:    slog.Default(),
		schedule:  defaultSweepSchedule,
		batchSize: defaultSweepBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(sweeper)
	}
	return sweeper
}

// Start schedules the sweep job and begins running it in the background.
func (s *GraceSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("billing: sweeper already started")
	}
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("billing: invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("grace period sweeper started",
		slog.String("schedule", s.schedule),
		slog.Int("batch_size", s.batchSize))
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *GraceSweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return errors.New("billing: sweeper not started")
	}

	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("grace period sweeper stopped")
	return nil
}

// Run starts the sweeper and returns a function suitable for errgroup.
func (s *GraceSweeper) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(); err != nil {
			return err
		}

		<-ctx.Done()

		return s.Stop()
	}
}

func (s *GraceSweeper) sweep() {
	// Sweeps run detached from the caller's lifecycle so a shutdown lets the
	// current batch finish.
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	processed, err := s.svc.ProcessExpiredGracePeriods(ctx, s.now(), s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "grace period sweep finished with errors",
			slog.Int("processed", processed),
			slog.String("error", err.Error()))
		return
	}
	if processed > 0 {
		s.logger.InfoContext(ctx, "grace period sweep completed",
			slog.Int("processed", processed))
	}
}
