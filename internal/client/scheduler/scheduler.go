// Package scheduler runs the periodic jobs the engine never schedules itself:
// expired cache sweeps and queue drains while online.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	clientsync "github.com/iudanet/matsync/internal/client/sync"
)

// Sweeper removes expired cache entries
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Drainer runs one sync pass
type Drainer interface {
	Drain(ctx context.Context) (*clientsync.Result, error)
}

// Status reports connectivity
type Status interface {
	IsOnline() bool
}

// Config holds job intervals. A zero interval disables the job.
type Config struct {
	SweepInterval time.Duration
	SyncInterval  time.Duration
}

// Scheduler runs the periodic jobs until its context is canceled.
type Scheduler struct {
	sweeper Sweeper
	drainer Drainer
	status  Status
	logger  *slog.Logger
	cfg     Config
}

// New creates a scheduler. drainer and status may be nil: the drain job is then disabled.
func New(cfg Config, sweeper Sweeper, drainer Drainer, status Status, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sweeper: sweeper,
		drainer: drainer,
		status:  status,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run blocks until ctx is canceled. Job failures are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.sweeper != nil && s.cfg.SweepInterval > 0 {
		g.Go(func() error {
			return every(ctx, s.cfg.SweepInterval, s.Sweep)
		})
	}
	if s.drainer != nil && s.cfg.SyncInterval > 0 {
		g.Go(func() error {
			return every(ctx, s.cfg.SyncInterval, s.DrainIfOnline)
		})
	}

	s.logger.Info("Scheduler started",
		"sweep_interval", s.cfg.SweepInterval.String(),
		"sync_interval", s.cfg.SyncInterval.String(),
	)
	err := g.Wait()
	s.logger.Info("Scheduler stopped")

	return err
}

// Sweep runs one cache sweep
func (s *Scheduler) Sweep(ctx context.Context) {
	removed, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		s.logger.Warn("Cache sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("Expired cache entries removed", "count", removed)
	}
}

// DrainIfOnline runs one sync pass unless the client is offline
func (s *Scheduler) DrainIfOnline(ctx context.Context) {
	if s.status != nil && !s.status.IsOnline() {
		s.logger.Debug("Skipping scheduled drain - offline")
		return
	}

	// Ошибки прохода уже опубликованы как SyncError
	if _, err := s.drainer.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Scheduled drain failed", "error", err)
	}
}

func every(ctx context.Context, interval time.Duration, job func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			job(ctx)
		}
	}
}
