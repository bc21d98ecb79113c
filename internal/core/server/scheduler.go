package server

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// CycleFunc runs one ingest-and-process cycle.
type CycleFunc func(ctx context.Context) error

// StatusSetter receives the outcome of each cycle.
type StatusSetter interface {
	SetServing(ok bool)
}

// Scheduler runs a cycle immediately and then once per interval until its
// context ends. Cycles never overlap.
type Scheduler struct {
	interval time.Duration
	cycle    CycleFunc
	status   StatusSetter
	logger   *zap.Logger
}

// NewScheduler builds a Scheduler. status may be nil.
func NewScheduler(interval time.Duration, cycle CycleFunc, status StatusSetter, logger *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if cycle == nil {
		return nil, errors.New("cycle cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{interval: interval, cycle: cycle, status: status, logger: logger}, nil
}

// Run blocks until ctx is done. A failed cycle marks the service
// NOT_SERVING; the next successful one restores SERVING.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runOnce(ctx, cycle)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, cycle int) {
	start := time.Now()
	err := s.cycle(ctx)
	if s.status != nil {
		s.status.SetServing(err == nil)
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("cycle failed", zap.Int("cycle", cycle), zap.Error(err))
		}
		return
	}
	s.logger.Info("cycle finished", zap.Int("cycle", cycle), zap.Duration("elapsed", time.Since(start)))
}
