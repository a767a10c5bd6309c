package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type visibilitySweepRunner interface {
	SweepVisibility(ctx context.Context) (int, error)
}

// VisibilitySweeper periodically runs the allocation sweep so exams enter
// their reveal window without any request traffic. The caller owns the
// lifecycle: Start launches the loop, Stop halts it.
type VisibilitySweeper struct {
	runner   visibilitySweepRunner
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewVisibilitySweeper constructs a sweeper. A non-positive interval
// falls back to one minute.
func NewVisibilitySweeper(runner visibilitySweepRunner, interval time.Duration, logger *zap.Logger) *VisibilitySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilitySweeper{runner: runner, interval: interval, logger: logger}
}

// Start launches the sweep loop. Calling Start on a running sweeper is a
// no-op.
func (s *VisibilitySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
	s.logger.Info("visibility sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight sweep to finish. Safe to
// call on a sweeper that was never started.
func (s *VisibilitySweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("visibility sweeper stopped")
}

func (s *VisibilitySweeper) sweep(ctx context.Context) {
	processed, err := s.runner.SweepVisibility(ctx)
	if err != nil {
		s.logger.Warn("visibility sweep failed", zap.Error(err))
		return
	}
	if processed > 0 {
		s.logger.Info("visibility sweep completed", zap.Int("exams", processed))
	}
}
