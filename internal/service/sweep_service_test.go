package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweepRunner struct {
	calls int64
}

func (r *countingSweepRunner) SweepVisibility(ctx context.Context) (int, error) {
	atomic.AddInt64(&r.calls, 1)
	return 0, nil
}

func TestSweeperRunsOnInterval(t *testing.T) {
	runner := &countingSweepRunner{}
	sweeper := NewVisibilitySweeper(runner, 10*time.Millisecond, nil)

	sweeper.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	sweeper.Stop()

	calls := atomic.LoadInt64(&runner.calls)
	assert.GreaterOrEqual(t, calls, int64(2), "sweep should fire repeatedly")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt64(&runner.calls), "no sweeps after Stop")
}

func TestSweeperStartIsIdempotent(t *testing.T) {
	runner := &countingSweepRunner{}
	sweeper := NewVisibilitySweeper(runner, 10*time.Millisecond, nil)

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())
	sweeper.Stop()
}

func TestSweeperStopWithoutStart(t *testing.T) {
	sweeper := NewVisibilitySweeper(&countingSweepRunner{}, time.Minute, nil)
	sweeper.Stop()
}
