package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientsync "github.com/iudanet/matsync/internal/client/sync"
)

type countingSweeper struct {
	err   error
	calls atomic.Int32
}

func (s *countingSweeper) SweepExpired(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 1, s.err
}

type countingDrainer struct {
	err   error
	calls atomic.Int32
}

func (d *countingDrainer) Drain(ctx context.Context) (*clientsync.Result, error) {
	d.calls.Add(1)
	return &clientsync.Result{}, d.err
}

type fixedStatus bool

func (s fixedStatus) IsOnline() bool { return bool(s) }

func TestRun_RunsJobsUntilCanceled(t *testing.T) {
	sweeper := &countingSweeper{}
	drainer := &countingDrainer{}
	s := New(Config{SweepInterval: 5 * time.Millisecond, SyncInterval: 5 * time.Millisecond}, sweeper, drainer, fixedStatus(true), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2 && drainer.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_JobErrorsDoNotStopLoop(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store closed")}
	drainer := &countingDrainer{err: errors.New("pass aborted")}
	s := New(Config{SweepInterval: 5 * time.Millisecond, SyncInterval: 5 * time.Millisecond}, sweeper, drainer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3 && drainer.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestDrainIfOnline(t *testing.T) {
	drainer := &countingDrainer{}

	New(Config{}, nil, drainer, fixedStatus(false), nil).DrainIfOnline(context.Background())
	assert.Zero(t, drainer.calls.Load(), "offline skips the drain")

	New(Config{}, nil, drainer, fixedStatus(true), nil).DrainIfOnline(context.Background())
	assert.Equal(t, int32(1), drainer.calls.Load())
}

func TestRun_DisabledJobs(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(Config{SweepInterval: 0, SyncInterval: time.Millisecond}, sweeper, nil, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.Run(ctx))
	assert.Zero(t, sweeper.calls.Load())
}
