package executor

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolInvalidWorkers(t *testing.T) {
	_, err := NewPool(0)
	assert.Error(t, err)
}

func TestPoolRunsTasks(t *testing.T) {
	p, err := NewPool(2)
	require.NoError(t, err)
	defer p.Close()

	f, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPoolBoundedConcurrency(t *testing.T) {
	const (
		workers = 3
		tasks   = 20
	)

	p, err := NewPool(workers)
	require.NoError(t, err)
	defer p.Close()

	var active, peak atomic.Int64
	futures := make([]*Future, 0, tasks)

	for i := 0; i < tasks; i++ {
		f, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil, nil
		})
		require.NoError(t, err)
		futures = append(futures, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range futures {
		_, err := f.Wait(ctx)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, peak.Load(), int64(workers))
	assert.Equal(t, uint64(tasks), p.Completed())
	assert.Equal(t, workers, p.Workers())
}

func TestPoolTaskError(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Close()

	boom := errors.New("boom")
	_, err = Run(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPoolRecoversPanic(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Close()

	_, err = Run(context.Background(), p, func(ctx context.Context) (int, error) {
		panic("kaputt")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaputt")

	// the worker survived
	v, err := Run(context.Background(), p, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestPoolSkipsCancelledTasks(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	f, err := p.Submit(ctx, func(ctx context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	require.NoError(t, err)

	<-f.Done()
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestFutureWaitContext(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Close()

	release := make(chan struct{})
	f, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	_, err = f.Wait(context.Background())
	assert.NoError(t, err)
}

func TestPoolCloseDrainsQueue(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)

	var count atomic.Int64
	for i := 0; i < 10; i++ {
		_, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
			count.Add(1)
			return nil, nil
		})
		require.NoError(t, err)
	}

	p.Close()
	assert.Equal(t, int64(10), count.Load())

	_, err = p.Submit(context.Background(), func(ctx context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrPoolClosed)

	// idempotent
	p.Close()
}
