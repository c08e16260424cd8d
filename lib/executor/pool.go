package executor

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"sync/atomic"
)

var Logger = logger.GetLogger(common.LoggerExecutor)

// ErrPoolClosed is returned by Submit after Close
var ErrPoolClosed = errors.New("executor: pool closed")

// Task is a unit of work. The context is the one passed to Submit.
type Task func(ctx context.Context) (any, error)

// --------------------------------------------------------------------------
// Future
// --------------------------------------------------------------------------

// Future is the pending result of a submitted task
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Done is closed when the task has finished
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task has finished or ctx is done. Giving up on the wait
// does not cancel the task.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) complete(value any, err error) {
	f.value, f.err = value, err
	close(f.done)
}

// --------------------------------------------------------------------------
// Pool
// --------------------------------------------------------------------------

type job struct {
	ctx    context.Context
	task   Task
	future *Future
}

// Pool runs submitted tasks on a fixed number of worker goroutines.
// Submissions go through a lock-free queue, so Submit never blocks.
type Pool struct {
	queue   *submissionQueue[job]
	workers int
	wg      sync.WaitGroup

	running   atomic.Int64
	completed atomic.Uint64
	closeOnce sync.Once
}

// NewPool starts a pool with the given number of workers
func NewPool(workers int) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("executor: worker count must be at least 1, got %d", workers)
	}

	p := &Pool{
		queue:   newSubmissionQueue[job](),
		workers: workers,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work(i)
	}

	Logger.Debugf("Started executor with %d workers", workers)
	return p, nil
}

// Submit schedules task and returns its Future
func (p *Pool) Submit(ctx context.Context, task Task) (*Future, error) {
	if task == nil {
		return nil, fmt.Errorf("executor: nil task")
	}

	f := &Future{done: make(chan struct{})}
	if !p.queue.Push(&job{ctx: ctx, task: task, future: f}) {
		return nil, ErrPoolClosed
	}
	return f, nil
}

func (p *Pool) work(id int) {
	defer p.wg.Done()

	for j := range p.queue.Recv() {
		p.running.Add(1)
		value, err := p.run(id, j)
		p.running.Add(-1)
		p.completed.Add(1)
		j.future.complete(value, err)
	}
}

func (p *Pool) run(id int, j *job) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Worker %d recovered from panic: %v", id, r)
			err = fmt.Errorf("executor: task panicked: %v", r)
		}
	}()

	// tasks whose caller already gave up are not started
	if err := j.ctx.Err(); err != nil {
		return nil, err
	}
	return j.task(j.ctx)
}

// Workers returns the configured number of workers
func (p *Pool) Workers() int {
	return p.workers
}

// Running returns the number of tasks currently executing
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Pending returns the number of tasks waiting for a worker
func (p *Pool) Pending() int {
	return p.queue.Len()
}

// Completed returns the number of finished tasks
func (p *Pool) Completed() uint64 {
	return p.completed.Load()
}

// Close stops accepting tasks, runs the queued ones and waits for the workers
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.queue.Close()
		p.wg.Wait()
		Logger.Debugf("Executor stopped after %d tasks", p.completed.Load())
	})
}

// Run submits fn and waits for its typed result
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	f, err := p.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	value, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	// value is nil when fn returned the zero value of an interface type
	if value == nil {
		return zero, nil
	}
	return value.(T), nil
}
