package executor

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// queueNode is one element of the submission list
type queueNode[T any] struct {
	value *T
	next  atomic.Pointer[queueNode[T]]
}

// submissionQueue is an unbounded lock-free multi-producer single-consumer queue.
//
// Any number of goroutines may Push concurrently. A single dispatcher goroutine
// walks the list and hands the items to the channel returned by Recv, which is
// closed once the queue is closed and drained. Items pushed concurrently are
// ordered by which producer links its node first.
type submissionQueue[T any] struct {
	head   atomic.Pointer[queueNode[T]]
	tail   atomic.Pointer[queueNode[T]]
	out    chan *T
	closed atomic.Bool
	length atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

func newSubmissionQueue[T any]() *submissionQueue[T] {
	sentinel := &queueNode[T]{}

	q := &submissionQueue[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.dispatch()
	return q
}

// Push appends an item. It returns false if the item is nil or the queue is closed.
func (q *submissionQueue[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	n := &queueNode[T]{value: value}

	var backoff uint8
	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// a failed swap means another producer already advanced the tail
				q.tail.CompareAndSwap(tail, n)
				q.length.Add(1)
				q.wake()
				return true
			}
		} else {
			// help a producer that linked its node but has not moved the tail yet
			q.tail.CompareAndSwap(tail, next)
		}

		// spin first, then yield under contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// wake signals the dispatcher. Taking the lock closes the gap between the
// dispatcher's emptiness check and its Wait.
func (q *submissionQueue[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// dispatch is the single consumer of the list
func (q *submissionQueue[T]) dispatch() {
	defer close(q.out)

	for {
		drained := true

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			drained = false

			value := next.value
			q.head.Store(next)
			q.length.Add(-1)
			q.out <- value
			next.value = nil
		}

		if drained {
			if q.closed.Load() {
				return
			}

			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the channel the dispatcher delivers items to
func (q *submissionQueue[T]) Recv() <-chan *T {
	return q.out
}

// Close rejects further pushes. Queued items are still delivered.
func (q *submissionQueue[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

// Len returns the number of items not yet handed to the channel
func (q *submissionQueue[T]) Len() int {
	return int(q.length.Load())
}
