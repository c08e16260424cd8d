// Package executor runs user-initiated operations on a bounded set of worker
// goroutines, so a burst of requests never turns into an unbounded number of
// goroutines each holding a pending network call.
//
// Key Components:
//
//   - Pool: Fixed number of workers. Submit returns immediately with a Future,
//     Close drains the queue and waits for the workers.
//
//   - Future: Result of one task, Wait(ctx) blocks until it is available.
//
//   - Run: Generic helper that submits a typed function and waits for it.
//
// Submissions are stored in an unbounded lock-free multi-producer single-consumer
// queue. A dispatcher goroutine feeds the items to the workers.
package executor
