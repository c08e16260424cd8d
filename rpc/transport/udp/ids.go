package udp

import (
	"sync"
)

// RequestIDAllocator issues monotonically increasing 32-bit request ids.
// The counter starts at 1 and wraps silently on overflow. Id 0 is reserved for
// server-initiated datagrams and is never issued.
//
// Thread-safe: Next may be called concurrently.
type RequestIDAllocator struct {
	mu   sync.Mutex
	next uint32
}

// NewRequestIDAllocator creates an allocator whose first id is 1
func NewRequestIDAllocator() *RequestIDAllocator {
	return &RequestIDAllocator{next: 1}
}

// Next returns the current counter value and increments it
func (a *RequestIDAllocator) Next() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	// skip the reserved id after a wrap (and for the zero value)
	if a.next == 0 {
		a.next = 1
	}
	id := a.next
	a.next++
	return id
}
