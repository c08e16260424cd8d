package transport

import (
	"context"
	"github.com/ValentinKolb/fbook/rpc/common"
	"time"
)

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// SendOptions overrides the session defaults for a single call.
// Zero values select the configured default.
type SendOptions struct {
	// Retries is the maximum number of send attempts (>= 1)
	Retries int
	// Timeout is the time to wait for a reply per attempt (> 0)
	Timeout time.Duration
}

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// NextRequestID returns a fresh request id for this session
	NextRequestID() uint32
	// Send delivers one framed request and returns the raw reply datagram.
	// It fails with a *common.TransportError once the retry budget is exhausted
	// or the socket fails.
	Send(ctx context.Context, req []byte, opts SendOptions) (resp []byte, err error)
	// Subscribe returns a channel receiving server-initiated datagrams (request id 0).
	// The returned function cancels the subscription.
	Subscribe() (datagrams <-chan []byte, cancel func())
	// Close closes the transport and releases the local socket
	Close() error
}
