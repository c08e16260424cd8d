package udp

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/serializer"
	"github.com/ValentinKolb/fbook/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// --------------------------------------------------------------------------
// Socket abstraction
// --------------------------------------------------------------------------

// IPacketConnector creates the datagram socket and resolves the server endpoint.
// Tests replace it to run the transport over an in-memory net.PacketConn.
type IPacketConnector interface {
	// Listen binds a local datagram socket, an empty address means any port
	Listen(localAddr string) (net.PacketConn, error)
	// Resolve returns the address of the server endpoint (host:port)
	Resolve(endpoint string) (net.Addr, error)
	// GetName returns the name of the connector for logging
	GetName() string
}

type udpConnector struct{}

func (udpConnector) Listen(localAddr string) (net.PacketConn, error) {
	if localAddr == "" {
		localAddr = ":0"
	}
	return net.ListenPacket("udp", localAddr)
}

func (udpConnector) Resolve(endpoint string) (net.Addr, error) {
	return net.ResolveUDPAddr("udp", endpoint)
}

func (udpConnector) GetName() string {
	return "udp"
}

// --------------------------------------------------------------------------
// Client transport
// --------------------------------------------------------------------------

// Option configures a ClientTransport
type Option func(t *ClientTransport)

// WithConnector replaces the default UDP socket factory
func WithConnector(c IPacketConnector) Option {
	return func(t *ClientTransport) {
		t.connector = c
	}
}

// WithRandomSource injects the random source of the drop simulation
func WithRandomSource(r RandomSource) Option {
	return func(t *ClientTransport) {
		t.rnd = r
	}
}

// ClientTransport is the UDP implementation of transport.IRPCClientTransport.
//
// A single reader goroutine owns the read side of the socket and routes every reply
// to the call waiting for its request id. Replies nobody waits for (late replies of
// timed out calls, foreign datagrams) are counted and discarded. Datagrams with
// request id 0 are server pushes and go to the subscribers.
type ClientTransport struct {
	connector IPacketConnector
	rnd       RandomSource

	config  common.ClientConfig
	conn    net.PacketConn
	remote  net.Addr
	ids     *RequestIDAllocator
	drop    *dropSimulator
	metrics *transportMetrics

	// pending maps request ids to the channel of the waiting call
	pending *xsync.MapOf[uint32, chan []byte]

	subMu       sync.RWMutex
	subscribers map[uint64]chan []byte
	nextSubID   uint64

	connMu    sync.Mutex // serializes Connect and Close
	readErr   atomic.Pointer[error]
	connected atomic.Bool
	closed    atomic.Bool
	done      chan struct{} // closed when the reader goroutine exits
}

// NewUDPClientTransport creates a new, unconnected UDP client transport
func NewUDPClientTransport(opts ...Option) *ClientTransport {
	t := &ClientTransport{
		connector:   udpConnector{},
		ids:         NewRequestIDAllocator(),
		pending:     xsync.NewMapOf[uint32, chan []byte](),
		subscribers: make(map[uint64]chan []byte),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ transport.IRPCClientTransport = (*ClientTransport)(nil)

// Connect binds the local socket, resolves the server and starts the reader goroutine.
// A transport can only be connected once.
func (t *ClientTransport) Connect(config common.ClientConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.closed.Load() {
		return common.ErrTransportClosed
	}
	if t.connected.Load() {
		return fmt.Errorf("transport already connected")
	}

	endpoint := config.Endpoint()

	remote, err := t.connector.Resolve(endpoint)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", endpoint, err)
	}

	conn, err := t.connector.Listen(config.LocalAddr)
	if err != nil {
		return fmt.Errorf("failed to open %s socket: %w", t.connector.GetName(), err)
	}

	t.config = config
	t.remote = remote
	t.conn = conn
	t.drop = newDropSimulator(config.DropRate, config.DropSeed, t.rnd)
	t.metrics = newTransportMetrics(endpoint)
	t.connected.Store(true)

	go t.readDatagrams()

	Logger.Infof("%s transport bound to %s, server %s (timeout %s, retries %d, drop rate %.2f)",
		t.connector.GetName(), conn.LocalAddr(), remote, config.Timeout, config.RetryCount, config.DropRate)
	return nil
}

// NextRequestID returns a fresh request id
func (t *ClientTransport) NextRequestID() uint32 {
	return t.ids.Next()
}

// Send transmits req and waits for the reply with the same request id.
//
// Each attempt waits up to the timeout, after the last attempt a *common.TransportError
// of kind TransportTimeout is returned. A failing write is not retried and yields
// kind TransportIO. The context ends the wait early with ctx.Err().
func (t *ClientTransport) Send(ctx context.Context, req []byte, opts transport.SendOptions) ([]byte, error) {
	if !t.connected.Load() {
		return nil, fmt.Errorf("transport not connected")
	}
	if t.closed.Load() {
		return nil, common.ErrTransportClosed
	}

	retries, timeout, err := t.resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	if len(req) > common.MaxDatagramSize {
		return nil, &common.EncodeError{Field: "datagram", Err: common.ErrPayloadTooLarge}
	}
	requestID, err := serializer.PeekRequestID(req)
	if err != nil {
		return nil, err
	}
	if requestID == common.UnsolicitedRequestID {
		return nil, fmt.Errorf("request id %d is reserved for server updates", requestID)
	}

	respChan := make(chan []byte, 1)
	if _, loaded := t.pending.LoadOrStore(requestID, respChan); loaded {
		return nil, fmt.Errorf("request id %d is already in flight", requestID)
	}
	defer t.pending.Delete(requestID)

	t.metrics.requests.Inc()
	defer t.metrics.observe(time.Now())

	for attempt := 1; attempt <= retries; attempt++ {
		t.metrics.attempts.Inc()
		if attempt > 1 {
			t.metrics.retries.Inc()
		}

		if t.drop.shouldDrop() {
			// simulated loss: nothing is written, the attempt still costs a timeout
			t.metrics.drops.Inc()
			Logger.Infof("Dropped request %d (attempt %d/%d)", requestID, attempt, retries)
		} else if _, err := t.conn.WriteTo(req, t.remote); err != nil {
			if t.closed.Load() {
				return nil, common.ErrTransportClosed
			}
			Logger.Errorf("Failed to send request %d: %v", requestID, err)
			return nil, &common.TransportError{Kind: common.TransportIO, Attempts: attempt, Err: err}
		}

		resp, err := t.await(ctx, respChan, timeout, attempt)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}

		Logger.Debugf("Request %d attempt %d/%d timed out after %s", requestID, attempt, retries, timeout)
	}

	t.metrics.timeouts.Inc()
	Logger.Warningf("No response for request %d after %d attempts", requestID, retries)
	return nil, &common.TransportError{Kind: common.TransportTimeout, Attempts: retries}
}

// resolveOptions applies the session defaults to the zero fields of opts
func (t *ClientTransport) resolveOptions(opts transport.SendOptions) (int, time.Duration, error) {
	retries, timeout := opts.Retries, opts.Timeout
	if retries == 0 {
		retries = t.config.RetryCount
	}
	if timeout == 0 {
		timeout = t.config.Timeout
	}
	if retries < 1 {
		return 0, 0, fmt.Errorf("retry count must be at least 1, got %d", retries)
	}
	if timeout <= 0 {
		return 0, 0, fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	return retries, timeout, nil
}

// await waits for one reply. A nil reply and nil error mean the attempt timed out.
func (t *ClientTransport) await(ctx context.Context, respChan <-chan []byte, timeout time.Duration, attempt int) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-respChan:
		return resp, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		if errPtr := t.readErr.Load(); errPtr != nil && !t.closed.Load() {
			return nil, &common.TransportError{Kind: common.TransportIO, Attempts: attempt, Err: *errPtr}
		}
		return nil, common.ErrTransportClosed
	}
}

// readDatagrams is the only reader of the socket
func (t *ClientTransport) readDatagrams() {
	defer t.closeSubscribers()
	defer close(t.done)

	buf := make([]byte, common.MaxDatagramSize)
	for {
		n, addr, err := t.conn.ReadFrom(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			Logger.Errorf("Failed to read from socket: %v", err)
			t.readErr.Store(&err)
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		t.dispatch(data, addr)
	}
}

// dispatch routes one datagram to its waiting call or to the subscribers
func (t *ClientTransport) dispatch(data []byte, from net.Addr) {
	requestID, err := serializer.PeekRequestID(data)
	if err != nil {
		t.metrics.malformed.Inc()
		Logger.Warningf("Discarding %d byte datagram from %v: %v", len(data), from, err)
		return
	}

	if requestID == common.UnsolicitedRequestID {
		t.publish(data)
		return
	}

	respChan, ok := t.pending.Load(requestID)
	if !ok {
		t.metrics.unmatched.Inc()
		Logger.Warningf("Received response for unknown request ID %d from %v", requestID, from)
		return
	}

	select {
	case respChan <- data:
	default:
		t.metrics.duplicates.Inc()
		Logger.Debugf("Discarding duplicate response for request ID %d", requestID)
	}
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

// subscriberBuffer is the number of updates queued per subscriber before new ones are dropped
const subscriberBuffer = 64

// Subscribe registers a receiver for server pushes. The channel is closed when the
// subscription is cancelled or the transport shuts down.
func (t *ClientTransport) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	t.subMu.Lock()
	if t.closed.Load() || t.readerStopped() {
		// nothing will ever be delivered
		t.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = ch
	t.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.subMu.Lock()
			defer t.subMu.Unlock()
			if ch, ok := t.subscribers[id]; ok {
				delete(t.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (t *ClientTransport) readerStopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *ClientTransport) publish(data []byte) {
	t.subMu.RLock()
	defer t.subMu.RUnlock()

	if len(t.subscribers) == 0 {
		t.metrics.unmatched.Inc()
		Logger.Debugf("Discarding server update, no subscribers")
		return
	}
	for id, ch := range t.subscribers {
		select {
		case ch <- data:
		default:
			Logger.Warningf("Subscriber %d is not keeping up, dropping update", id)
		}
	}
}

func (t *ClientTransport) closeSubscribers() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for id, ch := range t.subscribers {
		delete(t.subscribers, id)
		close(ch)
	}
}

// --------------------------------------------------------------------------
// Introspection & shutdown
// --------------------------------------------------------------------------

// LocalAddr returns the address of the bound socket, nil before Connect
func (t *ClientTransport) LocalAddr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Stats returns a snapshot of the transport counters
func (t *ClientTransport) Stats() Stats {
	if t.metrics == nil {
		return Stats{}
	}
	return t.metrics.snapshot()
}

// WriteMetrics writes the transport metrics in Prometheus text format
func (t *ClientTransport) WriteMetrics(w io.Writer) {
	if t.metrics != nil {
		t.metrics.writePrometheus(w)
	}
}

// Close releases the socket and stops the reader. Calls waiting for a reply fail
// with common.ErrTransportClosed. Close is idempotent.
func (t *ClientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !t.connected.Load() {
		t.closeSubscribers()
		return nil
	}

	err := t.conn.Close()
	<-t.done
	return err
}
