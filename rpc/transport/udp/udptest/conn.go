package udptest

import (
	"net"
	"sync"
	"time"
)

// Responder computes the datagrams sent back for one written datagram.
// Returning nil means the request is lost.
type Responder func(req []byte) [][]byte

// PacketConn is an in-memory net.PacketConn. Every WriteTo is recorded and passed
// to the Responder, its replies are queued for ReadFrom.
type PacketConn struct {
	mu        sync.Mutex
	responder Responder
	writes    [][]byte
	writeErr  error

	inbox     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// Addr is the address reported for the local end and for every received datagram
var Addr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}

// NewPacketConn creates a connection answering with responder (may be nil)
func NewPacketConn(responder Responder) *PacketConn {
	return &PacketConn{
		responder: responder,
		inbox:     make(chan []byte, 1024),
		closed:    make(chan struct{}),
	}
}

// SetWriteError makes every following WriteTo fail with err
func (c *PacketConn) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// Writes returns copies of all datagrams written so far
func (c *PacketConn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// WriteCount returns the number of successful writes
func (c *PacketConn) WriteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// Deliver queues a datagram for ReadFrom, as if it had arrived from the server
func (c *PacketConn) Deliver(data []byte) {
	select {
	case c.inbox <- data:
	case <-c.closed:
	}
}

// DeliverAfter queues a datagram after the delay
func (c *PacketConn) DeliverAfter(delay time.Duration, data []byte) {
	time.AfterFunc(delay, func() { c.Deliver(data) })
}

func (c *PacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case data := <-c.inbox:
		return copy(p, data), Addr, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *PacketConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	data := make([]byte, len(p))
	copy(data, p)

	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return 0, err
	}
	c.writes = append(c.writes, data)
	responder := c.responder
	c.mu.Unlock()

	if responder != nil {
		for _, reply := range responder(data) {
			c.Deliver(reply)
		}
	}
	return len(p), nil
}

func (c *PacketConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *PacketConn) LocalAddr() net.Addr                { return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000} }
func (c *PacketConn) SetDeadline(_ time.Time) error      { return nil }
func (c *PacketConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *PacketConn) SetWriteDeadline(_ time.Time) error { return nil }

// --------------------------------------------------------------------------
// Connector
// --------------------------------------------------------------------------

// Connector hands out a fixed PacketConn. It satisfies udp.IPacketConnector.
type Connector struct {
	Conn net.PacketConn
}

func (c Connector) Listen(_ string) (net.PacketConn, error) {
	return c.Conn, nil
}

func (c Connector) Resolve(_ string) (net.Addr, error) {
	return Addr, nil
}

func (c Connector) GetName() string {
	return "memory"
}
