package udptest

import (
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/ValentinKolb/fbook/rpc/serializer"
	"net"
	"sync"
	"sync/atomic"
)

// Handler answers one decoded request with a complete response datagram.
// Returning nil sends nothing.
type Handler func(requestID uint32, req common.Request) []byte

// Server is a loopback UDP responder speaking the booking protocol
type Server struct {
	conn     net.PacketConn
	handler  Handler
	received atomic.Int64
	ignore   atomic.Int64

	mu         sync.Mutex
	lastClient net.Addr

	wg sync.WaitGroup
}

// NewServer listens on an ephemeral loopback port and serves until Close
func NewServer(handler Handler) (*Server, error) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{conn: conn, handler: handler}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Host returns the IP the server listens on
func (s *Server) Host() string {
	return s.conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// Port returns the port the server listens on
func (s *Server) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Received returns the number of datagrams read, including ignored ones
func (s *Server) Received() int {
	return int(s.received.Load())
}

// IgnoreNext makes the server silently discard the next n requests
func (s *Server) IgnoreNext(n int) {
	s.ignore.Store(int64(n))
}

// Push sends a datagram to the client that sent the last request
func (s *Server) Push(data []byte) error {
	s.mu.Lock()
	to := s.lastClient
	s.mu.Unlock()
	if to == nil {
		return net.ErrClosed
	}
	_, err := s.conn.WriteTo(data, to)
	return err
}

// Close stops the server
func (s *Server) Close() error {
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	buf := make([]byte, common.MaxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		s.received.Add(1)

		s.mu.Lock()
		s.lastClient = addr
		s.mu.Unlock()

		if s.ignore.Load() > 0 {
			s.ignore.Add(-1)
			continue
		}

		requestID, req, err := serializer.DecodeRequest(buf[:n])
		var reply []byte
		if err != nil {
			if requestID != common.UnsolicitedRequestID {
				reply, _ = serializer.EncodeError(requestID, "malformed request: "+err.Error())
			}
		} else {
			reply = s.handler(requestID, req)
		}
		if reply != nil {
			_, _ = s.conn.WriteTo(reply, addr)
		}
	}
}

// --------------------------------------------------------------------------
// Reply helpers
// --------------------------------------------------------------------------

// Success encodes a success response and panics on encoding errors
func Success(requestID uint32, res common.Result) []byte {
	data, err := serializer.EncodeSuccess(requestID, res)
	if err != nil {
		panic(err)
	}
	return data
}

// Error encodes an error response and panics on encoding errors
func Error(requestID uint32, message string) []byte {
	data, err := serializer.EncodeError(requestID, message)
	if err != nil {
		panic(err)
	}
	return data
}
