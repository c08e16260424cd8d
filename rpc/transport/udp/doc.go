// Package udp implements the client transport of the facility-booking protocol on
// top of a UDP socket. UDP gives no delivery guarantee, so the transport adds
// application-level timeouts and a bounded number of retransmissions.
//
// The package focuses on:
//   - Sending framed requests and correlating replies by request id
//   - Bounded retries with a per-attempt timeout
//   - Fault injection through a configurable drop probability
//
// Key Components:
//
//   - ClientTransport: Implements transport.IRPCClientTransport. One reader goroutine
//     owns the socket and hands every reply to the call registered for its request id
//     (an xsync map of buffered channels). Replies without a waiting call are logged,
//     counted and discarded, so a late reply of an earlier request can never be taken
//     for the reply of the current one. Datagrams with request id 0 are server pushes
//     and are fanned out to subscribers.
//
//   - RequestIDAllocator: Mutex protected counter starting at 1. It wraps on overflow
//     and skips the reserved id 0.
//
//   - Drop simulation: Before each attempt a value is drawn from the RandomSource, if
//     it is below the drop rate the datagram is not sent and the attempt waits out
//     its timeout. Inject a seeded source with WithRandomSource for reproducible runs.
//
//   - Metrics: Every transport owns a VictoriaMetrics set with attempt, retry, drop,
//     timeout and unmatched reply counters and a call duration histogram (see Stats
//     and WriteMetrics).
//
// Per-call overrides of retries and timeout are passed in transport.SendOptions and
// never affect other calls.
//
// Usage:
//
//	t := udp.NewUDPClientTransport()
//	if err := t.Connect(config); err != nil { ... }
//	defer t.Close()
//
//	resp, err := t.Send(ctx, frame, transport.SendOptions{Timeout: time.Second})
//
// The udptest subpackage provides an in-memory net.PacketConn and a loopback server
// for tests.
package udp
