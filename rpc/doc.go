// Package rpc is the communication layer between the fBook client and the facility
// booking server. Requests and replies are binary datagrams exchanged over UDP.
//
// The package is organized into several subpackages:
//
//   - common: Message type tags, request and result types, the error taxonomy,
//     client configuration and logging.
//
//   - serializer: The big-endian wire codec (WireBuffer), request framing (Envelope),
//     response parsing and the payload schema of every operation.
//
//   - transport: The client transport interface, the UDP implementation with
//     retries, request id demultiplexing and simulated packet loss (udp) and test
//     doubles (udp/udptest).
//
//   - client: The RPC client implementing booking.IBookingService on top of a
//     transport.
package rpc
