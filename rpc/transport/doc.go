// Package transport defines the interfaces and abstractions for RPC communication
// with the facility-booking server. It provides a common contract that all client
// transports fulfill, so the RPC client stays independent of the socket handling.
//
// The package focuses on:
//   - Defining a clear interface for the client transport layer
//   - Per-call overrides of the retry budget and timeout
//   - Delivery of server-initiated datagrams to subscribers
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles socket management, request ids, retries and reply correlation.
//
//   - SendOptions: Per-call retry budget and timeout. Overrides never change the
//     defaults seen by other calls.
//
// The only implementation is the udp subpackage.
package transport
