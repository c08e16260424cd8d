// Package common provides core data structures and utilities shared across
// the facility-booking RPC client. It defines the protocol constants, the
// message types, the error taxonomy and the client configuration.
//
// The package focuses on:
//   - Message-type tags and typed request/result messages for all operations
//   - Error types that keep encode, decode, transport and application failures apart
//   - Configuration of a client session
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - MessageType: The one byte tag of a message. Tags 1-6 select a request schema,
//     responses are tagged with exactly one of MsgTSuccess (100) or MsgTError (101).
//
//   - Request / Result: Typed payloads of the six operations. The serializer package
//     converts them to and from the wire format.
//
//   - EncodeError, DecodeError, TransportError, ApplicationError: The four failure
//     classes. Use errors.Is with the sentinel errors (ErrTimeout, ErrFrameMismatch, ...)
//     or errors.As with the types to tell them apart.
//
//   - ClientConfig: Server endpoint, timeout, retry budget, fault injection and
//     worker settings of one client session.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
