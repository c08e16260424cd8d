// Package booking defines the contract of the remote facility-booking service as seen
// by a client. It contains the domain types exchanged with the service and the
// IBookingService interface that all client implementations fulfill.
//
// The package focuses on:
//   - A protocol-agnostic description of the six booking operations
//   - Domain types (time slots, confirmation ids, monitor updates) independent
//     of their wire representation
//
// Key Components:
//
//   - IBookingService: Interface for querying availability, booking, changing,
//     extending and monitoring facilities.
//
//   - TimeSlot: A half-open interval [Start, End) of wall-clock time.
//
//   - Update: A server-initiated notification delivered while a facility is
//     monitored.
//
// The server side (availability computation, conflict detection) is not part of
// this package, only the contract both sides must honor.
package booking
