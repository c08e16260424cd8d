package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// encode errors (value not representable on the wire, rejected before sending)

	ErrStringTooLong   = errors.New("string exceeds 65535 bytes")
	ErrPayloadTooLarge = errors.New("payload exceeds 65535 bytes")
	ErrTimeOutOfRange  = errors.New("time not representable as u32 epoch seconds")
	ErrValueOutOfRange = errors.New("value out of range")

	// decode errors (malformed datagram, never partially interpreted)

	ErrBufferUnderflow    = errors.New("buffer underflow")
	ErrInvalidUTF8        = errors.New("invalid utf-8")
	ErrFrameMismatch      = errors.New("frame length mismatch")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrRequestIDMismatch  = errors.New("response request id does not match request")

	// transport errors

	ErrTimeout         = errors.New("no response")
	ErrIO              = errors.New("socket failure")
	ErrTransportClosed = errors.New("transport is closed")
)

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// EncodeError reports a value that can not be represented in the wire format.
type EncodeError struct {
	Field string // Name of the offending field
	Err   error  // One of the encode sentinel errors
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Field, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed datagram.
type DecodeError struct {
	Offset int   // Read position at which decoding failed
	Err    error // One of the decode sentinel errors
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportErrorKind distinguishes the two transport failure modes
type TransportErrorKind uint8

const (
	TransportTimeout TransportErrorKind = iota // retry budget exhausted
	TransportIO                                // socket or OS failure
)

// TransportError reports that no response could be obtained for a request.
type TransportError struct {
	Kind     TransportErrorKind
	Attempts int   // Attempts made before giving up
	Err      error // Underlying cause, nil for timeouts
}

func (e *TransportError) Error() string {
	if e.Kind == TransportTimeout {
		return fmt.Sprintf("no response after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("socket failure on attempt %d: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTimeout) and errors.Is(err, ErrIO) work on the kind
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == TransportTimeout
	case ErrIO:
		return e.Kind == TransportIO
	}
	return false
}

// ApplicationError is a failed business outcome reported by the server with an
// Error-tagged response. The exchange itself succeeded.
type ApplicationError struct {
	RequestID uint32
	Message   string // Server supplied text, verbatim
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// IsApplicationError reports whether err carries a server supplied error message
func IsApplicationError(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr)
}
