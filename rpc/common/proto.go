package common

import (
	"github.com/ValentinKolb/fbook/lib/booking"
	"time"
)

// --------------------------------------------------------------------------
// Protocol Constants
// --------------------------------------------------------------------------

const (
	// DefaultTimeout is the time a transport waits for a reply before retrying
	DefaultTimeout = 3 * time.Second
	// DefaultRetries is the number of send attempts per request
	DefaultRetries = 3
	// MaxDatagramSize is the largest UDP payload that fits into a single IPv4 datagram
	MaxDatagramSize = 65507
	// MaxStringLength is the largest string representable with a u16 length prefix
	MaxStringLength = 0xFFFF
	// MaxPayloadLength is the largest payload representable with a u16 length field
	MaxPayloadLength = 0xFFFF
	// UnsolicitedRequestID marks server-initiated datagrams (monitor updates)
	UnsolicitedRequestID uint32 = 0
)

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType is the one byte tag that selects the payload schema of a message.
type MessageType uint8

const (
	MsgTUnknown MessageType = 0

	// Request tags

	MsgTQueryAvailability MessageType = 1 // Query free slots of a facility
	MsgTBookFacility      MessageType = 2 // Book a slot
	MsgTChangeBooking     MessageType = 3 // Move a booking by an offset
	MsgTMonitorFacility   MessageType = 4 // Register for facility updates
	MsgTGetLastBooking    MessageType = 5 // Get the end of the last booking
	MsgTExtendBooking     MessageType = 6 // Extend a booking

	// Response tags

	MsgTSuccess MessageType = 100 // Indicates a successful operation
	MsgTError   MessageType = 101 // Indicates an error occurred
)

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTQueryAvailability:
		return "queryAvailability"
	case MsgTBookFacility:
		return "bookFacility"
	case MsgTChangeBooking:
		return "changeBooking"
	case MsgTMonitorFacility:
		return "monitorFacility"
	case MsgTGetLastBooking:
		return "getLastBookingTime"
	case MsgTExtendBooking:
		return "extendBooking"
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// IsRequest reports whether t is one of the six request tags
func (t MessageType) IsRequest() bool {
	return t >= MsgTQueryAvailability && t <= MsgTExtendBooking
}

// IsResponse reports whether t is one of the two response tags
func (t MessageType) IsResponse() bool {
	return t == MsgTSuccess || t == MsgTError
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// Request is implemented by all request messages.
type Request interface {
	// MsgType returns the tag the request is sent with
	MsgType() MessageType
}

// QueryAvailabilityRequest asks for the free slots of a facility on the given days
type QueryAvailabilityRequest struct {
	Facility string
	Days     []time.Time
}

// BookRequest reserves [Start, End) on a facility
type BookRequest struct {
	Facility string
	Start    time.Time
	End      time.Time
}

// ChangeBookingRequest moves a booking by OffsetMinutes (sent as two's complement u32)
type ChangeBookingRequest struct {
	ConfirmationID uint32
	OffsetMinutes  int32
}

// MonitorRequest registers the sender for updates of a facility
type MonitorRequest struct {
	Facility        string
	DurationSeconds uint32
}

// LastBookingTimeRequest asks for the end of the latest booking of a facility
type LastBookingTimeRequest struct {
	Facility string
}

// ExtendBookingRequest extends a booking by Minutes
type ExtendBookingRequest struct {
	ConfirmationID uint32
	Minutes        uint32
}

func (QueryAvailabilityRequest) MsgType() MessageType { return MsgTQueryAvailability }
func (BookRequest) MsgType() MessageType              { return MsgTBookFacility }
func (ChangeBookingRequest) MsgType() MessageType     { return MsgTChangeBooking }
func (MonitorRequest) MsgType() MessageType           { return MsgTMonitorFacility }
func (LastBookingTimeRequest) MsgType() MessageType   { return MsgTGetLastBooking }
func (ExtendBookingRequest) MsgType() MessageType     { return MsgTExtendBooking }

// --------------------------------------------------------------------------
// Results (payload of a Success response)
// --------------------------------------------------------------------------

// Result is implemented by all success payloads.
type Result interface {
	// MsgType returns the tag of the request this result answers
	MsgType() MessageType
}

type QueryAvailabilityResult struct {
	Slots []booking.TimeSlot
}

type BookResult struct {
	ConfirmationID uint32
}

type ChangeBookingResult struct {
	Message string
}

type MonitorResult struct {
	Message string
}

// LastBookingTimeResult holds the end of the latest booking, the zero time means none
type LastBookingTimeResult struct {
	LastEnd time.Time
	Status  string
}

type ExtendBookingResult struct {
	NewEnd  time.Time
	Message string
}

func (QueryAvailabilityResult) MsgType() MessageType { return MsgTQueryAvailability }
func (BookResult) MsgType() MessageType              { return MsgTBookFacility }
func (ChangeBookingResult) MsgType() MessageType     { return MsgTChangeBooking }
func (MonitorResult) MsgType() MessageType           { return MsgTMonitorFacility }
func (LastBookingTimeResult) MsgType() MessageType   { return MsgTGetLastBooking }
func (ExtendBookingResult) MsgType() MessageType     { return MsgTExtendBooking }

// NewResult returns an empty result value matching a request tag, nil if the tag is unknown
func NewResult(t MessageType) Result {
	switch t {
	case MsgTQueryAvailability:
		return &QueryAvailabilityResult{}
	case MsgTBookFacility:
		return &BookResult{}
	case MsgTChangeBooking:
		return &ChangeBookingResult{}
	case MsgTMonitorFacility:
		return &MonitorResult{}
	case MsgTGetLastBooking:
		return &LastBookingTimeResult{}
	case MsgTExtendBooking:
		return &ExtendBookingResult{}
	default:
		return nil
	}
}
