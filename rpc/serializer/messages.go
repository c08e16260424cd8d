package serializer

import (
	"fmt"
	"github.com/ValentinKolb/fbook/lib/booking"
	"github.com/ValentinKolb/fbook/rpc/common"
	"math"
	"time"
)

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// EncodeRequest serializes a request into a complete envelope
func EncodeRequest(requestID uint32, req common.Request) ([]byte, error) {
	payload := NewWriteBuffer()

	if err := encodeRequestPayload(payload, req); err != nil {
		return nil, err
	}

	return Envelope{
		RequestID: requestID,
		MsgType:   req.MsgType(),
		Payload:   payload.Bytes(),
	}.Marshal()
}

// DecodeRequest parses a request envelope and its payload. This is the inverse of
// EncodeRequest and is used by responders.
func DecodeRequest(data []byte) (uint32, common.Request, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return 0, nil, err
	}

	buf := NewReadBuffer(env.Payload)
	req, err := decodeRequestPayload(env.MsgType, buf)
	if err != nil {
		return env.RequestID, nil, err
	}
	if buf.Remaining() != 0 {
		return env.RequestID, nil, &common.DecodeError{Offset: envelopeHeaderSize + buf.Offset(), Err: common.ErrFrameMismatch}
	}
	return env.RequestID, req, nil
}

func encodeRequestPayload(b *WireBuffer, req common.Request) error {
	switch r := req.(type) {
	case common.QueryAvailabilityRequest:
		return encodeQueryAvailability(b, &r)
	case *common.QueryAvailabilityRequest:
		return encodeQueryAvailability(b, r)
	case common.BookRequest:
		return encodeBook(b, &r)
	case *common.BookRequest:
		return encodeBook(b, r)
	case common.ChangeBookingRequest:
		encodeChangeBooking(b, &r)
	case *common.ChangeBookingRequest:
		encodeChangeBooking(b, r)
	case common.MonitorRequest:
		return encodeMonitor(b, &r)
	case *common.MonitorRequest:
		return encodeMonitor(b, r)
	case common.LastBookingTimeRequest:
		return b.WriteString(r.Facility)
	case *common.LastBookingTimeRequest:
		return b.WriteString(r.Facility)
	case common.ExtendBookingRequest:
		encodeExtendBooking(b, &r)
	case *common.ExtendBookingRequest:
		encodeExtendBooking(b, r)
	default:
		return &common.EncodeError{Field: "request", Err: fmt.Errorf("%w: %T", common.ErrUnknownMessageType, req)}
	}
	return nil
}

func encodeQueryAvailability(b *WireBuffer, r *common.QueryAvailabilityRequest) error {
	if err := b.WriteString(r.Facility); err != nil {
		return err
	}
	if len(r.Days) > math.MaxUint16 {
		return &common.EncodeError{Field: "days", Err: common.ErrValueOutOfRange}
	}
	b.WriteUint16(uint16(len(r.Days)))
	for _, day := range r.Days {
		if err := b.WriteTime(day); err != nil {
			return err
		}
	}
	return nil
}

func encodeBook(b *WireBuffer, r *common.BookRequest) error {
	if err := b.WriteString(r.Facility); err != nil {
		return err
	}
	if err := b.WriteTime(r.Start); err != nil {
		return err
	}
	return b.WriteTime(r.End)
}

func encodeChangeBooking(b *WireBuffer, r *common.ChangeBookingRequest) {
	b.WriteUint32(r.ConfirmationID)
	b.WriteUint32(uint32(r.OffsetMinutes))
}

func encodeMonitor(b *WireBuffer, r *common.MonitorRequest) error {
	if err := b.WriteString(r.Facility); err != nil {
		return err
	}
	b.WriteUint32(r.DurationSeconds)
	return nil
}

func encodeExtendBooking(b *WireBuffer, r *common.ExtendBookingRequest) {
	b.WriteUint32(r.ConfirmationID)
	b.WriteUint32(r.Minutes)
}

func decodeRequestPayload(t common.MessageType, b *WireBuffer) (common.Request, error) {
	var err error

	switch t {
	case common.MsgTQueryAvailability:
		r := &common.QueryAvailabilityRequest{}
		if r.Facility, err = b.ReadString(); err != nil {
			return nil, err
		}
		n, err := b.ReadUint16()
		if err != nil {
			return nil, err
		}
		r.Days = make([]time.Time, 0, n)
		for i := 0; i < int(n); i++ {
			day, err := b.ReadTime()
			if err != nil {
				return nil, err
			}
			r.Days = append(r.Days, day)
		}
		return r, nil
	case common.MsgTBookFacility:
		r := &common.BookRequest{}
		if r.Facility, err = b.ReadString(); err != nil {
			return nil, err
		}
		if r.Start, err = b.ReadTime(); err != nil {
			return nil, err
		}
		if r.End, err = b.ReadTime(); err != nil {
			return nil, err
		}
		return r, nil
	case common.MsgTChangeBooking:
		r := &common.ChangeBookingRequest{}
		if r.ConfirmationID, err = b.ReadUint32(); err != nil {
			return nil, err
		}
		offset, err := b.ReadUint32()
		if err != nil {
			return nil, err
		}
		r.OffsetMinutes = int32(offset)
		return r, nil
	case common.MsgTMonitorFacility:
		r := &common.MonitorRequest{}
		if r.Facility, err = b.ReadString(); err != nil {
			return nil, err
		}
		if r.DurationSeconds, err = b.ReadUint32(); err != nil {
			return nil, err
		}
		return r, nil
	case common.MsgTGetLastBooking:
		r := &common.LastBookingTimeRequest{}
		if r.Facility, err = b.ReadString(); err != nil {
			return nil, err
		}
		return r, nil
	case common.MsgTExtendBooking:
		r := &common.ExtendBookingRequest{}
		if r.ConfirmationID, err = b.ReadUint32(); err != nil {
			return nil, err
		}
		if r.Minutes, err = b.ReadUint32(); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, &common.DecodeError{Offset: 4, Err: common.ErrUnknownMessageType}
	}
}

// --------------------------------------------------------------------------
// Responses
// --------------------------------------------------------------------------

// EncodeSuccess serializes a Success response carrying res
func EncodeSuccess(requestID uint32, res common.Result) ([]byte, error) {
	body := NewWriteBuffer()

	if err := encodeResultPayload(body, res); err != nil {
		return nil, err
	}
	return encodeResponse(requestID, common.MsgTSuccess, body.Bytes())
}

// EncodeError serializes an Error response carrying a human readable message
func EncodeError(requestID uint32, message string) ([]byte, error) {
	body := NewWriteBuffer()
	if err := body.WriteString(message); err != nil {
		return nil, err
	}
	return encodeResponse(requestID, common.MsgTError, body.Bytes())
}

// DecodeResult decodes the body of a Success response into out, which must be a
// pointer to one of the result types of the common package. Trailing bytes after
// the payload are rejected.
func DecodeResult(resp *Response, out common.Result) error {
	if err := resp.Err(); err != nil {
		return err
	}

	b := resp.Body
	var err error

	switch r := out.(type) {
	case *common.QueryAvailabilityResult:
		n, err := b.ReadUint16()
		if err != nil {
			return err
		}
		r.Slots = make([]booking.TimeSlot, 0, n)
		for i := 0; i < int(n); i++ {
			slot, err := readSlot(b)
			if err != nil {
				return err
			}
			r.Slots = append(r.Slots, slot)
		}
	case *common.BookResult:
		if r.ConfirmationID, err = b.ReadUint32(); err != nil {
			return err
		}
	case *common.ChangeBookingResult:
		if r.Message, err = b.ReadString(); err != nil {
			return err
		}
	case *common.MonitorResult:
		if r.Message, err = b.ReadString(); err != nil {
			return err
		}
	case *common.LastBookingTimeResult:
		last, err := b.ReadUint32()
		if err != nil {
			return err
		}
		if last != 0 {
			r.LastEnd = time.Unix(int64(last), 0)
		}
		if r.Status, err = b.ReadString(); err != nil {
			return err
		}
	case *common.ExtendBookingResult:
		if r.NewEnd, err = b.ReadTime(); err != nil {
			return err
		}
		if r.Message, err = b.ReadString(); err != nil {
			return err
		}
	default:
		return &common.DecodeError{Offset: b.Offset(), Err: fmt.Errorf("%w: %T", common.ErrUnknownMessageType, out)}
	}

	if b.Remaining() != 0 {
		return &common.DecodeError{Offset: b.Offset(), Err: common.ErrFrameMismatch}
	}
	return nil
}

func encodeResultPayload(b *WireBuffer, res common.Result) error {
	switch r := res.(type) {
	case *common.QueryAvailabilityResult:
		if len(r.Slots) > math.MaxUint16 {
			return &common.EncodeError{Field: "slots", Err: common.ErrValueOutOfRange}
		}
		b.WriteUint16(uint16(len(r.Slots)))
		for _, slot := range r.Slots {
			if err := writeSlot(b, slot); err != nil {
				return err
			}
		}
	case *common.BookResult:
		b.WriteUint32(r.ConfirmationID)
	case *common.ChangeBookingResult:
		return b.WriteString(r.Message)
	case *common.MonitorResult:
		return b.WriteString(r.Message)
	case *common.LastBookingTimeResult:
		if r.LastEnd.IsZero() {
			b.WriteUint32(0)
		} else if err := b.WriteTime(r.LastEnd); err != nil {
			return err
		}
		return b.WriteString(r.Status)
	case *common.ExtendBookingResult:
		if err := b.WriteTime(r.NewEnd); err != nil {
			return err
		}
		return b.WriteString(r.Message)
	default:
		return &common.EncodeError{Field: "result", Err: fmt.Errorf("%w: %T", common.ErrUnknownMessageType, res)}
	}
	return nil
}

// --------------------------------------------------------------------------
// Monitor Updates
// --------------------------------------------------------------------------

// EncodeMonitorUpdate serializes a server-initiated update. Updates always carry
// request id 0 and the Success tag.
func EncodeMonitorUpdate(u booking.Update) ([]byte, error) {
	body := NewWriteBuffer()
	if err := body.WriteString(u.Message); err != nil {
		return nil, err
	}
	body.WriteUint8(uint8(u.Op))
	body.WriteUint32(u.ConfirmationID)
	if err := writeSlot(body, u.Slot); err != nil {
		return nil, err
	}
	if u.Op.HasPrevious() {
		if u.Previous == nil {
			return nil, &common.EncodeError{Field: "previous", Err: common.ErrValueOutOfRange}
		}
		if err := writeSlot(body, *u.Previous); err != nil {
			return nil, err
		}
	}
	return encodeResponse(common.UnsolicitedRequestID, common.MsgTSuccess, body.Bytes())
}

// DecodeMonitorUpdate parses a server-initiated update datagram
func DecodeMonitorUpdate(data []byte) (booking.Update, error) {
	resp, err := ParseResponse(data)
	if err != nil {
		return booking.Update{}, err
	}
	if resp.RequestID != common.UnsolicitedRequestID {
		return booking.Update{}, &common.DecodeError{Offset: 0, Err: common.ErrRequestIDMismatch}
	}
	if err := resp.Err(); err != nil {
		return booking.Update{}, err
	}

	b := resp.Body
	var u booking.Update

	if u.Message, err = b.ReadString(); err != nil {
		return booking.Update{}, err
	}
	op, err := b.ReadUint8()
	if err != nil {
		return booking.Update{}, err
	}
	u.Op = booking.Operation(op)
	if u.ConfirmationID, err = b.ReadUint32(); err != nil {
		return booking.Update{}, err
	}
	if u.Slot, err = readSlot(b); err != nil {
		return booking.Update{}, err
	}
	if u.Op.HasPrevious() {
		prev, err := readSlot(b)
		if err != nil {
			return booking.Update{}, err
		}
		u.Previous = &prev
	}
	if b.Remaining() != 0 {
		return booking.Update{}, &common.DecodeError{Offset: b.Offset(), Err: common.ErrFrameMismatch}
	}
	return u, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func writeSlot(b *WireBuffer, s booking.TimeSlot) error {
	if err := b.WriteTime(s.Start); err != nil {
		return err
	}
	return b.WriteTime(s.End)
}

func readSlot(b *WireBuffer) (booking.TimeSlot, error) {
	start, err := b.ReadTime()
	if err != nil {
		return booking.TimeSlot{}, err
	}
	end, err := b.ReadTime()
	if err != nil {
		return booking.TimeSlot{}, err
	}
	return booking.TimeSlot{Start: start, End: end}, nil
}
