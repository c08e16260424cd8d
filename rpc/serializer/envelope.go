package serializer

import (
	"encoding/binary"
	"github.com/ValentinKolb/fbook/rpc/common"
)

const (
	// envelopeHeaderSize is 4 bytes request id + 1 byte message type + 2 bytes payload length
	envelopeHeaderSize = 7
	// responseHeaderSize is 4 bytes request id + 1 byte status
	responseHeaderSize = 5
)

// --------------------------------------------------------------------------
// Request Envelope
// --------------------------------------------------------------------------

// Envelope is the framed unit a client sends:
//
//	request_id:u32 message_type:u8 payload_len:u16 payload:u8[payload_len]
//
// The explicit payload length lets the receiver detect truncated or padded
// datagrams independent of the packet boundary.
type Envelope struct {
	RequestID uint32
	MsgType   common.MessageType
	Payload   []byte
}

// Marshal serializes the envelope. Payloads longer than 65535 bytes are rejected.
func (e Envelope) Marshal() ([]byte, error) {
	if len(e.Payload) > common.MaxPayloadLength {
		return nil, &common.EncodeError{Field: "payload", Err: common.ErrPayloadTooLarge}
	}

	buf := &WireBuffer{data: make([]byte, 0, envelopeHeaderSize+len(e.Payload))}
	buf.WriteUint32(e.RequestID)
	buf.WriteUint8(uint8(e.MsgType))
	buf.WriteUint16(uint16(len(e.Payload)))
	buf.WriteBytes(e.Payload)
	return buf.Bytes(), nil
}

// ParseEnvelope parses a request datagram. The declared payload length must match
// the number of remaining bytes exactly and the tag must be a request tag.
func ParseEnvelope(data []byte) (Envelope, error) {
	buf := NewReadBuffer(data)

	requestID, err := buf.ReadUint32()
	if err != nil {
		return Envelope{}, err
	}
	msgType, err := buf.ReadUint8()
	if err != nil {
		return Envelope{}, err
	}
	payloadLen, err := buf.ReadUint16()
	if err != nil {
		return Envelope{}, err
	}

	if int(payloadLen) != buf.Remaining() {
		return Envelope{}, &common.DecodeError{Offset: buf.Offset(), Err: common.ErrFrameMismatch}
	}
	if !common.MessageType(msgType).IsRequest() {
		return Envelope{}, &common.DecodeError{Offset: 4, Err: common.ErrUnknownMessageType}
	}

	payload, _ := buf.ReadBytes(int(payloadLen))
	return Envelope{
		RequestID: requestID,
		MsgType:   common.MessageType(msgType),
		Payload:   payload,
	}, nil
}

// PeekRequestID returns the request id of any datagram (request, response or update)
// without validating the rest of it.
func PeekRequestID(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, &common.DecodeError{Offset: 0, Err: common.ErrBufferUnderflow}
	}
	return binary.BigEndian.Uint32(data), nil
}

// --------------------------------------------------------------------------
// Response
// --------------------------------------------------------------------------

// Response is a parsed reply datagram:
//
//	request_id:u32 status:u8 body...
//
// The body of an Error response is a single String, the body of a Success
// response is the operation specific payload.
type Response struct {
	RequestID uint32
	Status    common.MessageType
	// Body is positioned after the header (and after the message for Error responses)
	Body *WireBuffer
	// Message holds the server message of an Error response
	Message string
}

// Err returns a *common.ApplicationError for Error responses and nil otherwise
func (r *Response) Err() error {
	if r.Status == common.MsgTError {
		return &common.ApplicationError{RequestID: r.RequestID, Message: r.Message}
	}
	return nil
}

// ParseResponse parses a reply datagram. Status tags other than Success and Error
// are a protocol violation.
func ParseResponse(data []byte) (*Response, error) {
	buf := NewReadBuffer(data)

	requestID, err := buf.ReadUint32()
	if err != nil {
		return nil, err
	}
	status, err := buf.ReadUint8()
	if err != nil {
		return nil, err
	}

	resp := &Response{
		RequestID: requestID,
		Status:    common.MessageType(status),
		Body:      buf,
	}

	switch resp.Status {
	case common.MsgTSuccess:
		return resp, nil
	case common.MsgTError:
		if resp.Message, err = buf.ReadString(); err != nil {
			return nil, err
		}
		if buf.Remaining() != 0 {
			return nil, &common.DecodeError{Offset: buf.Offset(), Err: common.ErrFrameMismatch}
		}
		return resp, nil
	default:
		return nil, &common.DecodeError{Offset: 4, Err: common.ErrUnknownMessageType}
	}
}

// encodeResponse frames a response body behind the request id and the status tag
func encodeResponse(requestID uint32, status common.MessageType, body []byte) ([]byte, error) {
	if responseHeaderSize+len(body) > common.MaxDatagramSize {
		return nil, &common.EncodeError{Field: "response", Err: common.ErrPayloadTooLarge}
	}
	buf := &WireBuffer{data: make([]byte, 0, responseHeaderSize+len(body))}
	buf.WriteUint32(requestID)
	buf.WriteUint8(uint8(status))
	buf.WriteBytes(body)
	return buf.Bytes(), nil
}
