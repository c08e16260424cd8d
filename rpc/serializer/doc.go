// Package serializer implements the binary wire format of the facility-booking
// protocol. It converts the typed messages of the common package to and from the
// byte sequences carried in UDP datagrams.
//
// The package focuses on:
//   - A big-endian codec for fixed-width integers, length-prefixed UTF-8 strings
//     and u32 epoch timestamps
//   - Framing of requests into envelopes with an explicit payload length
//   - Strict decoding: malformed datagrams are rejected, never partially interpreted
//
// Key Components:
//
//   - WireBuffer: Append-only encoder or position-tracking decoder for one message.
//     Integer writes truncate to their width, string and time writes are range
//     checked and fail with a *common.EncodeError.
//
//   - Envelope: request_id:u32 message_type:u8 payload_len:u16 payload. ParseEnvelope
//     rejects frames whose declared length disagrees with the actual payload.
//
//   - Response: request_id:u32 status:u8 body. Status is either Success (100) or
//     Error (101), anything else is a protocol violation.
//
//   - EncodeRequest / DecodeResult: Typed codecs for the six operations, plus the
//     inverse functions (DecodeRequest, EncodeSuccess, EncodeError) used by responders
//     and test servers, and the codec of server-initiated monitor updates.
//
// Wire Format:
//
//	Envelope := request_id:u32 message_type:u8 payload_len:u16 payload:u8[payload_len]
//	Response := request_id:u32 status:u8 body
//	String   := len:u16 utf8_bytes:u8[len]
//	Time     := u32 // Unix epoch seconds
//
// Thread Safety:
//
//	A WireBuffer is not safe for concurrent use. All functions are stateless.
package serializer
