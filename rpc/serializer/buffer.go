package serializer

import (
	"encoding/binary"
	"github.com/ValentinKolb/fbook/rpc/common"
	"math"
	"time"
	"unicode/utf8"
)

// WireBuffer is a byte container used to encode or decode exactly one message.
//
// A buffer created with NewWriteBuffer only grows: every Write* call appends to it.
// A buffer created with NewReadBuffer wraps received bytes and a read position: every
// Read* call consumes from it. A buffer is never used for both roles.
//
// All integers are unsigned and big-endian. Reads past the end of the data fail with a
// *common.DecodeError wrapping common.ErrBufferUnderflow and leave the position untouched.
type WireBuffer struct {
	data []byte
	pos  int
}

// NewWriteBuffer creates an empty buffer for encoding
func NewWriteBuffer() *WireBuffer {
	return &WireBuffer{data: make([]byte, 0, 64)}
}

// NewReadBuffer creates a buffer that decodes data. The slice is not copied.
func NewReadBuffer(data []byte) *WireBuffer {
	return &WireBuffer{data: data}
}

// --------------------------------------------------------------------------
// Write Methods
// --------------------------------------------------------------------------

// WriteUint8 appends one byte
func (b *WireBuffer) WriteUint8(v uint8) {
	b.data = append(b.data, v)
}

// WriteUint16 appends the low 16 bits of v. Larger values are truncated silently,
// callers have to range-check upstream.
func (b *WireBuffer) WriteUint16(v uint16) {
	b.data = binary.BigEndian.AppendUint16(b.data, v)
}

// WriteUint32 appends a 32-bit integer
func (b *WireBuffer) WriteUint32(v uint32) {
	b.data = binary.BigEndian.AppendUint32(b.data, v)
}

// WriteString appends a u16 byte length followed by the UTF-8 bytes of s.
// Strings longer than 65535 bytes can not be represented and are rejected.
func (b *WireBuffer) WriteString(s string) error {
	if len(s) > common.MaxStringLength {
		return &common.EncodeError{Field: "string", Err: common.ErrStringTooLong}
	}
	b.WriteUint16(uint16(len(s)))
	b.data = append(b.data, s...)
	return nil
}

// WriteTime appends t as u32 Unix seconds. Times before 1970 or after 2106 are rejected.
func (b *WireBuffer) WriteTime(t time.Time) error {
	sec := t.Unix()
	if sec < 0 || sec > math.MaxUint32 {
		return &common.EncodeError{Field: "time", Err: common.ErrTimeOutOfRange}
	}
	b.WriteUint32(uint32(sec))
	return nil
}

// WriteBytes appends raw bytes without a length prefix
func (b *WireBuffer) WriteBytes(p []byte) {
	b.data = append(b.data, p...)
}

// --------------------------------------------------------------------------
// Read Methods
// --------------------------------------------------------------------------

// ReadUint8 consumes one byte
func (b *WireBuffer) ReadUint8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// ReadUint16 consumes a 16-bit integer
func (b *WireBuffer) ReadUint16() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(b.data[b.pos:])
	b.pos += 2
	return v, nil
}

// ReadUint32 consumes a 32-bit integer
func (b *WireBuffer) ReadUint32() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(b.data[b.pos:])
	b.pos += 4
	return v, nil
}

// ReadString consumes a u16 length and exactly that many bytes of UTF-8.
// Malformed UTF-8 is reported as common.ErrInvalidUTF8, no replacement characters are substituted.
func (b *WireBuffer) ReadString() (string, error) {
	start := b.pos
	n, err := b.ReadUint16()
	if err != nil {
		return "", err
	}
	if err := b.need(int(n)); err != nil {
		b.pos = start
		return "", err
	}
	raw := b.data[b.pos : b.pos+int(n)]
	if !utf8.Valid(raw) {
		b.pos = start
		return "", &common.DecodeError{Offset: start, Err: common.ErrInvalidUTF8}
	}
	b.pos += int(n)
	return string(raw), nil
}

// ReadTime consumes u32 Unix seconds
func (b *WireBuffer) ReadTime() (time.Time, error) {
	v, err := b.ReadUint32()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(v), 0), nil
}

// ReadBytes consumes exactly n raw bytes. The returned slice aliases the buffer.
func (b *WireBuffer) ReadBytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Bytes returns the written bytes (write mode) or the wrapped bytes (read mode)
func (b *WireBuffer) Bytes() []byte {
	return b.data
}

// Len returns the total number of bytes in the buffer
func (b *WireBuffer) Len() int {
	return len(b.data)
}

// Remaining returns the number of unread bytes
func (b *WireBuffer) Remaining() int {
	return len(b.data) - b.pos
}

// Offset returns the current read position
func (b *WireBuffer) Offset() int {
	return b.pos
}

// need checks that n more bytes can be read
func (b *WireBuffer) need(n int) error {
	if n < 0 || b.Remaining() < n {
		return &common.DecodeError{Offset: b.pos, Err: common.ErrBufferUnderflow}
	}
	return nil
}
