package serializer

import (
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func TestWireBufferRoundTrip(t *testing.T) {
	w := NewWriteBuffer()
	w.WriteUint8(0xAB)
	w.WriteUint16(0x1234)
	w.WriteUint32(0xDEADBEEF)
	require.NoError(t, w.WriteString("Lab_101"))
	require.NoError(t, w.WriteTime(time.Unix(1700000000, 0)))

	r := NewReadBuffer(w.Bytes())

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "Lab_101", s)

	ts, err := r.ReadTime()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts.Unix())

	assert.Equal(t, 0, r.Remaining())
}

func TestWireBufferBigEndian(t *testing.T) {
	w := NewWriteBuffer()
	w.WriteUint16(0x0102)
	w.WriteUint32(0x03040506)
	require.NoError(t, w.WriteString("ab"))

	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x00, 0x02, 'a', 'b'}, w.Bytes())
	assert.Equal(t, 10, w.Len())
}

func TestWireBufferStringLength(t *testing.T) {
	t.Run("EmptyString", func(t *testing.T) {
		w := NewWriteBuffer()
		require.NoError(t, w.WriteString(""))
		assert.Equal(t, []byte{0x00, 0x00}, w.Bytes())

		s, err := NewReadBuffer(w.Bytes()).ReadString()
		require.NoError(t, err)
		assert.Equal(t, "", s)
	})

	t.Run("MultiByteCharacters", func(t *testing.T) {
		w := NewWriteBuffer()
		require.NoError(t, w.WriteString("Café"))
		// length prefix counts bytes, not characters
		assert.Equal(t, []byte{0x00, 0x05}, w.Bytes()[:2])

		s, err := NewReadBuffer(w.Bytes()).ReadString()
		require.NoError(t, err)
		assert.Equal(t, "Café", s)
	})

	t.Run("MaxLength", func(t *testing.T) {
		w := NewWriteBuffer()
		require.NoError(t, w.WriteString(strings.Repeat("x", common.MaxStringLength)))
		assert.Equal(t, 2+common.MaxStringLength, w.Len())
	})

	t.Run("TooLong", func(t *testing.T) {
		w := NewWriteBuffer()
		err := w.WriteString(strings.Repeat("x", common.MaxStringLength+1))
		require.ErrorIs(t, err, common.ErrStringTooLong)

		var encErr *common.EncodeError
		assert.ErrorAs(t, err, &encErr)
		assert.Equal(t, 0, w.Len())
	})
}

func TestWireBufferTimeRange(t *testing.T) {
	w := NewWriteBuffer()
	assert.ErrorIs(t, w.WriteTime(time.Unix(-1, 0)), common.ErrTimeOutOfRange)
	assert.ErrorIs(t, w.WriteTime(time.Unix(1<<32, 0)), common.ErrTimeOutOfRange)
	assert.NoError(t, w.WriteTime(time.Unix(1<<32-1, 0)))
	assert.NoError(t, w.WriteTime(time.Unix(0, 0)))
}

func TestWireBufferUnderflow(t *testing.T) {
	t.Run("Integer", func(t *testing.T) {
		r := NewReadBuffer([]byte{0x01, 0x02, 0x03})
		_, err := r.ReadUint32()
		require.ErrorIs(t, err, common.ErrBufferUnderflow)

		var decErr *common.DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, 0, decErr.Offset)

		// position is unchanged, a smaller read still works
		assert.Equal(t, 0, r.Offset())
		v, err := r.ReadUint16()
		require.NoError(t, err)
		assert.Equal(t, uint16(0x0102), v)
	})

	t.Run("StringBody", func(t *testing.T) {
		r := NewReadBuffer([]byte{0x00, 0x05, 'a', 'b'})
		_, err := r.ReadString()
		require.ErrorIs(t, err, common.ErrBufferUnderflow)
		assert.Equal(t, 0, r.Offset())
	})

	t.Run("Empty", func(t *testing.T) {
		r := NewReadBuffer(nil)
		_, err := r.ReadUint8()
		assert.ErrorIs(t, err, common.ErrBufferUnderflow)
		_, err = r.ReadBytes(1)
		assert.ErrorIs(t, err, common.ErrBufferUnderflow)
	})
}

func TestWireBufferInvalidUTF8(t *testing.T) {
	r := NewReadBuffer([]byte{0x00, 0x02, 0xFF, 0xFE})
	_, err := r.ReadString()
	require.ErrorIs(t, err, common.ErrInvalidUTF8)
	assert.Equal(t, 0, r.Offset())
}
