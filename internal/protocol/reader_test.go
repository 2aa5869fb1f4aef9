package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriter_RoundTrip(t *testing.T) {
	w := NewWriter(64)
	w.WriteUint8(0xFF)
	w.WriteInt8(-1)
	w.WriteBool(true)
	w.WriteUint16(0xBEEF)
	w.WriteInt16(-12345)
	w.WriteUint32(0xDEADBEEF)
	w.WriteInt32(-7)
	w.WriteUint64(1 << 40)
	w.WriteInt64(-(1 << 40))
	w.WriteFloat32(3.5)
	w.WriteFloat64(-0.25)

	r := NewReader(w.Bytes())

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), u8)

	s8, err := r.ReadInt8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), s8)

	b, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), u16)

	s16, err := r.ReadInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-12345), s16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	s32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), s32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)

	s64, err := r.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-(1 << 40)), s64)

	f32, err := r.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f32)

	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, -0.25, f64)

	assert.True(t, r.EOF())
}

func TestReader_String(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "ascii", value: "peppy"},
		{name: "unicode", value: "замок"},
		{name: "long", value: string(make([]byte, 300))}, // two ULEB bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(16)
			w.WriteString(tt.value)

			r := NewReader(w.Bytes())
			got, err := r.ReadString()
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
			assert.True(t, r.EOF())
		})
	}
}

func TestReader_StringNullMarker(t *testing.T) {
	r := NewReader([]byte{0x00})
	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "", s)
	assert.True(t, r.EOF())
}

func TestReader_StringBadMarker(t *testing.T) {
	r := NewReader([]byte{0x07})
	_, err := r.ReadString()
	assert.Error(t, err)
}

func TestReader_IntList(t *testing.T) {
	w := NewWriter(16)
	w.WriteIntList([]int32{2, -3, 1000})

	r := NewReader(w.Bytes())
	got, err := r.ReadIntList()
	require.NoError(t, err)
	assert.Equal(t, []int32{2, -3, 1000}, got)
}

func TestReader_Truncated(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_, err := r.ReadUint32()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))

	// Cursor must not advance past the failing read.
	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), u16)
}

func TestReader_Remaining(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	_, err := r.ReadUint8()
	require.NoError(t, err)

	rest := r.Remaining()
	assert.Equal(t, []byte{2, 3, 4}, rest)
	assert.True(t, r.EOF())
}
