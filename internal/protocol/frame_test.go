package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 83, payload))

	id, got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(83), id)
	assert.Equal(t, payload, got)
}

func TestFrame_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, 4, nil))

	id, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), id)
	assert.Empty(t, payload)
}

func TestFrame_Compressed(t *testing.T) {
	original := []byte("replay frame bundle bytes")
	deflated, err := Deflate(original)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write([]byte{18, 0, 1}) // packet 18, compressed
	buf.Write([]byte{byte(len(deflated)), 0, 0, 0})
	buf.Write(deflated)

	id, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(18), id)
	assert.Equal(t, original, payload)
}

func TestFrame_CompressedEmptyPayload(t *testing.T) {
	deflated, err := Deflate(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 1})
	buf.Write([]byte{byte(len(deflated)), 0, 0, 0})
	buf.Write(deflated)

	id, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
	assert.Empty(t, payload)
}

func TestFrame_TruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 0, 10, 0, 0, 0}) // claims 10 bytes, has none

	_, _, err := ReadFrame(&buf)
	assert.Error(t, err)
}

func TestSplitFrame(t *testing.T) {
	buf := AppendFrame(nil, 7, []byte{1, 2})
	buf = AppendFrame(buf, 8, nil)

	id, payload, rest, err := SplitFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), id)
	assert.Equal(t, []byte{1, 2}, payload)

	id, payload, rest, err = SplitFrame(rest)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), id)
	assert.Empty(t, payload)
	assert.Empty(t, rest)

	_, _, _, err = SplitFrame([]byte{1, 2, 3})
	assert.Error(t, err)

	_, _, _, err = SplitFrame([]byte{1, 0, 0, 10, 0, 0, 0})
	assert.Error(t, err)
}

func TestAppendFrame(t *testing.T) {
	buf := AppendFrame(nil, 7, []byte{1, 2})
	buf = AppendFrame(buf, 8, nil)

	r := bytes.NewReader(buf)

	id, payload, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), id)
	assert.Equal(t, []byte{1, 2}, payload)

	id, payload, err = ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), id)
	assert.Empty(t, payload)
}
