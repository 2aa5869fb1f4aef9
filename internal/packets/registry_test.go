package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/protocol"
)

func TestRegistry_ResolveNearest(t *testing.T) {
	reg := NewRegistry()
	for _, v := range []int{535, 504, 20120812} {
		version := v
		reg.RegisterDecoder(version, RequestPong, func(r *protocol.Reader) (any, error) {
			return version, nil
		})
	}

	tests := []struct {
		name     string
		observed int
		want     int
	}{
		{name: "closest legacy, older wins tie direction", observed: 900, want: 535},
		{name: "exact", observed: 504, want: 504},
		{name: "modern build resolves to modern", observed: 20130101, want: 20120812},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, _ := reg.Resolve(tt.observed)
			got, err := dec.Decode(RequestPong, protocol.NewReader(nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_ResolveTieGoesToOlder(t *testing.T) {
	reg := NewRegistry()
	for _, v := range []int{500, 600} {
		version := v
		reg.RegisterDecoder(version, RequestPong, func(r *protocol.Reader) (any, error) {
			return version, nil
		})
	}

	// 550 равноудалена от 500 и 600 — выигрывает более старая версия.
	dec, _ := reg.Resolve(550)
	got, err := dec.Decode(RequestPong, protocol.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, 500, got)
}

func TestRegistry_UnknownPacketDecodesToNil(t *testing.T) {
	dec, _ := Resolve(535)

	// b535 не знает CHANGE_FRIENDONLY_DMS — декодер должен вернуть nil без ошибки.
	v, err := dec.Decode(RequestChangeFriendonlyDMs, protocol.NewReader([]byte{1, 0, 0, 0}))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRegistry_UnknownPacketEncodeSkipped(t *testing.T) {
	_, enc := Resolve(535)

	_, ok, err := enc.Encode(ResponseUserPresenceBundle, []int32{1, 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_EncodeProducesFrame(t *testing.T) {
	_, enc := Resolve(20120812)

	frame, ok, err := enc.Encode(ResponseLoginReply, int32(5))
	require.NoError(t, err)
	require.True(t, ok)

	// u16 id | u8 compressed | u32 len | payload
	assert.Equal(t, []byte{5, 0, 0, 4, 0, 0, 0, 5, 0, 0, 0}, frame)
}

func TestRegistry_DefaultVersions(t *testing.T) {
	assert.Equal(t, []int{535, 20120812}, Default.Versions())
}
