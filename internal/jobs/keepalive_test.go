package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
)

func testPlayer(t *testing.T, id int32, transport session.Transport) *session.Player {
	t.Helper()

	client, err := session.ParseOsuClient("b20120812|0|0|aa:eth0:bb:cc:dd|0", session.Geo{})
	require.NoError(t, err)

	dec, enc := packets.Resolve(client.Version.Date)
	p := session.NewPlayer(transport, "127.0.0.1:1")
	p.Adopt(&db.User{ID: id, Name: "p", Activated: true}, client, dec, enc)
	return p
}

func hasPing(t *testing.T, p *session.Player) bool {
	t.Helper()
	data := p.Drain()
	for len(data) > 0 {
		id, _, rest, err := protocol.SplitFrame(data)
		require.NoError(t, err)
		if packets.Response(id) == packets.ResponsePing {
			return true
		}
		data = rest
	}
	return false
}

func TestKeepalive_RunStopsOnCancel(t *testing.T) {
	k := NewKeepalive(session.NewRegistry(), 10*time.Second, 45*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, k.Run(ctx))
}

func TestKeepalive_PingsIdleTCP(t *testing.T) {
	reg := session.NewRegistry()
	p := testPlayer(t, 1, session.TransportTCP)
	reg.Append(p)

	k := NewKeepalive(reg, 10*time.Second, 45*time.Second)

	k.Sweep(p.LastResponse().Add(5 * time.Second))
	assert.False(t, hasPing(t, p), "активная сессия пинг не получает")

	now := p.LastResponse().Add(11 * time.Second)
	k.Sweep(now)
	assert.True(t, hasPing(t, p))

	// повторный обход в пределах интервала пинг не дублирует
	k.Sweep(now.Add(time.Second))
	assert.False(t, hasPing(t, p))
}

func TestKeepalive_TimesOut(t *testing.T) {
	reg := session.NewRegistry()
	p := testPlayer(t, 1, session.TransportTCP)
	closed := false
	p.SetOnClose(func(pl *session.Player) {
		closed = true
		reg.Remove(pl)
	})
	reg.Append(p)

	k := NewKeepalive(reg, 10*time.Second, 45*time.Second)
	k.Sweep(p.LastResponse().Add(46 * time.Second))

	assert.True(t, closed)
	assert.Zero(t, reg.Len())
}

func TestKeepalive_HTTPOnlyTimesOut(t *testing.T) {
	reg := session.NewRegistry()
	p := testPlayer(t, 1, session.TransportHTTP)
	closed := false
	p.SetOnClose(func(*session.Player) { closed = true })
	reg.Append(p)

	k := NewKeepalive(reg, 10*time.Second, 45*time.Second)

	k.Sweep(p.LastResponse().Add(20 * time.Second))
	assert.False(t, hasPing(t, p), "http-сессии пинги не шлются")
	assert.False(t, closed)

	k.Sweep(p.LastResponse().Add(50 * time.Second))
	assert.True(t, closed)
}
