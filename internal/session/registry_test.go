package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/packets"
)

func TestRegistry_AppendLookup(t *testing.T) {
	reg := NewRegistry()
	p := loggedIn(t, 1000, "Cool Guy")

	displaced := reg.Append(p)
	require.Nil(t, displaced)

	assert.Same(t, p, reg.ByID(1000))
	assert.Same(t, p, reg.ByName("cool guy"))
	assert.Same(t, p, reg.ByName("COOL_GUY"))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_AppendDisplacesSameUser(t *testing.T) {
	reg := NewRegistry()
	first := loggedIn(t, 1000, "peppy")
	second := loggedIn(t, 1000, "peppy")

	require.Nil(t, reg.Append(first))
	displaced := reg.Append(second)

	assert.Same(t, first, displaced)
	assert.Same(t, second, reg.ByID(1000))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RemoveStaleSession(t *testing.T) {
	reg := NewRegistry()
	first := loggedIn(t, 1000, "peppy")
	second := loggedIn(t, 1000, "peppy")

	reg.Append(first)
	reg.Append(second)

	// вытесненная сессия не должна выбить новую при своём отключении
	assert.False(t, reg.Remove(first))
	assert.Same(t, second, reg.ByID(1000))

	assert.True(t, reg.Remove(second))
	assert.Nil(t, reg.ByID(1000))
	assert.False(t, reg.Remove(second))
}

func TestRegistry_ByToken(t *testing.T) {
	reg := NewRegistry()

	p := NewPlayer(TransportHTTP, "10.0.0.1")
	client, err := ParseOsuClient("b20120812|0|0|aa:eth0:bb:cc:dd|0", Geo{})
	require.NoError(t, err)
	dec, enc := packets.Resolve(client.Version.Date)
	p.Adopt(testUser(1001, "webby"), client, dec, enc)
	p.SetToken("tok-123")

	reg.Append(p)
	assert.Same(t, p, reg.ByToken("tok-123"))

	reg.Remove(p)
	assert.Nil(t, reg.ByToken("tok-123"))
}

func TestRegistry_CloseRemovesTokenIndex(t *testing.T) {
	reg := NewRegistry()

	p := NewPlayer(TransportHTTP, "10.0.0.1")
	client, err := ParseOsuClient("b20120812|0|0|aa:eth0:bb:cc:dd|0", Geo{})
	require.NoError(t, err)
	dec, enc := packets.Resolve(client.Version.Date)
	p.Adopt(testUser(1001, "webby"), client, dec, enc)
	p.SetToken("tok-123")
	p.SetOnClose(func(pl *Player) { reg.Remove(pl) })

	reg.Append(p)
	require.Same(t, p, reg.ByToken("tok-123"))

	// токен живёт до конца цепочки отключения: индекс byToken должен
	// уйти вместе с сессией
	p.Close()

	assert.Nil(t, reg.ByID(1001))
	assert.Nil(t, reg.ByToken("tok-123"))
	assert.Empty(t, p.Token())
}

func TestRegistry_TransportFilters(t *testing.T) {
	reg := NewRegistry()

	tcp := loggedIn(t, 1, "a")
	web := NewPlayer(TransportHTTP, "10.0.0.1")
	client, err := ParseOsuClient("b20120812|0|0|aa:eth0:bb:cc:dd|0", Geo{})
	require.NoError(t, err)
	dec, enc := packets.Resolve(client.Version.Date)
	web.Adopt(testUser(2, "b"), client, dec, enc)

	reg.Append(tcp)
	reg.Append(web)

	require.Len(t, reg.TCPClients(), 1)
	assert.Same(t, tcp, reg.TCPClients()[0])
	require.Len(t, reg.HTTPClients(), 1)
	assert.Same(t, web, reg.HTTPClients()[0])
}

func TestRegistry_AllSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []int32{30, 10, 20} {
		reg.Append(loggedIn(t, id, string(rune('a'+id))))
	}

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, int32(10), all[0].ID())
	assert.Equal(t, int32(20), all[1].ID())
	assert.Equal(t, int32(30), all[2].ID())
}
