package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/packets"
)

func testUser(id int32, name string) *db.User {
	return &db.User{
		ID:          id,
		Name:        name,
		Country:     "DE",
		Permissions: int32(packets.PermissionRegular),
		Activated:   true,
		Stats: []db.Stats{
			{UserID: id, Mode: 0, Rank: 7, Performance: 1234, RankedScore: 100, Playcount: 42},
		},
	}
}

func loggedIn(t *testing.T, id int32, name string) *Player {
	t.Helper()

	client, err := ParseOsuClient("b20120812|2|0|aa:eth0:bb:cc:dd|0", Geo{Country: "DE", CountryIndex: 1})
	require.NoError(t, err)

	dec, enc := packets.Resolve(client.Version.Date)
	p := NewPlayer(TransportTCP, "127.0.0.1:9999")
	p.Adopt(testUser(id, name), client, dec, enc)
	return p
}

func TestPlayer_SendPacketDrain(t *testing.T) {
	p := loggedIn(t, 1000, "peppy")

	p.SendPacket(packets.ResponseLoginReply, int32(1000))

	select {
	case <-p.OutboundReady():
	default:
		t.Fatal("notify channel did not fire")
	}

	frame := p.Drain()
	assert.Equal(t, []byte{5, 0, 0, 4, 0, 0, 0, 232, 3, 0, 0}, frame)
	assert.Nil(t, p.Drain(), "second drain must return nothing")
}

func TestPlayer_SendPacketSkipsUndefined(t *testing.T) {
	client, err := ParseOsuClient("b535|0|0|aa:eth0:bb:cc:dd|0", Geo{})
	require.NoError(t, err)

	dec, enc := packets.Resolve(client.Version.Date)
	p := NewPlayer(TransportTCP, "127.0.0.1:9999")
	p.Adopt(testUser(5, "old client"), client, dec, enc)

	// у b535 нет USER_PRESENCE_SINGLE
	p.SendPacket(packets.ResponseUserPresenceSingle, int32(5))
	assert.Nil(t, p.Drain())
}

func TestPlayer_BotSendPacketNoop(t *testing.T) {
	bot := NewBot(testUser(1, "BanchoBot"))

	bot.SendPacket(packets.ResponseAnnounce, "hi")
	assert.Nil(t, bot.Drain())
	assert.True(t, bot.IsBot())
	assert.Equal(t, int32(-1), bot.ID())
}

func TestPlayer_Presence(t *testing.T) {
	p := loggedIn(t, 1000, "peppy")

	pres := p.Presence()
	assert.Equal(t, int32(1000), pres.UserID)
	assert.Equal(t, "peppy", pres.Name)
	assert.Equal(t, int8(2), pres.UTCOffset)
	assert.Equal(t, int32(7), pres.Rank)

	stats := p.StatsPacket()
	assert.Equal(t, int64(100), stats.RankedScore)
	assert.Equal(t, int16(1234), stats.Performance)
}

func TestPlayer_Silence(t *testing.T) {
	p := loggedIn(t, 1000, "peppy")
	assert.False(t, p.Silenced())
	assert.Zero(t, p.SilenceRemaining())

	p.Silence(10 * time.Minute)
	assert.True(t, p.Silenced())
	assert.Greater(t, p.SilenceRemaining(), int32(500))
}

func TestPlayer_Friends(t *testing.T) {
	p := loggedIn(t, 1000, "peppy")
	assert.Empty(t, p.Friends())

	p.AddFriend(2000)
	p.AddFriend(2000) // повторное добавление не дублирует
	assert.Equal(t, []int32{2000}, p.Friends())
	assert.True(t, p.IsFriend(2000))

	p.RemoveFriend(2000)
	assert.False(t, p.IsFriend(2000))
}

func TestPlayer_CloseIdempotent(t *testing.T) {
	p := loggedIn(t, 1000, "peppy")

	calls := 0
	p.SetOnClose(func(*Player) { calls++ })

	p.Close()
	p.Close()
	assert.Equal(t, 1, calls)
	assert.True(t, p.Closed())
}
