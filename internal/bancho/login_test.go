package bancho

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/config"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
	"github.com/udisondev/gobancho/internal/testutil"
)

type frame struct {
	id      packets.Response
	payload []byte
}

func drainFrames(t *testing.T, p *session.Player) []frame {
	t.Helper()

	data := p.Drain()
	var out []frame
	for len(data) > 0 {
		id, payload, rest, err := protocol.SplitFrame(data)
		require.NoError(t, err)
		out = append(out, frame{packets.Response(id), payload})
		data = rest
	}
	return out
}

func frameIDs(fs []frame) []packets.Response {
	out := make([]packets.Response, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.id)
	}
	return out
}

func findFrame(fs []frame, id packets.Response) (frame, bool) {
	for _, f := range fs {
		if f.id == id {
			return f, true
		}
	}
	return frame{}, false
}

func newTestBancho(t *testing.T, users ...int32) (*Bancho, *testutil.Repo) {
	t.Helper()

	repo := testutil.NewRepo(testutil.User(1, "BanchoBot"))
	for _, id := range users {
		repo.Add(testutil.User(id, userName(id)))
	}

	bot, err := repo.UserByID(context.Background(), 1)
	require.NoError(t, err)

	b := New(config.DefaultBancho(), repo, testutil.PlainVerifier{},
		testutil.NewLeaderboards(), session.NopGeoResolver{}, bot)
	return b, repo
}

func userName(id int32) string {
	return "user" + string(rune('A'+id%26))
}

func login(t *testing.T, b *Bancho, id int32) *session.Player {
	t.Helper()

	p := session.NewPlayer(session.TransportTCP, "127.0.0.1:4242")
	name := userName(id)
	err := b.Login(context.Background(), p, name, "secret-"+name, testutil.ClientData("b20120812"))
	require.NoError(t, err)
	return p
}

func TestLogin_Success(t *testing.T) {
	b, _ := newTestBancho(t, 5)

	p := login(t, b, 5)
	assert.Same(t, p, b.Registry.ByID(5))

	fs := drainFrames(t, p)
	ids := frameIDs(fs)

	reply, ok := findFrame(fs, packets.ResponseLoginReply)
	require.True(t, ok)
	assert.Equal(t, []byte{5, 0, 0, 0}, reply.payload)

	// порядок: версия протокола раньше LOGIN_REPLY, завершение списка
	// каналов последним
	assert.Equal(t, packets.ResponseProtocolVersion, ids[0])
	assert.Equal(t, packets.ResponseLoginReply, ids[1])
	assert.Contains(t, ids, packets.ResponseMenuIcon)
	assert.Contains(t, ids, packets.ResponseLoginPermissions)
	assert.Contains(t, ids, packets.ResponseUserPresence)
	assert.Contains(t, ids, packets.ResponseUserStats)
	assert.Contains(t, ids, packets.ResponseFriendsList)
	assert.Equal(t, packets.ResponseChannelInfoComplete, ids[len(ids)-1])

	// autojoin-каналы
	assert.True(t, p.InChannel("#osu"))
	assert.True(t, p.InChannel("#announce"))
	assert.False(t, p.InChannel("#lobby"))
}

func TestLogin_Failures(t *testing.T) {
	b, repo := newTestBancho(t, 5)

	restricted := testutil.User(6, "restricted")
	restricted.Restricted = true
	repo.Add(restricted)

	inactive := testutil.User(7, "inactive")
	inactive.Activated = false
	repo.Add(inactive)

	tests := []struct {
		name     string
		username string
		password string
		code     int32
	}{
		{"unknown user", "nobody", "x", -1},
		{"wrong password", "userF", "wrong", -1},
		{"restricted", "restricted", "secret-restricted", -3},
		{"not activated", "inactive", "secret-inactive", -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := session.NewPlayer(session.TransportTCP, "127.0.0.1:4242")
			err := b.Login(context.Background(), p, tt.username, tt.password, testutil.ClientData("b20120812"))
			require.Error(t, err)

			fs := drainFrames(t, p)
			reply, ok := findFrame(fs, packets.ResponseLoginReply)
			require.True(t, ok)
			r := protocol.NewReader(reply.payload)
			code, err := r.ReadInt32()
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestLogin_AdapterHashMismatch(t *testing.T) {
	b, _ := newTestBancho(t, 5)

	p := session.NewPlayer(session.TransportTCP, "127.0.0.1:4242")
	err := b.Login(context.Background(), p, "userF", "secret-userF",
		"b20120812|0|0|deadbeef:eth0:mac:un:disk|0")
	assert.ErrorIs(t, err, ErrAdapterHash)
	assert.Nil(t, b.Registry.ByID(5))
}

func TestLogin_Displacement(t *testing.T) {
	b, _ := newTestBancho(t, 5)

	first := login(t, b, 5)
	first.Drain()

	second := login(t, b, 5)

	assert.True(t, first.Closed(), "старая сессия закрыта до LOGIN_REPLY новой")
	assert.Same(t, second, b.Registry.ByID(5))

	fs := drainFrames(t, first)
	_, ok := findFrame(fs, packets.ResponseAnnounce)
	assert.True(t, ok, "вытесненная сессия получает объявление")
}

func TestLogin_PeersNotified(t *testing.T) {
	b, _ := newTestBancho(t, 5, 6)

	peer := login(t, b, 5)
	peer.Drain()

	login(t, b, 6)

	fs := drainFrames(t, peer)
	ids := frameIDs(fs)
	assert.Contains(t, ids, packets.ResponseUserPresence)
	assert.Contains(t, ids, packets.ResponseUserStats)
}

func TestDisconnect_CleansUp(t *testing.T) {
	b, _ := newTestBancho(t, 5, 6)

	p := login(t, b, 5)
	peer := login(t, b, 6)
	peer.Drain()

	require.True(t, p.InChannel("#osu"))

	p.Close()

	assert.Nil(t, b.Registry.ByID(5))
	ch := b.Channels.Get("#osu")
	require.NotNil(t, ch)
	assert.False(t, ch.Contains(p))

	fs := drainFrames(t, peer)
	quit, ok := findFrame(fs, packets.ResponseUserQuit)
	require.True(t, ok)
	r := protocol.NewReader(quit.payload)
	id, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(5), id)
}

func TestDispatch_UnknownAndPanic(t *testing.T) {
	b, _ := newTestBancho(t, 5)
	p := login(t, b, 5)
	p.Drain()

	// неизвестный id не валит сессию
	assert.NotPanics(t, func() { b.Dispatch(context.Background(), p, 999, nil) })

	// обрезанное тело известного пакета — тоже
	assert.NotPanics(t, func() {
		b.Dispatch(context.Background(), p, uint16(packets.RequestStartSpectating), []byte{1})
	})
	assert.False(t, p.Closed())
}

func TestDispatch_ChatScenario(t *testing.T) {
	b, _ := newTestBancho(t, 2, 3)
	a := login(t, b, 2)
	peer := login(t, b, 3)
	a.Drain()
	peer.Drain()

	w := protocol.NewWriter(64)
	w.WriteString("")       // sender игнорируется
	w.WriteString("hello\nworld")
	w.WriteString("#osu")
	w.WriteInt32(0)
	b.Dispatch(context.Background(), a, uint16(packets.RequestSendMessage), w.Bytes())

	var contents []string
	for _, f := range drainFrames(t, peer) {
		if f.id != packets.ResponseSendMessage {
			continue
		}
		r := protocol.NewReader(f.payload)
		sender, err := r.ReadString()
		require.NoError(t, err)
		content, err := r.ReadString()
		require.NoError(t, err)
		target, err := r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, userName(2), sender)
		assert.Equal(t, "#osu", target)
		contents = append(contents, content)
	}
	assert.Equal(t, []string{"hello", "world"}, contents)

	assert.Empty(t, drainFrames(t, a), "отправитель своих сообщений не получает")
}
