package irc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/bancho"
	"github.com/udisondev/gobancho/internal/config"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
	"github.com/udisondev/gobancho/internal/testutil"
)

func newTestBancho(t *testing.T, names ...string) *bancho.Bancho {
	t.Helper()

	repo := testutil.NewRepo(testutil.User(1, "BanchoBot"))
	for i, name := range names {
		repo.Add(testutil.User(int32(i+2), name))
	}

	bot, err := repo.UserByID(context.Background(), 1)
	require.NoError(t, err)

	return bancho.New(config.DefaultBancho(), repo, testutil.PlainVerifier{},
		testutil.NewLeaderboards(), session.NopGeoResolver{}, bot)
}

func loginOsu(t *testing.T, b *bancho.Bancho, name string) *session.Player {
	t.Helper()

	p := session.NewPlayer(session.TransportTCP, "127.0.0.1:4242")
	err := b.Login(context.Background(), p, name, "secret-"+name, testutil.ClientData("b20120812"))
	require.NoError(t, err)
	p.Drain()
	return p
}

func messagesOf(t *testing.T, p *session.Player) []packets.Message {
	t.Helper()

	data := p.Drain()
	var out []packets.Message
	for len(data) > 0 {
		id, payload, rest, err := protocol.SplitFrame(data)
		require.NoError(t, err)
		data = rest
		if packets.Response(id) != packets.ResponseSendMessage {
			continue
		}
		r := protocol.NewReader(payload)
		var m packets.Message
		m.Sender, err = r.ReadString()
		require.NoError(t, err)
		m.Content, err = r.ReadString()
		require.NoError(t, err)
		m.Target, err = r.ReadString()
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

// ircClient — клиентская сторона net.Pipe с построчным чтением.
type ircClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, b *bancho.Bancho) *ircClient {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go newConn(b, server).serve(ctx)

	return &ircClient{conn: client, r: bufio.NewReader(client)}
}

func (c *ircClient) sendf(t *testing.T, format string, args ...any) {
	t.Helper()

	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := fmt.Fprintf(c.conn, format+"\r\n", args...)
	require.NoError(t, err)
}

func (c *ircClient) readLine(t *testing.T) string {
	t.Helper()

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\r\n")
}

// readUntil читает строки до первой, содержащей want.
func (c *ircClient) readUntil(t *testing.T, want string) []string {
	t.Helper()

	var got []string
	for {
		line := c.readLine(t)
		got = append(got, line)
		if strings.Contains(line, want) {
			return got
		}
	}
}

func (c *ircClient) login(t *testing.T, name string) {
	t.Helper()

	c.sendf(t, "PASS secret-%s", name)
	c.sendf(t, "NICK %s", name)
	lines := c.readUntil(t, " 376 ")
	assert.Contains(t, lines[0], " 001 ")
}

func TestConn_LoginAndJoin(t *testing.T) {
	b := newTestBancho(t, "gateway")
	c := dial(t, b)

	c.login(t, "gateway")

	p := b.Registry.ByName("gateway")
	require.NotNil(t, p)
	assert.Equal(t, session.TransportIRC, p.Transport())
	assert.Negative(t, p.ID())

	c.sendf(t, "JOIN #osu")
	lines := c.readUntil(t, " 366 ")
	assert.Contains(t, lines[0], "JOIN :#osu")
	assert.True(t, p.InChannel("#osu"))

	found := false
	for _, l := range lines {
		if strings.Contains(l, " 353 ") {
			assert.Contains(t, l, "gateway")
			found = true
		}
	}
	assert.True(t, found, "NAMES перечисляет участников")
}

func TestConn_BadPassword(t *testing.T) {
	b := newTestBancho(t, "gateway")
	c := dial(t, b)

	c.sendf(t, "PASS wrong")
	c.sendf(t, "NICK gateway")

	lines := c.readUntil(t, " 464 ")
	assert.NotEmpty(t, lines)
	assert.Nil(t, b.Registry.ByName("gateway"))
}

func TestConn_ChannelMessageBothWays(t *testing.T) {
	b := newTestBancho(t, "gateway", "osuer")
	peer := loginOsu(t, b, "osuer")

	c := dial(t, b)
	c.login(t, "gateway")
	c.sendf(t, "JOIN #osu")
	c.readUntil(t, " 366 ")

	// IRC -> osu
	c.sendf(t, "PRIVMSG #osu :hello from irc")
	require.Eventually(t, func() bool {
		msgs := messagesOf(t, peer)
		for _, m := range msgs {
			if m.Sender == "gateway" && m.Content == "hello from irc" && m.Target == "#osu" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	// osu -> IRC
	ch := b.Channels.Get("#osu")
	require.NotNil(t, ch)
	// net.Pipe синхронна: доставка в шлюз блокируется до чтения клиентом
	go ch.Send(peer, "hello from osu")

	lines := c.readUntil(t, "hello from osu")
	last := lines[len(lines)-1]
	assert.Contains(t, last, ":osuer!cho@")
	assert.Contains(t, last, "PRIVMSG #osu :hello from osu")
}

func TestConn_PrivateMessageBothWays(t *testing.T) {
	b := newTestBancho(t, "gateway", "osuer")
	peer := loginOsu(t, b, "osuer")

	c := dial(t, b)
	c.login(t, "gateway")

	c.sendf(t, "PRIVMSG osuer :psst")
	require.Eventually(t, func() bool {
		for _, m := range messagesOf(t, peer) {
			if m.Sender == "gateway" && m.Content == "psst" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	gw := b.Registry.ByName("gateway")
	require.NotNil(t, gw)
	go b.Channels.SendPrivate(peer, gw, "psst back")

	lines := c.readUntil(t, "psst back")
	assert.Contains(t, lines[len(lines)-1], "PRIVMSG gateway :psst back")
}

func TestConn_PartAndTopic(t *testing.T) {
	b := newTestBancho(t, "gateway")
	c := dial(t, b)
	c.login(t, "gateway")

	c.sendf(t, "JOIN #osu")
	c.readUntil(t, " 366 ")

	c.sendf(t, "TOPIC #osu")
	assert.Contains(t, c.readLine(t), " 332 ")

	c.sendf(t, "PART #osu")
	assert.Contains(t, c.readLine(t), "PART :#osu")
	p := b.Registry.ByName("gateway")
	assert.False(t, p.InChannel("#osu"))

	// повторный PART — уже не участник
	c.sendf(t, "PART #osu")
	assert.Contains(t, c.readLine(t), " 442 ")
}

func TestConn_DisplacesGameSession(t *testing.T) {
	b := newTestBancho(t, "gateway")
	osu := loginOsu(t, b, "gateway")

	c := dial(t, b)
	c.login(t, "gateway")

	assert.True(t, osu.Closed())
	p := b.Registry.ByName("gateway")
	require.NotNil(t, p)
	assert.Equal(t, session.TransportIRC, p.Transport())
}

func TestConn_WhoisAndPing(t *testing.T) {
	b := newTestBancho(t, "gateway", "osuer")
	loginOsu(t, b, "osuer")

	c := dial(t, b)
	c.login(t, "gateway")

	c.sendf(t, "WHOIS osuer")
	lines := c.readUntil(t, " 318 ")
	assert.Contains(t, lines[0], " 311 ")

	c.sendf(t, "PING :token")
	assert.Contains(t, c.readLine(t), "PONG")

	c.sendf(t, "WHOIS nobody")
	assert.Contains(t, c.readLine(t), " 401 ")
}

func TestConn_QuitClosesSession(t *testing.T) {
	b := newTestBancho(t, "gateway")
	c := dial(t, b)
	c.login(t, "gateway")

	c.sendf(t, "QUIT :bye")
	c.readUntil(t, "ERROR")

	require.Eventually(t, func() bool {
		return b.Registry.ByName("gateway") == nil
	}, time.Second, 10*time.Millisecond)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line   string
		cmd    string
		params []string
	}{
		{"NICK peppy", "NICK", []string{"peppy"}},
		{"privmsg #osu :hello world", "PRIVMSG", []string{"#osu", "hello world"}},
		{":prefix JOIN #osu", "JOIN", []string{"#osu"}},
		{"AWAY :", "AWAY", []string{""}},
		{"MOTD", "MOTD", nil},
	}
	for _, tt := range tests {
		cmd, params := parseLine(tt.line)
		assert.Equal(t, tt.cmd, cmd)
		assert.Equal(t, tt.params, params)
	}
}
