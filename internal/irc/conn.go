package irc

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/gobancho/internal/bancho"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

const (
	// loginTimeout — сколько ждём PASS/NICK до обрыва.
	loginTimeout = 30 * time.Second

	// pingPeriod — период серверных PING после логина. PONG клиента
	// обновляет lastResponse сессии, иначе её снимет keepalive.
	pingPeriod = 60 * time.Second

	// maxLineLen ограничивает длину строки протокола.
	maxLineLen = 1024
)

// conn — одно подключение шлюза. До логина копит PASS и NICK, после —
// транслирует команды в чат и сообщения чата обратно в строки PRIVMSG.
type conn struct {
	b    *bancho.Bancho
	sock net.Conn

	wmu sync.Mutex

	player *session.Player
	nick   string
	pass   string
}

func newConn(b *bancho.Bancho, sock net.Conn) *conn {
	return &conn{b: b, sock: sock}
}

func (c *conn) serve(ctx context.Context) {
	defer c.sock.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.sock.SetReadDeadline(time.Now().Add(loginTimeout))

	sc := bufio.NewScanner(c.sock)
	sc.Buffer(make([]byte, maxLineLen), maxLineLen)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if c.player != nil {
			c.player.Touch()
		}
		if quit := c.handle(ctx, line); quit {
			break
		}
	}

	if c.player != nil {
		c.player.Close()
	}
}

// ircNick превращает имя пользователя в допустимый ник: пробелы в IRC
// запрещены. Обратное преобразование не нужно — нормализация имён в
// реестре и БД склеивает обе формы.
func ircNick(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

func (c *conn) send(line string) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.sock.SetWriteDeadline(time.Now().Add(30 * time.Second))
	fmt.Fprintf(c.sock, "%s\r\n", line)
}

func (c *conn) numeric(code int, format string, args ...any) {
	nick := c.nick
	if nick == "" {
		nick = "*"
	}
	c.send(fmt.Sprintf(":%s %03d %s %s", ServerName, code, nick, fmt.Sprintf(format, args...)))
}

// prefix — источник команд от имени залогиненного пользователя.
func (c *conn) prefix() string {
	return fmt.Sprintf("%s!cho@%s", c.nick, ServerName)
}

// deliver — хук входящих сообщений чата: превращает пакет SEND_MESSAGE
// в строку PRIVMSG. Вызывается с горутины отправителя.
func (c *conn) deliver(m packets.Message) {
	target := m.Target
	if !strings.HasPrefix(target, "#") {
		target = c.nick
	}
	c.send(fmt.Sprintf(":%s!cho@%s PRIVMSG %s :%s", ircNick(m.Sender), ServerName, target, m.Content))
}

// parseLine разбирает строку протокола: необязательный префикс, команда,
// параметры, последний параметр после " :" может содержать пробелы.
func parseLine(line string) (cmd string, params []string) {
	if strings.HasPrefix(line, ":") {
		if i := strings.IndexByte(line, ' '); i >= 0 {
			line = line[i+1:]
		} else {
			return "", nil
		}
	}

	var trailing string
	hasTrailing := false
	if i := strings.Index(line, " :"); i >= 0 {
		trailing = line[i+2:]
		line = line[:i]
		hasTrailing = true
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd = strings.ToUpper(fields[0])
	params = fields[1:]
	if hasTrailing {
		params = append(params, trailing)
	}
	return cmd, params
}

func (c *conn) handle(ctx context.Context, line string) (quit bool) {
	cmd, params := parseLine(line)

	switch cmd {
	case "PASS":
		if len(params) > 0 {
			c.pass = params[0]
			c.tryLogin(ctx)
		}
		return false
	case "NICK":
		if c.player == nil && len(params) > 0 {
			c.nick = params[0]
			c.tryLogin(ctx)
		}
		return false
	case "USER", "CAP", "PONG":
		return false
	case "PING":
		token := ServerName
		if len(params) > 0 {
			token = params[0]
		}
		c.send(fmt.Sprintf(":%s PONG %s :%s", ServerName, ServerName, token))
		return false
	case "QUIT":
		c.send("ERROR :Closing link")
		return true
	}

	if c.player == nil {
		c.numeric(451, ":You have not registered")
		return false
	}

	switch cmd {
	case "JOIN":
		if len(params) == 0 {
			c.numeric(461, "JOIN :Not enough parameters")
			return false
		}
		for _, name := range strings.Split(params[0], ",") {
			c.join(name)
		}
	case "PART":
		if len(params) == 0 {
			c.numeric(461, "PART :Not enough parameters")
			return false
		}
		for _, name := range strings.Split(params[0], ",") {
			c.part(name)
		}
	case "PRIVMSG":
		if len(params) < 2 {
			c.numeric(461, "PRIVMSG :Not enough parameters")
			return false
		}
		c.privmsg(params[0], params[1])
	case "TOPIC":
		if len(params) == 0 {
			c.numeric(461, "TOPIC :Not enough parameters")
			return false
		}
		c.topic(params[0])
	case "MOTD":
		c.motd()
	case "LUSERS":
		c.lusers()
	case "AWAY":
		if len(params) > 0 && params[0] != "" {
			c.player.SetAwayMessage(params[0])
			c.numeric(306, ":You have been marked as being away")
		} else {
			c.player.SetAwayMessage("")
			c.numeric(305, ":You are no longer marked as being away")
		}
	case "WHO":
		if len(params) > 0 {
			c.who(params[0])
		} else {
			c.numeric(315, "* :End of WHO list")
		}
	case "WHOIS":
		if len(params) == 0 {
			c.numeric(461, "WHOIS :Not enough parameters")
			return false
		}
		c.whois(params[0])
	case "MODE":
		c.mode(params)
	default:
		c.numeric(421, "%s :Unknown command", cmd)
	}
	return false
}

// tryLogin срабатывает, когда собраны и ник, и пароль.
func (c *conn) tryLogin(ctx context.Context) {
	if c.player != nil || c.nick == "" || c.pass == "" {
		return
	}

	p, err := c.b.LoginIRC(ctx, c.sock.RemoteAddr().String(), c.nick, c.pass)
	if err != nil {
		slog.Warn("irc login rejected", "nick", c.nick, "addr", c.sock.RemoteAddr())
		c.numeric(464, ":Bad authentication token")
		c.send("ERROR :Closing link")
		c.sock.Close()
		return
	}

	c.player = p
	c.nick = ircNick(p.Name())
	p.SetMessageHook(c.deliver)
	p.SetOnClose(func(pl *session.Player) {
		c.b.Disconnect(pl)
		c.sock.Close()
	})

	// дальше соединение живёт под присмотром keepalive
	c.sock.SetReadDeadline(time.Time{})
	go c.pingLoop(ctx)

	c.numeric(1, ":Welcome to the osu!Bancho, %s!", c.nick)
	c.numeric(2, ":Your host is %s", ServerName)
	c.lusers()
	c.motd()
}

// pingLoop шлёт серверные PING, пока жива сессия.
func (c *conn) pingLoop(ctx context.Context) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if c.player.Closed() {
				return
			}
			c.send(fmt.Sprintf("PING :%s", ServerName))
		}
	}
}

func (c *conn) join(name string) {
	ch := c.b.Channels.Get(name)
	if ch == nil || ch.Temporary() {
		c.numeric(403, "%s :No such channel", name)
		return
	}
	if !ch.Join(c.player) {
		c.numeric(473, "%s :Cannot join channel", name)
		return
	}

	c.send(fmt.Sprintf(":%s JOIN :%s", c.prefix(), name))
	c.topic(name)

	nicks := make([]string, 0, ch.Len())
	for _, m := range ch.Members() {
		nicks = append(nicks, ircNick(m.Name()))
	}
	c.numeric(353, "= %s :%s", name, strings.Join(nicks, " "))
	c.numeric(366, "%s :End of NAMES list", name)
}

func (c *conn) part(name string) {
	ch := c.b.Channels.Get(name)
	if ch == nil || !ch.Contains(c.player) {
		c.numeric(442, "%s :You're not on that channel", name)
		return
	}
	ch.Remove(c.player)
	c.send(fmt.Sprintf(":%s PART :%s", c.prefix(), name))
}

func (c *conn) privmsg(target, text string) {
	if strings.HasPrefix(target, "#") {
		ch := c.b.Channels.Get(target)
		if ch == nil {
			c.numeric(403, "%s :No such channel", target)
			return
		}
		if !ch.Contains(c.player) {
			c.numeric(404, "%s :Cannot send to channel", target)
			return
		}
		ch.Send(c.player, text)
		return
	}

	peer := c.b.Registry.ByName(target)
	if peer == nil {
		c.numeric(401, "%s :No such nick", target)
		return
	}
	c.b.Channels.SendPrivate(c.player, peer, text)
}

func (c *conn) topic(name string) {
	ch := c.b.Channels.Get(name)
	if ch == nil {
		c.numeric(403, "%s :No such channel", name)
		return
	}
	if ch.Topic() == "" {
		c.numeric(331, "%s :No topic is set", name)
		return
	}
	c.numeric(332, "%s :%s", name, ch.Topic())
}

func (c *conn) motd() {
	c.numeric(375, ":- %s Message of the day -", ServerName)
	c.numeric(372, ":- Welcome to the osu!Bancho IRC gateway.")
	c.numeric(376, ":End of MOTD command")
}

func (c *conn) lusers() {
	c.numeric(251, ":There are %d users online", c.b.Registry.Len())
}

func (c *conn) who(mask string) {
	if strings.HasPrefix(mask, "#") {
		if ch := c.b.Channels.Get(mask); ch != nil {
			for _, m := range ch.Members() {
				nick := ircNick(m.Name())
				c.numeric(352, "%s %s %s %s %s H :0 %s", mask, nick, ServerName, ServerName, nick, m.Name())
			}
		}
	} else if p := c.b.Registry.ByName(mask); p != nil {
		nick := ircNick(p.Name())
		c.numeric(352, "* %s %s %s %s H :0 %s", nick, ServerName, ServerName, nick, p.Name())
	}
	c.numeric(315, "%s :End of WHO list", mask)
}

func (c *conn) whois(nick string) {
	p := c.b.Registry.ByName(nick)
	if p == nil {
		c.numeric(401, "%s :No such nick", nick)
		return
	}

	target := ircNick(p.Name())
	c.numeric(311, "%s %s %s * :%s", target, target, ServerName, p.Name())

	var chans []string
	for _, ref := range p.Channels() {
		if strings.HasPrefix(ref.Name(), "#spec_") || strings.HasPrefix(ref.Name(), "#multi_") {
			continue
		}
		chans = append(chans, ref.Name())
	}
	if len(chans) > 0 {
		c.numeric(319, "%s :%s", target, strings.Join(chans, " "))
	}
	c.numeric(312, "%s %s :osu!Bancho", target, ServerName)
	c.numeric(318, "%s :End of WHOIS list", target)
}

func (c *conn) mode(params []string) {
	if len(params) == 0 || !strings.HasPrefix(params[0], "#") {
		c.numeric(221, "+i")
		return
	}
	c.numeric(324, "%s +nt", params[0])
}
