package bancho

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

// ErrAdapterHash — объявленный md5 списка адаптеров не совпал с
// вычисленным. Транспорт отвечает литеральными байтами "no.\r\n"
// вместо пакета: так делает эталонный сервер, и клиент этого ждёт.
var ErrAdapterHash = errors.New("adapter hash mismatch")

// errLoginFailed — отказ, уже оформленный пакетом LOGIN_REPLY в очереди.
var errLoginFailed = errors.New("login failed")

// presenceBundleSize — максимум id в одном USER_PRESENCE_BUNDLE.
const presenceBundleSize = 150

// Login аутентифицирует сессию по трём строкам рукопожатия. При отказе
// очередь сессии уже содержит LOGIN_REPLY с кодом ошибки; вызывающий
// сливает буфер и закрывает соединение.
func (b *Bancho) Login(ctx context.Context, p *session.Player, username, passwordMD5, clientData string) error {
	host, _, err := net.SplitHostPort(p.Addr())
	if err != nil {
		host = p.Addr()
	}
	geo := b.geo.Resolve(host)

	client, err := session.ParseOsuClient(clientData, geo)
	if err != nil {
		// кодеки ещё не выбраны: отвечаем таблицами новейшей версии
		dec, enc := packets.Resolve(1 << 30)
		p.SetCodecs(dec, enc)
		return b.fail(p, packets.LoginErrorServerError, "server_error", fmt.Errorf("parsing client data: %w", err))
	}

	dec, enc := packets.Resolve(client.Version.Date)
	p.SetCodecs(dec, enc)
	p.SendPacket(packets.ResponseProtocolVersion, int32(b.cfg.ProtocolVersion))

	sum := md5.Sum([]byte(client.Hash.Adapters))
	if hex.EncodeToString(sum[:]) != client.Hash.AdaptersMD5 {
		metrics.Logins.WithLabelValues("hardware").Inc()
		slog.Warn("adapter hash mismatch", "username", username, "addr", p.Addr())
		return ErrAdapterHash
	}

	user, err := b.repo.UserByName(ctx, username)
	if err != nil {
		return b.fail(p, packets.LoginErrorServerError, "server_error", err)
	}
	if user == nil {
		return b.fail(p, packets.LoginErrorAuthentication, "authentication", nil)
	}

	if !b.passwords.Verify(passwordMD5, user.Bcrypt) {
		return b.fail(p, packets.LoginErrorAuthentication, "authentication", nil)
	}

	if user.Restricted {
		return b.fail(p, packets.LoginErrorBanned, "banned", nil)
	}
	if !user.Activated {
		return b.fail(p, packets.LoginErrorNotActivated, "not_activated", nil)
	}

	if len(user.Stats) == 0 {
		for mode := uint8(0); mode < packets.GameModeCount; mode++ {
			s, err := b.repo.CreateStats(ctx, user.ID, mode)
			if err != nil {
				return b.fail(p, packets.LoginErrorServerError, "server_error", err)
			}
			user.Stats = append(user.Stats, s)
		}
	}

	// вытеснение предыдущей сессии строго до LOGIN_REPLY новой
	if old := b.Registry.ByID(user.ID); old != nil && old != p {
		old.EnqueueAnnouncement("You have logged in from another location.")
		old.Close()
	}

	p.Adopt(user, client, dec, enc)

	for i := range user.Stats {
		s := &user.Stats[i]
		if err := b.leaderboards.Update(ctx, user.ID, s.Mode, s.Performance, s.RankedScore, user.Country); err != nil {
			slog.Warn("failed to update leaderboards", "user", user.ID, "error", err)
		}
		if rank, err := b.leaderboards.GlobalRank(ctx, user.ID, s.Mode); err == nil {
			s.Rank = rank
			if err := b.repo.UpdateRankHistory(ctx, user.ID, s.Mode, rank, user.Country); err != nil {
				slog.Warn("failed to record rank history", "user", user.ID, "error", err)
			}
		}
	}

	displaced := b.Registry.Append(p)
	_ = displaced // уже закрыта выше

	p.SendPacket(packets.ResponseLoginReply, user.ID)
	p.SendPacket(packets.ResponseMenuIcon, packets.MenuIcon{
		Image: b.cfg.MenuIconImage,
		URL:   b.cfg.MenuIconURL,
	})
	p.SendPacket(packets.ResponseLoginPermissions, int32(user.Permissions))
	p.EnqueuePresence(p)
	p.EnqueueStats(p)
	p.EnqueuePresence(b.bot)
	p.EnqueueFriends(p.Friends())

	b.sendPresenceBundles(p)

	perms := p.Permissions()
	for _, ch := range b.Channels.Listed(perms) {
		if ch.Autojoin() {
			ch.Join(p)
			p.EnqueueChannel(ch.Info(), true)
			continue
		}
		p.EnqueueChannel(ch.Info(), false)
	}
	p.SendPacket(packets.ResponseChannelInfoComplete, nil)

	if remaining := p.SilenceRemaining(); remaining > 0 {
		p.SendPacket(packets.ResponseSilenceInfo, remaining)
	}

	if err := b.repo.UpdateClients(ctx, user.ID, map[string]any{
		"adapters_md5":  client.Hash.AdaptersMD5,
		"mac_md5":       client.Hash.MacMD5,
		"uninstall_md5": client.Hash.UninstallMD5,
		"disk_md5":      client.Hash.DiskMD5,
	}); err != nil {
		slog.Warn("failed to record client hashes", "user", user.ID, "error", err)
	}

	// остальные узнают о новом игроке
	presence := p.Presence()
	stats := p.StatsPacket()
	for _, other := range b.Registry.All() {
		if other.ID() == p.ID() {
			continue
		}
		other.SendPacket(packets.ResponseUserPresence, presence)
		other.SendPacket(packets.ResponseUserStats, stats)
	}

	p.SetOnClose(b.Disconnect)
	p.Touch()

	metrics.Logins.WithLabelValues("ok").Inc()
	slog.Info("login successful", "player", user.Name, "id", user.ID,
		"version", client.Version.String, "transport", p.Transport())
	return nil
}

// LoginIRC аутентифицирует сессию IRC-шлюза по паре nick/pass. Пароль
// клиент передаёт уже в виде md5, как и osu-клиент в рукопожатии.
// Игровая и шлюзовая сессии делят имя в реестре, поэтому онлайн остаётся
// одна: предыдущая сессия пользователя вытесняется.
func (b *Bancho) LoginIRC(ctx context.Context, addr, nick, passwordMD5 string) (*session.Player, error) {
	user, err := b.repo.UserByName(ctx, nick)
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", nick, err)
	}
	if user == nil || !b.passwords.Verify(passwordMD5, user.Bcrypt) {
		metrics.Logins.WithLabelValues("authentication").Inc()
		return nil, errLoginFailed
	}
	if user.Restricted || !user.Activated {
		metrics.Logins.WithLabelValues("banned").Inc()
		return nil, errLoginFailed
	}

	if old := b.Registry.ByID(user.ID); old != nil {
		old.EnqueueAnnouncement("You have logged in from another location.")
		old.Close()
	}

	p := session.NewIRC(user, addr)
	if displaced := b.Registry.Append(p); displaced != nil {
		displaced.Close()
	}

	p.SetOnClose(b.Disconnect)
	p.Touch()

	metrics.Logins.WithLabelValues("ok").Inc()
	slog.Info("login successful", "player", user.Name, "id", p.ID(), "transport", p.Transport())
	return p, nil
}

// sendPresenceBundles шлёт id остальных игроков пачками по
// presenceBundleSize. Клиент запрашивает подробности сам.
func (b *Bancho) sendPresenceBundles(p *session.Player) {
	all := b.Registry.All()
	ids := make([]int32, 0, len(all))
	for _, other := range all {
		if other.ID() == p.ID() {
			continue
		}
		ids = append(ids, other.ID())
	}

	for len(ids) > 0 {
		n := min(len(ids), presenceBundleSize)
		p.SendPacket(packets.ResponseUserPresenceBundle, ids[:n])
		ids = ids[n:]
	}
}

func (b *Bancho) fail(p *session.Player, code packets.LoginError, outcome string, cause error) error {
	metrics.Logins.WithLabelValues(outcome).Inc()
	if cause != nil {
		slog.Error("login failed", "outcome", outcome, "error", cause)
	}
	p.SendPacket(packets.ResponseLoginReply, int32(code))
	return errLoginFailed
}
