package chat

import (
	"sort"
	"strconv"
	"sync"

	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

// Manager держит все каналы сервера и маршрутизирует личные сообщения.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewManager создаёт менеджер со стандартным набором каналов.
func NewManager() *Manager {
	m := &Manager{channels: make(map[string]*Channel)}

	m.Add(NewChannel("#osu", "General discussion.", packets.PermissionNone, packets.PermissionNone, true))
	m.Add(NewChannel("#announce", "Announcements.", packets.PermissionNone, packets.PermissionAdmin, true))
	m.Add(NewChannel("#lobby", "Multiplayer lobby.", packets.PermissionNone, packets.PermissionNone, false))
	m.Add(NewChannel("#admin", "Staff talk.", packets.PermissionAdmin, packets.PermissionAdmin, false))

	return m
}

// Add регистрирует канал.
func (m *Manager) Add(ch *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Delete убирает канал и отзывает его у оставшихся участников.
func (m *Manager) Delete(name string) {
	m.mu.Lock()
	ch, ok := m.channels[name]
	delete(m.channels, name)
	m.mu.Unlock()

	if !ok {
		return
	}
	for _, p := range ch.Members() {
		ch.Revoke(p)
	}
}

// Get находит канал по внутреннему имени.
func (m *Manager) Get(name string) *Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// Resolve находит канал по имени из пакета клиента: служебные имена
// #spectator и #multiplayer разворачиваются через членства сессии.
func (m *Manager) Resolve(p *session.Player, name string) *Channel {
	switch name {
	case "#spectator":
		host := p.Spectating()
		if host == nil {
			host = p
		}
		return m.Get(SpectatorChannelName(host.ID()))
	case "#multiplayer":
		match := p.Match()
		if match == nil {
			return nil
		}
		return m.Get(match.ChannelName())
	default:
		return m.Get(name)
	}
}

// Listed возвращает постоянные каналы, видимые пользователю с perms,
// в стабильном порядке.
func (m *Manager) Listed(perms packets.Permissions) []*Channel {
	m.mu.RLock()
	out := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		if !ch.Temporary() && ch.CanRead(perms) {
			out = append(out, ch)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// PartAll выводит сессию из всех её каналов. Вызывается при отключении.
func (m *Manager) PartAll(p *session.Player) {
	for _, ref := range p.Channels() {
		ref.Remove(p)
	}
}

// SendPrivate доставляет личное сообщение. Возвращаемые пакеты отказов
// (заблокированные ЛС, молчание цели) кладутся отправителю здесь же.
func (m *Manager) SendPrivate(from, to *session.Player, content string) {
	if from.Silenced() {
		return
	}

	if to.Silenced() {
		from.EnqueueSilencedTarget(to.Name())
		return
	}

	if to.FriendonlyDMs() && !to.IsFriend(from.ID()) && !from.IsBot() {
		from.EnqueueBlockedDMs(to.Name())
		return
	}

	msg := packets.Message{
		Sender:   from.Name(),
		Content:  content,
		Target:   to.Name(),
		SenderID: from.ID(),
	}
	to.EnqueueMessage(msg)
	metrics.Messages.Inc()

	if away := to.AwayMessage(); away != "" {
		from.EnqueueMessage(packets.Message{
			Sender:   to.Name(),
			Content:  away,
			Target:   from.Name(),
			SenderID: to.ID(),
		})
	}
}

// SpectatorChannelName — внутреннее имя канала спектейта хоста.
func SpectatorChannelName(hostID int32) string {
	return "#spec_" + strconv.Itoa(int(hostID))
}

// MultiplayerChannelName — внутреннее имя канала комнаты.
func MultiplayerChannelName(matchID uint16) string {
	return "#multi_" + strconv.Itoa(int(matchID))
}
