package chat

import (
	"strings"
	"sync"

	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

// Channel — один чат-канал. Временные каналы (#spec_*, #multi_*) живут,
// пока жив их владелец, и скрываются из общего списка.
type Channel struct {
	name      string
	topic     string
	readPerm  packets.Permissions
	writePerm packets.Permissions
	autojoin  bool
	temporary bool

	mu      sync.RWMutex
	members map[int32]*session.Player
}

// NewChannel создаёт постоянный канал.
func NewChannel(name, topic string, readPerm, writePerm packets.Permissions, autojoin bool) *Channel {
	return &Channel{
		name:      name,
		topic:     topic,
		readPerm:  readPerm,
		writePerm: writePerm,
		autojoin:  autojoin,
		members:   make(map[int32]*session.Player),
	}
}

// NewTemporary создаёт временный канал комнаты или спектейта.
func NewTemporary(name, topic string) *Channel {
	ch := NewChannel(name, topic, packets.PermissionNone, packets.PermissionNone, false)
	ch.temporary = true
	return ch
}

// Name возвращает внутреннее имя канала.
func (c *Channel) Name() string { return c.name }

// Topic возвращает тему канала.
func (c *Channel) Topic() string { return c.topic }

// Autojoin сообщает, входит ли клиент в канал автоматически при логине.
func (c *Channel) Autojoin() bool { return c.autojoin }

// Temporary сообщает, временный ли это канал.
func (c *Channel) Temporary() bool { return c.temporary }

// DisplayName — имя, под которым канал показывается клиенту: служебные
// каналы комнат и спектейта маскируются.
func (c *Channel) DisplayName() string {
	switch {
	case strings.HasPrefix(c.name, "#spec_"):
		return "#spectator"
	case strings.HasPrefix(c.name, "#multi_"):
		return "#multiplayer"
	default:
		return c.name
	}
}

// CanRead проверяет право видеть канал.
func (c *Channel) CanRead(perms packets.Permissions) bool {
	return c.readPerm == packets.PermissionNone || perms&c.readPerm != 0
}

// CanWrite проверяет право писать в канал.
func (c *Channel) CanWrite(perms packets.Permissions) bool {
	return c.writePerm == packets.PermissionNone || perms&c.writePerm != 0
}

// Info собирает анонс канала для списка доступных.
func (c *Channel) Info() packets.ChannelInfo {
	c.mu.RLock()
	count := len(c.members)
	c.mu.RUnlock()
	return packets.ChannelInfo{
		Name:      c.DisplayName(),
		Topic:     c.topic,
		UserCount: uint16(count),
	}
}

// Members возвращает снимок участников.
func (c *Channel) Members() []*session.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*session.Player, 0, len(c.members))
	for _, p := range c.members {
		out = append(out, p)
	}
	return out
}

// Len возвращает число участников.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// Contains сообщает, состоит ли p в канале.
func (c *Channel) Contains(p *session.Player) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[p.ID()]
	return ok
}

// Join добавляет участника и подтверждает вход клиенту. Возвращает false,
// если прав на чтение нет.
func (c *Channel) Join(p *session.Player) bool {
	if !c.CanRead(p.Permissions()) {
		return false
	}

	id := p.ID()
	c.mu.Lock()
	c.members[id] = p
	c.mu.Unlock()

	p.TrackChannel(c)
	p.SendPacket(packets.ResponseChannelJoinSuccess, c.DisplayName())
	return true
}

// Remove убирает участника без уведомления клиента (отключение, выход из
// комнаты). Реализует session.ChannelRef.
func (c *Channel) Remove(p *session.Player) {
	id := p.ID()
	c.mu.Lock()
	delete(c.members, id)
	c.mu.Unlock()
	p.ForgetChannel(c.name)
}

// Revoke убирает участника и сообщает клиенту об отзыве канала.
func (c *Channel) Revoke(p *session.Player) {
	c.Remove(p)
	p.SendPacket(packets.ResponseChannelRevoked, c.DisplayName())
}

// Send рассылает сообщение from всем участникам, кроме отправителя и
// сессий с фильтром присутствия none. Многострочные сообщения режутся
// на отдельные пакеты.
func (c *Channel) Send(from *session.Player, content string) {
	if !c.CanWrite(from.Permissions()) {
		return
	}
	if from.Silenced() && !from.IsBot() {
		from.EnqueueSilencedTarget(c.DisplayName())
		return
	}

	lines := strings.Split(content, "\n")
	members := c.Members()
	fromID := from.ID()

	for _, line := range lines {
		if line == "" {
			continue
		}
		msg := packets.Message{
			Sender:   from.Name(),
			Content:  line,
			Target:   c.DisplayName(),
			SenderID: fromID,
		}
		for _, m := range members {
			if m.ID() == fromID || m.Filter() == packets.PresenceFilterNone {
				continue
			}
			m.EnqueueMessage(msg)
		}
		metrics.Messages.Inc()
	}
}

// SendBot рассылает сообщение бота всем участникам, включая фильтрующих.
func (c *Channel) SendBot(bot *session.Player, content string) {
	msg := packets.Message{
		Sender:   bot.Name(),
		Content:  content,
		Target:   c.DisplayName(),
		SenderID: bot.ID(),
	}
	for _, m := range c.Members() {
		if m.ID() == bot.ID() {
			continue
		}
		m.EnqueueMessage(msg)
	}
	metrics.Messages.Inc()
}
