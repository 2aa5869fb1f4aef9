package multiplayer

import (
	"log/slog"
	"sync"

	"github.com/udisondev/gobancho/internal/chat"
	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

// Lobby — реестр комнат и зрителей списка комнат. Сессии в лобби получают
// анонсы создания, обновления и роспуска каждой комнаты.
type Lobby struct {
	channels *chat.Manager

	mu      sync.Mutex
	matches map[uint16]*Match
	members map[int32]*session.Player
	nextID  uint16
}

// NewLobby создаёт пустое лобби.
func NewLobby(channels *chat.Manager) *Lobby {
	return &Lobby{
		channels: channels,
		matches:  make(map[uint16]*Match),
		members:  make(map[int32]*session.Player),
		nextID:   1,
	}
}

// Join подписывает p на анонсы комнат и присылает ему текущий список.
func (l *Lobby) Join(p *session.Player) {
	p.SetInLobby(true)

	l.mu.Lock()
	l.members[p.ID()] = p
	matches := make([]*Match, 0, len(l.matches))
	for _, m := range l.matches {
		matches = append(matches, m)
	}
	l.mu.Unlock()

	for _, m := range matches {
		p.SendPacket(packets.ResponseMatchNew, m.Data(false))
	}
}

// Part отписывает p от анонсов комнат.
func (l *Lobby) Part(p *session.Player) {
	p.SetInLobby(false)

	l.mu.Lock()
	delete(l.members, p.ID())
	l.mu.Unlock()
}

// Create создаёт комнату: host садится в первый слот и становится хостом,
// лобби получает MATCH_NEW.
func (l *Lobby) Create(host *session.Player, data packets.MatchData) *Match {
	l.mu.Lock()
	for {
		if _, used := l.matches[l.nextID]; !used && l.nextID != 0 {
			break
		}
		l.nextID++
	}
	id := l.nextID
	l.nextID++

	m := newMatch(l, id, host, data)
	l.matches[id] = m
	count := len(l.matches)
	l.mu.Unlock()

	metrics.ActiveMatches.Set(float64(count))

	ch := chat.NewTemporary(m.ChannelName(), "Multiplayer room talk.")
	l.channels.Add(ch)

	m.Join(host, data.Password)
	l.broadcast(packets.ResponseMatchNew, m.Data(false))

	slog.Info("match created", "match", id, "name", data.Name, "host", host.Name())
	return m
}

// Match находит комнату по id.
func (l *Lobby) Match(id uint16) *Match {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.matches[id]
}

// Matches возвращает снимок комнат.
func (l *Lobby) Matches() []*Match {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Match, 0, len(l.matches))
	for _, m := range l.matches {
		out = append(out, m)
	}
	return out
}

// Len возвращает число комнат.
func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.matches)
}

// dispose убирает опустевшую комнату: канал удаляется, лобби получает
// MATCH_DISBAND.
func (l *Lobby) dispose(m *Match) {
	id := m.MatchID()

	l.mu.Lock()
	if _, ok := l.matches[id]; !ok {
		l.mu.Unlock()
		return
	}
	delete(l.matches, id)
	count := len(l.matches)
	l.mu.Unlock()

	metrics.ActiveMatches.Set(float64(count))

	l.channels.Delete(m.ChannelName())
	l.broadcast(packets.ResponseMatchDisband, int32(id))

	slog.Info("match disposed", "match", id)
}

// broadcast кладёт пакет всем сессиям в лобби.
func (l *Lobby) broadcast(pkt packets.Response, value any) {
	l.mu.Lock()
	members := make([]*session.Player, 0, len(l.members))
	for _, p := range l.members {
		members = append(members, p)
	}
	l.mu.Unlock()

	for _, p := range members {
		p.SendPacket(pkt, value)
	}
}
