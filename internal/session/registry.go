package session

import (
	"sort"
	"sync"

	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/packets"
)

// Registry — реестр онлайн-сессий. Три индекса держатся согласованными
// под одним RWMutex: по id, по нормализованному имени и по HTTP-токену.
type Registry struct {
	mu         sync.RWMutex
	byID       map[int32]*Player
	bySafeName map[string]*Player
	byToken    map[string]*Player
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[int32]*Player),
		bySafeName: make(map[string]*Player),
		byToken:    make(map[string]*Player),
	}
}

// Append регистрирует сессию. Если пользователь уже онлайн, старая сессия
// вытесняется: возвращается для закрытия вызывающим.
func (r *Registry) Append(p *Player) (displaced *Player) {
	id := p.ID()
	name := db.SafeName(p.Name())
	token := p.Token()

	r.mu.Lock()
	if old, ok := r.byID[id]; ok {
		displaced = old
		r.removeLocked(old)
	}
	r.byID[id] = p
	r.bySafeName[name] = p
	if token != "" {
		r.byToken[token] = p
	}
	count := len(r.byID)
	r.mu.Unlock()

	metrics.OnlinePlayers.Set(float64(count))
	return displaced
}

// Remove убирает сессию из реестра. Возвращает false, если сессии там
// уже нет (повторное отключение).
func (r *Registry) Remove(p *Player) bool {
	r.mu.Lock()
	current, ok := r.byID[p.ID()]
	if !ok || current != p {
		r.mu.Unlock()
		return false
	}
	r.removeLocked(p)
	count := len(r.byID)
	r.mu.Unlock()

	metrics.OnlinePlayers.Set(float64(count))
	return true
}

func (r *Registry) removeLocked(p *Player) {
	delete(r.byID, p.ID())
	delete(r.bySafeName, db.SafeName(p.Name()))
	if token := p.Token(); token != "" {
		delete(r.byToken, token)
	}
}

// ByID находит сессию по id пользователя.
func (r *Registry) ByID(id int32) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// ByName находит сессию по имени (без учёта регистра и пробелов).
func (r *Registry) ByName(name string) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySafeName[db.SafeName(name)]
}

// ByToken находит HTTP-сессию по cho-token.
func (r *Registry) ByToken(token string) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byToken[token]
}

// All возвращает снимок всех сессий, отсортированный по id.
func (r *Registry) All() []*Player {
	r.mu.RLock()
	out := make([]*Player, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len возвращает число сессий онлайн.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// TCPClients возвращает сессии tcp-транспорта.
func (r *Registry) TCPClients() []*Player {
	return r.filter(func(p *Player) bool { return p.Transport() == TransportTCP && !p.IsBot() })
}

// HTTPClients возвращает сессии http-транспорта.
func (r *Registry) HTTPClients() []*Player {
	return r.filter(func(p *Player) bool { return p.Transport() == TransportHTTP })
}

func (r *Registry) filter(keep func(*Player) bool) []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Player, 0, len(r.byID))
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// SendPacket кладёт пакет каждой онлайн-сессии.
func (r *Registry) SendPacket(pkt packets.Response, value any) {
	for _, p := range r.All() {
		p.SendPacket(pkt, value)
	}
}

// Announce рассылает объявление всем.
func (r *Registry) Announce(msg string) {
	r.SendPacket(packets.ResponseAnnounce, msg)
}
