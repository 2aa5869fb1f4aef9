package spectator

import (
	"log/slog"

	"github.com/udisondev/gobancho/internal/chat"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

// Hub управляет спектейтом: наблюдатели подписываются на хоста, хост
// пересылает им кадры реплея. На время спектейта живёт временный канал
// #spec_<host_id>, в котором состоят хост и его наблюдатели.
type Hub struct {
	channels *chat.Manager
}

// NewHub создаёт хаб поверх менеджера каналов.
func NewHub(channels *chat.Manager) *Hub {
	return &Hub{channels: channels}
}

// Start подписывает spectator на host. Если наблюдатель уже смотрел
// кого-то другого, старая подписка снимается. Кадры реплея не
// переживают границу поколений протокола, поэтому несовместимый
// наблюдатель получает отказ сразу.
func (h *Hub) Start(spectator, host *session.Player) {
	if spectator.ID() == host.ID() {
		return
	}

	if prev := spectator.Spectating(); prev != nil {
		if prev.ID() == host.ID() {
			return
		}
		h.Stop(spectator)
	}

	specVer := packets.Default.ResolveVersion(spectator.Client().Version.Date)
	hostVer := packets.Default.ResolveVersion(host.Client().Version.Date)
	if specVer != hostVer {
		spectator.SendPacket(packets.ResponseCantSpectate, spectator.ID())
		return
	}

	chName := chat.SpectatorChannelName(host.ID())
	ch := h.channels.Get(chName)
	if ch == nil {
		ch = chat.NewTemporary(chName, "Spectator talk.")
		h.channels.Add(ch)
		ch.Join(host)
	}

	host.AddSpectator(spectator)
	spectator.SetSpectating(host)
	ch.Join(spectator)

	host.SendPacket(packets.ResponseSpectatorJoined, spectator.ID())
	for _, fellow := range host.Spectators() {
		if fellow.ID() == spectator.ID() {
			continue
		}
		fellow.SendPacket(packets.ResponseFellowSpectatorJoined, spectator.ID())
	}

	slog.Debug("spectator joined", "spectator", spectator.Name(), "host", host.Name())
}

// Stop снимает подписку spectator с его хоста. Последний ушедший
// наблюдатель закрывает канал спектейта.
func (h *Hub) Stop(spectator *session.Player) {
	host := spectator.Spectating()
	if host == nil {
		return
	}
	spectator.SetSpectating(nil)
	remaining := host.RemoveSpectator(spectator)

	chName := chat.SpectatorChannelName(host.ID())
	if ch := h.channels.Get(chName); ch != nil {
		ch.Remove(spectator)
	}

	host.SendPacket(packets.ResponseSpectatorLeft, spectator.ID())
	for _, fellow := range host.Spectators() {
		fellow.SendPacket(packets.ResponseFellowSpectatorLeft, spectator.ID())
	}

	if remaining == 0 {
		if ch := h.channels.Get(chName); ch != nil {
			ch.Remove(host)
		}
		h.channels.Delete(chName)
	}

	slog.Debug("spectator left", "spectator", spectator.Name(), "host", host.Name())
}

// StopAll отписывает всех наблюдателей хоста. Вызывается при его
// отключении.
func (h *Hub) StopAll(host *session.Player) {
	for _, s := range host.Spectators() {
		h.Stop(s)
	}
}

// Frames пересылает пачку кадров реплея хоста всем его наблюдателям.
// Содержимое пачки сервер не разбирает.
func (h *Hub) Frames(host *session.Player, bundle packets.ReplayFrameBundle) {
	for _, s := range host.Spectators() {
		s.SendPacket(packets.ResponseSpectateFrames, bundle)
	}
}

// CantSpectate ретранслирует жалобу наблюдателя без карты хосту и
// остальным наблюдателям.
func (h *Hub) CantSpectate(spectator *session.Player) {
	host := spectator.Spectating()
	if host == nil {
		return
	}

	host.SendPacket(packets.ResponseCantSpectate, spectator.ID())
	for _, fellow := range host.Spectators() {
		if fellow.ID() == spectator.ID() {
			continue
		}
		fellow.SendPacket(packets.ResponseCantSpectate, spectator.ID())
	}
}
