package bancho

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/udisondev/gobancho/internal/events"
	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/multiplayer"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
)

type handlerFunc func(ctx context.Context, p *session.Player, value any)

// Dispatch разбирает входящий кадр и зовёт обработчик. Ошибки декодера
// и паники обработчика логируются, сессия живёт дальше.
func (b *Bancho) Dispatch(ctx context.Context, p *session.Player, id uint16, payload []byte) {
	p.Touch()

	req := packets.Request(id)
	if !req.Known() {
		slog.Debug("unknown packet id", "id", id, "player", p.Name())
		return
	}
	metrics.PacketsIn.Inc()

	value, err := p.Decoders().Decode(req, protocol.NewReader(payload))
	if err != nil {
		slog.Error("failed to decode packet", "packet", req.String(), "player", p.Name(), "error", err)
		return
	}

	h, ok := b.handlers[req]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panicked", "packet", req.String(), "player", p.Name(),
				"panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(ctx, p, value)
}

func (b *Bancho) registerHandlers() {
	b.handlers = map[packets.Request]handlerFunc{
		packets.RequestChangeStatus:        b.handleChangeStatus,
		packets.RequestSendMessage:         b.handleSendMessage,
		packets.RequestExit:                b.handleExit,
		packets.RequestRequestStatus:       b.handleRequestStatus,
		packets.RequestPong:                b.handlePong,
		packets.RequestStartSpectating:     b.handleStartSpectating,
		packets.RequestStopSpectating:      b.handleStopSpectating,
		packets.RequestSendFrames:          b.handleSendFrames,
		packets.RequestErrorReport:         b.handleErrorReport,
		packets.RequestCantSpectate:        b.handleCantSpectate,
		packets.RequestSendPrivateMessage:  b.handlePrivateMessage,
		packets.RequestPartLobby:           b.handlePartLobby,
		packets.RequestJoinLobby:           b.handleJoinLobby,
		packets.RequestCreateMatch:         b.handleCreateMatch,
		packets.RequestJoinMatch:           b.handleJoinMatch,
		packets.RequestLeaveMatch:          b.handleLeaveMatch,
		packets.RequestMatchChangeSlot:     b.handleMatchChangeSlot,
		packets.RequestMatchReady:          b.handleMatchReady,
		packets.RequestMatchLock:           b.handleMatchLock,
		packets.RequestMatchChangeSettings: b.handleMatchChangeSettings,
		packets.RequestMatchStart:          b.handleMatchStart,
		packets.RequestMatchScoreUpdate:    b.handleMatchScoreUpdate,
		packets.RequestMatchComplete:       b.handleMatchComplete,
		packets.RequestMatchChangeMods:     b.handleMatchChangeMods,
		packets.RequestMatchLoadComplete:   b.handleMatchLoadComplete,
		packets.RequestMatchNoBeatmap:      b.handleMatchNoBeatmap,
		packets.RequestMatchNotReady:       b.handleMatchNotReady,
		packets.RequestMatchFailed:         b.handleMatchFailed,
		packets.RequestMatchHasBeatmap:     b.handleMatchHasBeatmap,
		packets.RequestMatchSkip:           b.handleMatchSkip,
		packets.RequestJoinChannel:         b.handleJoinChannel,
		packets.RequestMatchTransferHost:   b.handleMatchTransferHost,
		packets.RequestAddFriend:           b.handleAddFriend,
		packets.RequestRemoveFriend:        b.handleRemoveFriend,
		packets.RequestMatchChangeTeam:     b.handleMatchChangeTeam,
		packets.RequestLeaveChannel:        b.handleLeaveChannel,
		packets.RequestReceiveUpdates:      b.handleReceiveUpdates,
		packets.RequestSetAwayMessage:      b.handleSetAwayMessage,
		packets.RequestStatsRequest:        b.handleStatsRequest,
		packets.RequestMatchInvite:         b.handleMatchInvite,
		packets.RequestMatchChangePassword: b.handleMatchChangePassword,
		packets.RequestPresenceRequest:     b.handlePresenceRequest,
		packets.RequestPresenceRequestAll:  b.handlePresenceRequestAll,
		packets.RequestChangeFriendonlyDMs: b.handleChangeFriendonlyDMs,
	}
}

func (b *Bancho) handleChangeStatus(_ context.Context, p *session.Player, value any) {
	status, ok := value.(packets.StatusUpdate)
	if !ok {
		return
	}
	p.SetStatus(status)

	stats := p.StatsPacket()
	for _, other := range b.Registry.All() {
		other.SendPacket(packets.ResponseUserStats, stats)
	}
}

func (b *Bancho) handleSendMessage(_ context.Context, p *session.Player, value any) {
	msg, ok := value.(packets.Message)
	if !ok {
		return
	}
	ch := b.Channels.Resolve(p, msg.Target)
	if ch == nil {
		slog.Debug("message to unknown channel", "target", msg.Target, "player", p.Name())
		return
	}
	ch.Send(p, msg.Content)
}

func (b *Bancho) handlePrivateMessage(_ context.Context, p *session.Player, value any) {
	msg, ok := value.(packets.Message)
	if !ok {
		return
	}
	target := b.Registry.ByName(msg.Target)
	if target == nil {
		return
	}
	b.Channels.SendPrivate(p, target, msg.Content)
}

func (b *Bancho) handleExit(_ context.Context, p *session.Player, _ any) {
	p.Close()
}

func (b *Bancho) handleRequestStatus(_ context.Context, p *session.Player, _ any) {
	p.EnqueueStats(p)
}

func (b *Bancho) handlePong(_ context.Context, _ *session.Player, _ any) {
	// last_response уже обновлён в Dispatch
}

func (b *Bancho) handleStartSpectating(_ context.Context, p *session.Player, value any) {
	hostID, ok := value.(int32)
	if !ok {
		return
	}
	host := b.Registry.ByID(hostID)
	if host == nil || host.IsBot() {
		return
	}
	b.Hub.Start(p, host)
}

func (b *Bancho) handleStopSpectating(_ context.Context, p *session.Player, _ any) {
	b.Hub.Stop(p)
}

func (b *Bancho) handleSendFrames(_ context.Context, p *session.Player, value any) {
	bundle, ok := value.(packets.ReplayFrameBundle)
	if !ok {
		return
	}
	b.Hub.Frames(p, bundle)
}

func (b *Bancho) handleCantSpectate(_ context.Context, p *session.Player, _ any) {
	b.Hub.CantSpectate(p)
}

func (b *Bancho) handleErrorReport(ctx context.Context, p *session.Player, value any) {
	stack, _ := value.(string)
	slog.Warn("client error report", "player", p.Name(), "stack", stack)
	b.Bus.Fire(ctx, events.OsuError, p.ID())
}

func (b *Bancho) handleJoinLobby(_ context.Context, p *session.Player, _ any) {
	b.Lobby.Join(p)
}

func (b *Bancho) handlePartLobby(_ context.Context, p *session.Player, _ any) {
	b.Lobby.Part(p)
}

func (b *Bancho) handleCreateMatch(_ context.Context, p *session.Player, value any) {
	data, ok := value.(packets.MatchData)
	if !ok {
		return
	}
	b.Lobby.Create(p, data)
}

func (b *Bancho) handleJoinMatch(_ context.Context, p *session.Player, value any) {
	join, ok := value.(packets.MatchJoin)
	if !ok {
		return
	}
	m := b.Lobby.Match(uint16(join.MatchID))
	if m == nil {
		p.SendPacket(packets.ResponseMatchJoinFail, nil)
		return
	}
	m.Join(p, join.Password)
}

func (b *Bancho) handleLeaveMatch(_ context.Context, p *session.Player, _ any) {
	if m := p.Match(); m != nil {
		m.Leave(p)
	}
}

func (b *Bancho) handleMatchChangeSlot(_ context.Context, p *session.Player, value any) {
	slotID, ok := value.(int32)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.ChangeSlot(p, int(slotID))
	}
}

func (b *Bancho) handleMatchReady(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.Ready(p)
	}
}

func (b *Bancho) handleMatchNotReady(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.NotReady(p)
	}
}

func (b *Bancho) handleMatchNoBeatmap(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.NoMap(p)
	}
}

func (b *Bancho) handleMatchHasBeatmap(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.HasMap(p)
	}
}

func (b *Bancho) handleMatchLock(_ context.Context, p *session.Player, value any) {
	slotID, ok := value.(int32)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.LockSlot(p, int(slotID))
	}
}

func (b *Bancho) handleMatchChangeSettings(_ context.Context, p *session.Player, value any) {
	data, ok := value.(packets.MatchData)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.ChangeSettings(p, data)
	}
}

func (b *Bancho) handleMatchChangeMods(_ context.Context, p *session.Player, value any) {
	mods, ok := value.(int32)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.ChangeMods(p, packets.Mods(mods))
	}
}

func (b *Bancho) handleMatchChangeTeam(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.ChangeTeam(p)
	}
}

func (b *Bancho) handleMatchTransferHost(_ context.Context, p *session.Player, value any) {
	slotID, ok := value.(int32)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.TransferHost(p, int(slotID))
	}
}

func (b *Bancho) handleMatchChangePassword(_ context.Context, p *session.Player, value any) {
	password, ok := value.(string)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.ChangePassword(p, password)
	}
}

func (b *Bancho) handleMatchStart(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.Start(p)
	}
}

func (b *Bancho) handleMatchScoreUpdate(_ context.Context, p *session.Player, value any) {
	frame, ok := value.(packets.ScoreFrame)
	if !ok {
		return
	}
	if m := b.matchOf(p); m != nil {
		m.ScoreFrame(p, frame)
	}
}

func (b *Bancho) handleMatchLoadComplete(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.LoadComplete(p)
	}
}

func (b *Bancho) handleMatchComplete(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.PlayerComplete(p)
	}
}

func (b *Bancho) handleMatchFailed(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.PlayerFailed(p)
	}
}

func (b *Bancho) handleMatchSkip(_ context.Context, p *session.Player, _ any) {
	if m := b.matchOf(p); m != nil {
		m.SkipRequest(p)
	}
}

func (b *Bancho) handleMatchInvite(_ context.Context, p *session.Player, value any) {
	targetID, ok := value.(int32)
	if !ok {
		return
	}
	m := p.Match()
	if m == nil {
		return
	}
	target := b.Registry.ByID(targetID)
	if target == nil || target.IsBot() {
		return
	}

	invite := packets.Message{
		Sender:   p.Name(),
		Content:  fmt.Sprintf("Come join my game: [osump://%d/ %s's match]", m.MatchID(), p.Name()),
		Target:   target.Name(),
		SenderID: p.ID(),
	}
	target.SendPacket(packets.ResponseInvite, invite)
}

func (b *Bancho) handleJoinChannel(_ context.Context, p *session.Player, value any) {
	name, ok := value.(string)
	if !ok {
		return
	}
	ch := b.Channels.Resolve(p, name)
	if ch == nil {
		return
	}
	if ch.Join(p) {
		b.broadcastChannelInfo(ch)
	}
}

func (b *Bancho) handleLeaveChannel(_ context.Context, p *session.Player, value any) {
	name, ok := value.(string)
	if !ok {
		return
	}
	ch := b.Channels.Resolve(p, name)
	if ch == nil {
		return
	}
	ch.Remove(p)
	b.broadcastChannelInfo(ch)
}

func (b *Bancho) handleAddFriend(ctx context.Context, p *session.Player, value any) {
	targetID, ok := value.(int32)
	if !ok || targetID == p.ID() {
		return
	}
	if err := b.repo.AddRelationship(ctx, p.ID(), targetID); err != nil {
		slog.Error("failed to add friend", "player", p.Name(), "target", targetID, "error", err)
		return
	}
	p.AddFriend(targetID)
}

func (b *Bancho) handleRemoveFriend(ctx context.Context, p *session.Player, value any) {
	targetID, ok := value.(int32)
	if !ok {
		return
	}
	if err := b.repo.RemoveRelationship(ctx, p.ID(), targetID); err != nil {
		slog.Error("failed to remove friend", "player", p.Name(), "target", targetID, "error", err)
		return
	}
	p.RemoveFriend(targetID)
}

func (b *Bancho) handleReceiveUpdates(_ context.Context, p *session.Player, value any) {
	filter, ok := value.(int32)
	if !ok {
		return
	}
	p.SetFilter(packets.PresenceFilter(filter))
}

func (b *Bancho) handleSetAwayMessage(_ context.Context, p *session.Player, value any) {
	msg, ok := value.(packets.Message)
	if !ok {
		return
	}
	p.SetAwayMessage(msg.Content)
	if msg.Content == "" {
		b.Channels.SendPrivate(b.bot, p, "You are no longer marked as away.")
		return
	}
	b.Channels.SendPrivate(b.bot, p, "You are now marked as away: "+msg.Content)
}

func (b *Bancho) handleStatsRequest(_ context.Context, p *session.Player, value any) {
	ids, ok := value.([]int32)
	if !ok {
		return
	}
	for _, id := range ids {
		if other := b.Registry.ByID(id); other != nil {
			p.EnqueueStats(other)
		}
	}
}

func (b *Bancho) handlePresenceRequest(_ context.Context, p *session.Player, value any) {
	ids, ok := value.([]int32)
	if !ok {
		return
	}
	for _, id := range ids {
		if other := b.Registry.ByID(id); other != nil {
			p.EnqueuePresence(other)
		}
	}
}

func (b *Bancho) handlePresenceRequestAll(_ context.Context, p *session.Player, _ any) {
	for _, other := range b.Registry.All() {
		if other.ID() != p.ID() {
			p.EnqueuePresence(other)
		}
	}
}

func (b *Bancho) handleChangeFriendonlyDMs(_ context.Context, p *session.Player, value any) {
	v, ok := value.(int32)
	if !ok {
		return
	}
	p.SetFriendonlyDMs(v == 1)
}

// matchOf возвращает комнату p как *multiplayer.Match.
func (b *Bancho) matchOf(p *session.Player) *multiplayer.Match {
	ref := p.Match()
	if ref == nil {
		return nil
	}
	return b.Lobby.Match(ref.MatchID())
}
