package bancho

import (
	"context"
	"log/slog"
	"time"

	"github.com/udisondev/gobancho/internal/events"
	"github.com/udisondev/gobancho/internal/packets"
)

// Действия для строк infringements.
const (
	infringementRestrict int16 = 0
	infringementSilence  int16 = 1
)

// registerEvents подписывает ядро на шину. Сторонние компоненты (IRC,
// админские интерфейсы) поднимают события — ядро приводит мир в
// соответствие.
func (b *Bancho) registerEvents() {
	b.Bus.Register(events.UserUpdate, b.onUserUpdate)
	b.Bus.Register(events.BotMessage, b.onBotMessage)
	b.Bus.Register(events.Restrict, b.onRestrict)
	b.Bus.Register(events.Silence, b.onSilence)
	b.Bus.Register(events.Announcement, b.onAnnouncement)
	b.Bus.Register(events.OsuError, b.onOsuError)
	b.Bus.Register(events.Shutdown, b.onShutdown)
}

func (b *Bancho) onUserUpdate(ctx context.Context, payload any) {
	userID, ok := payload.(int32)
	if !ok {
		return
	}
	if err := b.refreshUser(ctx, userID); err != nil {
		slog.Error("user update failed", "user", userID, "error", err)
	}
}

func (b *Bancho) onBotMessage(_ context.Context, payload any) {
	msg, ok := payload.(events.BotMessagePayload)
	if !ok {
		return
	}
	b.BotMessage(msg.Target, msg.Message)
}

func (b *Bancho) onRestrict(ctx context.Context, payload any) {
	r, ok := payload.(events.RestrictPayload)
	if !ok {
		return
	}

	if err := b.repo.UpdateUser(ctx, r.UserID, map[string]any{"restricted": true}); err != nil {
		slog.Error("failed to restrict user", "user", r.UserID, "error", err)
		return
	}
	if err := b.repo.HideScores(ctx, r.UserID); err != nil {
		slog.Error("failed to hide scores", "user", r.UserID, "error", err)
	}
	if err := b.repo.CreateInfringement(ctx, r.UserID, infringementRestrict, r.Until, r.Reason, r.Until == nil); err != nil {
		slog.Error("failed to record infringement", "user", r.UserID, "error", err)
	}

	p := b.Registry.ByID(r.UserID)

	country := ""
	if p != nil && p.User() != nil {
		country = p.User().Country
	} else if user, err := b.repo.UserByID(ctx, r.UserID); err == nil && user != nil {
		country = user.Country
	}
	if err := b.leaderboards.Remove(ctx, r.UserID, country); err != nil {
		slog.Error("failed to drop user from leaderboards", "user", r.UserID, "error", err)
	}

	if p != nil {
		p.SendPacket(packets.ResponseAccountRestricted, nil)
		p.EnqueueAnnouncement("Your account has been restricted: " + r.Reason)
		p.Close()
	}

	slog.Info("user restricted", "user", r.UserID, "reason", r.Reason, "autoban", r.Autoban)
}

func (b *Bancho) onSilence(ctx context.Context, payload any) {
	s, ok := payload.(events.SilencePayload)
	if !ok {
		return
	}

	until := time.Now().Add(time.Duration(s.Seconds) * time.Second)
	if err := b.repo.UpdateUser(ctx, s.UserID, map[string]any{"silence_end": until}); err != nil {
		slog.Error("failed to silence user", "user", s.UserID, "error", err)
		return
	}
	if err := b.repo.CreateInfringement(ctx, s.UserID, infringementSilence, &until, s.Reason, false); err != nil {
		slog.Error("failed to record infringement", "user", s.UserID, "error", err)
	}

	if p := b.Registry.ByID(s.UserID); p != nil {
		p.Silence(time.Duration(s.Seconds) * time.Second)
		p.SendPacket(packets.ResponseSilenceInfo, s.Seconds)
	}

	// остальные клиенты убирают висящие сообщения замолчавшего
	b.Registry.SendPacket(packets.ResponseUserSilenced, s.UserID)

	slog.Info("user silenced", "user", s.UserID, "seconds", s.Seconds, "reason", s.Reason)
}

func (b *Bancho) onAnnouncement(_ context.Context, payload any) {
	a, ok := payload.(events.AnnouncementPayload)
	if !ok {
		return
	}
	if a.Target == "" {
		b.Registry.Announce(a.Message)
		return
	}
	if ch := b.Channels.Get(a.Target); ch != nil {
		for _, m := range ch.Members() {
			m.EnqueueAnnouncement(a.Message)
		}
		return
	}
	if p := b.Registry.ByName(a.Target); p != nil {
		p.EnqueueAnnouncement(a.Message)
	}
}

// onOsuError прерывает идущую игру заваленного клиента. Сам обработчик
// событий не поднимает: рекурсия osu_error недопустима.
func (b *Bancho) onOsuError(_ context.Context, payload any) {
	userID, ok := payload.(int32)
	if !ok {
		return
	}
	p := b.Registry.ByID(userID)
	if p == nil {
		return
	}

	ref := p.Match()
	if ref == nil || !ref.InProgress() {
		return
	}
	ref.Abort()
	if ch := b.Channels.Get(ref.ChannelName()); ch != nil {
		ch.SendBot(b.bot, p.Name()+" has errored out; the match has been aborted.")
	}
}

func (b *Bancho) onShutdown(_ context.Context, _ any) {
	b.Registry.Announce("Server is shutting down.")
	for _, p := range b.Registry.All() {
		if !p.IsBot() {
			p.Close()
		}
	}
}
