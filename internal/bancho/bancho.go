package bancho

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/gobancho/internal/chat"
	"github.com/udisondev/gobancho/internal/config"
	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/events"
	"github.com/udisondev/gobancho/internal/multiplayer"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/ranking"
	"github.com/udisondev/gobancho/internal/session"
	"github.com/udisondev/gobancho/internal/spectator"
)

// Repository — срез слоя БД, нужный серверу сессий.
type Repository interface {
	UserByID(ctx context.Context, id int32) (*db.User, error)
	UserByName(ctx context.Context, name string) (*db.User, error)
	UpdateUser(ctx context.Context, id int32, updates map[string]any) error
	FetchStats(ctx context.Context, userID int32) ([]db.Stats, error)
	CreateStats(ctx context.Context, userID int32, mode uint8) (db.Stats, error)
	UpdateStats(ctx context.Context, userID int32, mode uint8, updates map[string]any) error
	UpdateRankHistory(ctx context.Context, userID int32, mode uint8, rank int32, country string) error
	AddRelationship(ctx context.Context, userID, targetID int32) error
	RemoveRelationship(ctx context.Context, userID, targetID int32) error
	HideScores(ctx context.Context, userID int32) error
	UpdateClients(ctx context.Context, userID int32, updates map[string]any) error
	CreateInfringement(ctx context.Context, userID int32, action int16, length *time.Time, description string, permanent bool) error
}

// PasswordVerifier сверяет md5-пароль клиента с хэшем из БД.
type PasswordVerifier interface {
	Verify(passwordMD5, storedHash string) bool
}

// BcryptVerifier — боевая реализация: в БД лежит bcrypt от md5 пароля.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(passwordMD5, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(passwordMD5)) == nil
}

// Bancho — ядро сервера сессий: связывает реестр, чат, спектейт,
// мультиплеер, шину событий и коллабораторов БД/рейтингов.
type Bancho struct {
	cfg config.Bancho

	repo         Repository
	passwords    PasswordVerifier
	leaderboards ranking.Leaderboards
	geo          session.GeoResolver

	Registry *session.Registry
	Channels *chat.Manager
	Lobby    *multiplayer.Lobby
	Hub      *spectator.Hub
	Bus      *events.Bus

	bot      *session.Player
	handlers map[packets.Request]handlerFunc
}

// New собирает сервер. Бот создаётся из строки пользователя botUser и
// сразу попадает в реестр.
func New(
	cfg config.Bancho,
	repo Repository,
	passwords PasswordVerifier,
	leaderboards ranking.Leaderboards,
	geo session.GeoResolver,
	botUser *db.User,
) *Bancho {
	channels := chat.NewManager()
	b := &Bancho{
		cfg:          cfg,
		repo:         repo,
		passwords:    passwords,
		leaderboards: leaderboards,
		geo:          geo,
		Registry:     session.NewRegistry(),
		Channels:     channels,
		Lobby:        multiplayer.NewLobby(channels),
		Hub:          spectator.NewHub(channels),
		Bus:          events.NewBus(),
	}

	b.bot = session.NewBot(botUser)
	b.Registry.Append(b.bot)
	for _, ch := range channels.Listed(packets.Permissions(botUser.Permissions)) {
		ch.Join(b.bot)
	}

	b.registerHandlers()
	b.registerEvents()
	return b
}

// Bot возвращает сессию бота.
func (b *Bancho) Bot() *session.Player {
	return b.bot
}

// BotMessage отправляет сообщение бота в канал или личку target.
func (b *Bancho) BotMessage(target, message string) {
	if ch := b.Channels.Get(target); ch != nil {
		ch.SendBot(b.bot, message)
		return
	}
	if p := b.Registry.ByName(target); p != nil {
		b.Channels.SendPrivate(b.bot, p, message)
	}
}

// broadcastChannelInfo рассылает обновлённый счётчик участников всем,
// кто видит канал. Временные каналы в список не попадают.
func (b *Bancho) broadcastChannelInfo(ch *chat.Channel) {
	if ch.Temporary() {
		return
	}
	info := ch.Info()
	for _, p := range b.Registry.All() {
		if ch.CanRead(p.Permissions()) {
			p.SendPacket(packets.ResponseChannelAvailable, info)
		}
	}
}

// Disconnect выполняет цепочку отключения сессии: убрать из реестра,
// покинуть каналы, спектейт и комнату, оповестить остальных.
// Устанавливается как onClose каждой сессии.
func (b *Bancho) Disconnect(p *session.Player) {
	if !b.Registry.Remove(p) {
		// вытесненная сессия: реестр уже занят новой, общие структуры
		// трогать нельзя
		return
	}

	b.Hub.StopAll(p)
	b.Hub.Stop(p)

	if m := p.Match(); m != nil {
		m.Leave(p)
	}
	b.Lobby.Part(p)
	b.Channels.PartAll(p)

	quit := packets.UserQuit{UserID: p.ID(), State: packets.QuitStateGone}
	for _, other := range b.Registry.All() {
		other.SendPacket(packets.ResponseUserQuit, quit)
	}

	slog.Info("session disconnected", "player", p.Name(), "id", p.ID())
}

// refreshUser перечитывает пользователя из БД и обновляет живую сессию.
func (b *Bancho) refreshUser(ctx context.Context, userID int32) error {
	p := b.Registry.ByID(userID)
	if p == nil {
		return nil
	}

	user, err := b.repo.UserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("refreshing user %d: %w", userID, err)
	}
	if user == nil {
		return nil
	}

	p.SetStats(user.Stats)
	mode := uint8(p.Status().Mode)
	if rank, err := b.leaderboards.GlobalRank(ctx, userID, mode); err == nil {
		p.SetRank(rank)
		// кэшированный ранг в статистике и история меняются вместе
		if err := b.repo.UpdateStats(ctx, userID, mode, map[string]any{"rank": rank}); err != nil {
			slog.Warn("failed to persist rank", "user", userID, "error", err)
		}
		if err := b.repo.UpdateRankHistory(ctx, userID, mode, rank, user.Country); err != nil {
			slog.Warn("failed to record rank history", "user", userID, "error", err)
		}
	}

	stats := p.StatsPacket()
	for _, other := range b.Registry.All() {
		other.SendPacket(packets.ResponseUserStats, stats)
	}
	return nil
}
