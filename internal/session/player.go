package session

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/metrics"
	"github.com/udisondev/gobancho/internal/packets"
)

// Transport — способ доставки пакетов сессии.
type Transport uint8

const (
	TransportTCP Transport = iota
	TransportHTTP
	TransportIRC
)

func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportHTTP:
		return "http"
	case TransportIRC:
		return "irc"
	default:
		return "unknown"
	}
}

// ChannelRef — канал, в котором состоит сессия. Интерфейс разрывает цикл
// session <-> chat: обратная навигация нужна только для выхода.
type ChannelRef interface {
	Name() string
	Remove(p *Player)
}

// MatchRef — комната, в которой состоит сессия.
type MatchRef interface {
	MatchID() uint16
	ChannelName() string
	InProgress() bool
	Leave(p *Player)
	Abort()
}

// Player — состояние одного аутентифицированного подключения.
// Мьютекс покрывает личность, статус и членства; исходящий буфер защищён
// отдельным мьютексом, lastResponse — атомарный (горячий путь).
type Player struct {
	transport Transport
	addr      string
	bot       bool

	mu            sync.Mutex
	id            int32
	name          string
	token         string
	client        *OsuClient
	user          *db.User
	stats         []db.Stats
	status        packets.StatusUpdate
	filter        packets.PresenceFilter
	awayMessage   string
	silenceEnd    time.Time
	friendonlyDMs bool

	channels map[string]ChannelRef

	spectating *Player
	spectators map[int32]*Player

	match   MatchRef
	inLobby bool

	lastResponse atomic.Int64 // unix nano

	decoders packets.DecoderTable
	encoders packets.EncoderTable

	outMu  sync.Mutex
	out    []byte
	notify chan struct{}

	closed      atomic.Bool
	onClose     func(*Player)
	messageHook func(packets.Message)
}

// NewPlayer создаёт неаутентифицированную сессию. id = -1 до логина.
func NewPlayer(transport Transport, addr string) *Player {
	p := &Player{
		transport:  transport,
		addr:       addr,
		id:         -1,
		filter:     packets.PresenceFilterAll,
		channels:   make(map[string]ChannelRef),
		spectators: make(map[int32]*Player),
		notify:     make(chan struct{}, 1),
	}
	p.Touch()
	return p
}

// NewBot создаёт сессию бота. Бот не имеет транспорта: его исходящие
// пакеты никуда не пишутся.
func NewBot(user *db.User) *Player {
	p := NewPlayer(TransportTCP, "127.0.0.1")
	p.bot = true
	p.id = -user.ID
	p.name = user.Name
	p.user = user
	p.stats = user.Stats
	p.client = EmptyClient()
	p.client.Geo = Geo{Country: "OC", City: "w00t p00t!"}
	dec, enc := packets.Resolve(p.client.Version.Date)
	p.decoders, p.encoders = dec, enc
	return p
}

// NewIRC создаёт сессию IRC-шлюза. Отрицательный id отличает её от
// osu-клиентов; пакетный кодек ей не нужен — сообщения перехватывает
// текстовый транспорт через SetMessageHook.
func NewIRC(user *db.User, addr string) *Player {
	p := NewPlayer(TransportIRC, addr)
	p.id = -user.ID
	p.name = user.Name
	p.user = user
	p.stats = user.Stats
	p.client = EmptyClient()
	p.silenceEnd = user.SilenceEnd
	p.friendonlyDMs = user.FriendonlyDMs
	return p
}

// SetMessageHook перенаправляет входящие сообщения чата в fn вместо
// пакетной очереди. Используется IRC-шлюзом.
func (p *Player) SetMessageHook(fn func(packets.Message)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messageHook = fn
}

// Transport возвращает транспорт сессии.
func (p *Player) Transport() Transport { return p.transport }

// Addr возвращает адрес клиента.
func (p *Player) Addr() string { return p.addr }

// IsBot отмечает сессию бота.
func (p *Player) IsBot() bool { return p.bot }

// ID возвращает id пользователя (-1 до логина, отрицательный у бота и IRC).
func (p *Player) ID() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Name возвращает имя пользователя.
func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// Token возвращает HTTP-токен сессии (пустой для TCP).
func (p *Player) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// SetToken устанавливает HTTP-токен.
func (p *Player) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// Client возвращает отпечаток клиента (nil до логина).
func (p *Player) Client() *OsuClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// User возвращает строку БД, принятую при логине.
func (p *Player) User() *db.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// Adopt принимает личность пользователя: id, имя, объект, статистику,
// предпочитаемый режим и срок молчания.
func (p *Player) Adopt(user *db.User, client *OsuClient, decoders packets.DecoderTable, encoders packets.EncoderTable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = user.ID
	p.name = user.Name
	p.user = user
	p.stats = user.Stats
	p.client = client
	p.status.Mode = packets.GameMode(user.PreferredMode)
	p.silenceEnd = user.SilenceEnd
	p.friendonlyDMs = user.FriendonlyDMs
	p.decoders = decoders
	p.encoders = encoders
}

// SetCodecs устанавливает таблицы кодеков (выбираются до проверки пароля,
// чтобы клиент понял отказ).
func (p *Player) SetCodecs(decoders packets.DecoderTable, encoders packets.EncoderTable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decoders = decoders
	p.encoders = encoders
}

// Decoders возвращает таблицу декодеров сессии.
func (p *Player) Decoders() packets.DecoderTable {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decoders
}

// Status возвращает копию статуса.
func (p *Player) Status() packets.StatusUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetStatus заменяет статус целиком.
func (p *Player) SetStatus(s packets.StatusUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

// Filter возвращает фильтр присутствия.
func (p *Player) Filter() packets.PresenceFilter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// SetFilter устанавливает фильтр присутствия.
func (p *Player) SetFilter(f packets.PresenceFilter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
}

// AwayMessage возвращает away-сообщение ("" если не установлено).
func (p *Player) AwayMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.awayMessage
}

// SetAwayMessage устанавливает away-сообщение.
func (p *Player) SetAwayMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awayMessage = msg
}

// Permissions возвращает маску прав.
func (p *Player) Permissions() packets.Permissions {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return packets.PermissionNone
	}
	return packets.Permissions(p.user.Permissions)
}

// Silenced reports whether the user's silence is still running.
func (p *Player) Silenced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.silenceEnd.After(time.Now())
}

// Silence продлевает молчание на duration от текущего момента.
func (p *Player) Silence(duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.silenceEnd = time.Now().Add(duration)
}

// SilenceRemaining возвращает остаток молчания в секундах (0 если нет).
func (p *Player) SilenceRemaining() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	rem := time.Until(p.silenceEnd)
	if rem <= 0 {
		return 0
	}
	return int32(rem / time.Second)
}

// FriendonlyDMs сообщает, принимает ли пользователь ЛС только от друзей.
func (p *Player) FriendonlyDMs() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.friendonlyDMs
}

// SetFriendonlyDMs переключает приём ЛС только от друзей.
func (p *Player) SetFriendonlyDMs(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.friendonlyDMs = v
}

// Friends возвращает id друзей (relationship status 0).
func (p *Player) Friends() []int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	out := make([]int32, 0, len(p.user.Relationships))
	for _, rel := range p.user.Relationships {
		if rel.Status == 0 {
			out = append(out, rel.TargetID)
		}
	}
	return out
}

// IsFriend сообщает, есть ли targetID в списке друзей.
func (p *Player) IsFriend(targetID int32) bool {
	for _, id := range p.Friends() {
		if id == targetID {
			return true
		}
	}
	return false
}

// AddFriend добавляет друга в память сессии (БД обновляет вызывающий).
func (p *Player) AddFriend(targetID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return
	}
	for _, rel := range p.user.Relationships {
		if rel.TargetID == targetID && rel.Status == 0 {
			return
		}
	}
	p.user.Relationships = append(p.user.Relationships, db.Relationship{
		UserID:   p.id,
		TargetID: targetID,
	})
}

// RemoveFriend убирает друга из памяти сессии.
func (p *Player) RemoveFriend(targetID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return
	}
	rels := p.user.Relationships[:0]
	for _, rel := range p.user.Relationships {
		if rel.TargetID != targetID {
			rels = append(rels, rel)
		}
	}
	p.user.Relationships = rels
}

// CurrentStats возвращает статистику текущего режима.
func (p *Player) CurrentStats() *db.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentStatsLocked()
}

func (p *Player) currentStatsLocked() *db.Stats {
	for i := range p.stats {
		if packets.GameMode(p.stats[i].Mode) == p.status.Mode {
			return &p.stats[i]
		}
	}
	return nil
}

// SetStats заменяет статистику (перечитана из БД).
func (p *Player) SetStats(stats []db.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = stats
	if p.user != nil {
		p.user.Stats = stats
	}
}

// SetRank обновляет ранг текущего режима в памяти.
func (p *Player) SetRank(rank int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.currentStatsLocked(); s != nil {
		s.Rank = rank
	}
}

// Presence собирает пакет USER_PRESENCE этой сессии.
func (p *Player) Presence() packets.UserPresence {
	p.mu.Lock()
	defer p.mu.Unlock()

	pres := packets.UserPresence{
		UserID: p.id,
		Name:   p.name,
		Mode:   p.status.Mode,
	}
	if p.user != nil {
		pres.Permissions = packets.Permissions(p.user.Permissions)
	}
	if p.client != nil {
		pres.UTCOffset = p.client.UTCOffset
		pres.CountryIndex = p.client.Geo.CountryIndex
		pres.Longitude = p.client.Geo.Longitude
		pres.Latitude = p.client.Geo.Latitude
	}
	if s := p.currentStatsLocked(); s != nil {
		pres.Rank = s.Rank
	}
	return pres
}

// Stats собирает пакет USER_STATS этой сессии.
func (p *Player) StatsPacket() packets.UserStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := packets.UserStats{
		UserID: p.id,
		Status: p.status,
	}
	if s := p.currentStatsLocked(); s != nil {
		stats.RankedScore = s.RankedScore
		stats.TotalScore = s.TotalScore
		stats.Accuracy = s.Accuracy
		stats.Playcount = s.Playcount
		stats.Rank = s.Rank
		stats.Performance = s.Performance
	}
	return stats
}

// Channels возвращает снимок каналов сессии.
func (p *Player) Channels() []ChannelRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChannelRef, 0, len(p.channels))
	for _, ch := range p.channels {
		out = append(out, ch)
	}
	return out
}

// TrackChannel запоминает членство в канале.
func (p *Player) TrackChannel(ch ChannelRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.Name()] = ch
}

// ForgetChannel забывает членство в канале.
func (p *Player) ForgetChannel(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.channels, name)
}

// InChannel сообщает, состоит ли сессия в канале name.
func (p *Player) InChannel(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[name]
	return ok
}

// Spectating возвращает хоста, за которым наблюдает сессия (nil если нет).
func (p *Player) Spectating() *Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spectating
}

// SetSpectating устанавливает хоста.
func (p *Player) SetSpectating(host *Player) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spectating = host
}

// Spectators возвращает снимок наблюдателей.
func (p *Player) Spectators() []*Player {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Player, 0, len(p.spectators))
	for _, s := range p.spectators {
		out = append(out, s)
	}
	return out
}

// AddSpectator добавляет наблюдателя.
func (p *Player) AddSpectator(s *Player) {
	id := s.ID()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spectators[id] = s
}

// RemoveSpectator убирает наблюдателя. Возвращает число оставшихся.
func (p *Player) RemoveSpectator(s *Player) int {
	id := s.ID()
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.spectators, id)
	return len(p.spectators)
}

// Match возвращает комнату сессии (nil если нет).
func (p *Player) Match() MatchRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.match
}

// SetMatch устанавливает комнату.
func (p *Player) SetMatch(m MatchRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.match = m
}

// InLobby сообщает, смотрит ли сессия список комнат.
func (p *Player) InLobby() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inLobby
}

// SetInLobby переключает присутствие в лобби.
func (p *Player) SetInLobby(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inLobby = v
}

// Touch обновляет отметку последней активности.
func (p *Player) Touch() {
	p.lastResponse.Store(time.Now().UnixNano())
}

// LastResponse возвращает время последней активности.
func (p *Player) LastResponse() time.Time {
	return time.Unix(0, p.lastResponse.Load())
}

// SendPacket кодирует пакет таблицей сессии и кладёт кадр в исходящий
// буфер. Для бота — no-op. Пакеты, не определённые в версии клиента,
// молча пропускаются.
func (p *Player) SendPacket(pkt packets.Response, value any) {
	if p.bot || p.transport == TransportIRC {
		return
	}

	p.mu.Lock()
	enc := p.encoders
	p.mu.Unlock()
	if enc == nil {
		return
	}

	frame, ok, err := enc.Encode(pkt, value)
	if err != nil {
		slog.Warn("failed to encode packet", "packet", pkt.String(), "player", p.Name(), "error", err)
		return
	}
	if !ok {
		return
	}

	p.outMu.Lock()
	p.out = append(p.out, frame...)
	p.outMu.Unlock()
	metrics.PacketsOut.Inc()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Drain забирает накопленный исходящий буфер. TCP-транспорт вызывает его
// из писателя, HTTP — на каждом поллинге.
func (p *Player) Drain() []byte {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	out := p.out
	p.out = nil
	return out
}

// OutboundReady сигналит о появлении данных в исходящем буфере.
func (p *Player) OutboundReady() <-chan struct{} {
	return p.notify
}

// SetOnClose устанавливает цепочку отключения. Вызывается транспортом
// до начала обмена пакетами.
func (p *Player) SetOnClose(fn func(*Player)) {
	p.onClose = fn
}

// Close инициирует отключение. Идемпотентен: цепочка отключения
// выполняется ровно один раз. Токен обнуляется после цепочки: реестр
// удаляет индекс byToken по текущему значению.
func (p *Player) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	if p.onClose != nil {
		p.onClose(p)
	}
	p.SetToken("")
}

// Closed сообщает, закрыта ли сессия.
func (p *Player) Closed() bool {
	return p.closed.Load()
}

// Enqueue helpers — тонкие обёртки над SendPacket, повторяющие словарь
// исходящих пакетов сервера.

func (p *Player) EnqueuePing() { p.SendPacket(packets.ResponsePing, nil) }

func (p *Player) EnqueueAnnouncement(msg string) { p.SendPacket(packets.ResponseAnnounce, msg) }
func (p *Player) EnqueueMessage(m packets.Message) {
	p.mu.Lock()
	hook := p.messageHook
	p.mu.Unlock()
	if hook != nil {
		hook(m)
		return
	}
	p.SendPacket(packets.ResponseSendMessage, m)
}

func (p *Player) EnqueuePresence(of *Player) {
	p.SendPacket(packets.ResponseUserPresence, of.Presence())
}

func (p *Player) EnqueueStats(of *Player) {
	p.SendPacket(packets.ResponseUserStats, of.StatsPacket())
}

func (p *Player) EnqueueChannel(info packets.ChannelInfo, autojoin bool) {
	if autojoin {
		p.SendPacket(packets.ResponseChannelAvailableAutojoin, info)
		return
	}
	p.SendPacket(packets.ResponseChannelAvailable, info)
}

func (p *Player) EnqueueFriends(ids []int32) {
	p.SendPacket(packets.ResponseFriendsList, ids)
}

func (p *Player) EnqueueBlockedDMs(username string) {
	p.SendPacket(packets.ResponseUserDMBlocked, packets.Message{Target: username, SenderID: -1})
}

func (p *Player) EnqueueSilencedTarget(username string) {
	p.SendPacket(packets.ResponseTargetIsSilenced, packets.Message{Target: username, SenderID: -1})
}
