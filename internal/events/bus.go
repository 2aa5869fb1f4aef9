package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Имена событий, которые поднимает сервер. Подписчики регистрируются
// по имени; полезная нагрузка у каждого события своя.
const (
	UserUpdate   = "user_update"  // int32: перечитать пользователя из БД
	BotMessage   = "bot_message"  // BotMessagePayload
	Restrict     = "restrict"     // RestrictPayload
	Silence      = "silence"      // SilencePayload
	Announcement = "announcement" // AnnouncementPayload
	OsuError     = "osu_error"    // int32: клиент прислал стек ошибки
	Shutdown     = "shutdown"     // nil: сервер останавливается
)

// BotMessagePayload — сообщение бота в канал или личку.
type BotMessagePayload struct {
	Target  string
	Message string
}

// RestrictPayload — ограничение аккаунта.
type RestrictPayload struct {
	UserID  int32
	Reason  string
	Autoban bool
	Until   *time.Time
}

// SilencePayload — наложенное на пользователя молчание.
type SilencePayload struct {
	UserID  int32
	Seconds int32
	Reason  string
}

// AnnouncementPayload — объявление; пустой Target значит всем.
type AnnouncementPayload struct {
	Target  string
	Message string
}

// Handler обрабатывает событие. Паника подписчика гасится шиной.
type Handler func(ctx context.Context, payload any)

// Bus — процессная шина событий. Подписки собираются на старте; Fire
// зовёт подписчиков синхронно в порядке регистрации.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Register подписывает handler на событие name.
func (b *Bus) Register(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Fire поднимает событие. Событие без подписчиков — не ошибка.
func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	handlers := b.handlers[name]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(ctx, name, h, payload)
	}
}

func (b *Bus) call(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event", name, "panic", r)
		}
	}()
	h(ctx, payload)
}

// FireAsync поднимает событие в отдельной горутине. Для путей, где
// вызывающему нельзя блокироваться на подписчиках.
func (b *Bus) FireAsync(ctx context.Context, name string, payload any) {
	go b.Fire(ctx, name, payload)
}
