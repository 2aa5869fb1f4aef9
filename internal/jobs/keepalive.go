package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/udisondev/gobancho/internal/session"
)

// Keepalive раз в секунду обходит сессии: живым TCP-клиентам шлёт PING
// после тишины в pingInterval, молчащих дольше timeout отключает.
// HTTP-клиенты пингов не получают — у них нет постоянного соединения,
// для них работает только таймаут.
type Keepalive struct {
	registry     *session.Registry
	pingInterval time.Duration
	timeout      time.Duration

	lastPing map[int32]time.Time
}

// NewKeepalive создаёт джобу над реестром сессий.
func NewKeepalive(registry *session.Registry, pingInterval, timeout time.Duration) *Keepalive {
	return &Keepalive{
		registry:     registry,
		pingInterval: pingInterval,
		timeout:      timeout,
		lastPing:     make(map[int32]time.Time),
	}
}

// Run крутит обход до отмены контекста. Отмена — штатная остановка,
// не ошибка.
func (k *Keepalive) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			k.Sweep(now)
		}
	}
}

// Sweep выполняет один обход. Вынесен отдельно ради тестов.
func (k *Keepalive) Sweep(now time.Time) {
	alive := make(map[int32]struct{})

	for _, p := range k.registry.All() {
		if p.IsBot() {
			continue
		}
		alive[p.ID()] = struct{}{}

		idle := now.Sub(p.LastResponse())
		if idle >= k.timeout {
			slog.Info("session timed out", "player", p.Name(), "idle", idle)
			p.Close()
			continue
		}

		if p.Transport() != session.TransportTCP || idle < k.pingInterval {
			continue
		}
		if last, ok := k.lastPing[p.ID()]; ok && now.Sub(last) < k.pingInterval {
			continue
		}
		p.EnqueuePing()
		k.lastPing[p.ID()] = now
	}

	for id := range k.lastPing {
		if _, ok := alive[id]; !ok {
			delete(k.lastPing, id)
		}
	}
}
