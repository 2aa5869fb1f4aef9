package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики сервера. Регистрируются в реестре prometheus по умолчанию,
// отдаются promhttp-эндпоинтом из cmd/banchod.
var (
	OnlinePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bancho",
		Name:      "online_players",
		Help:      "Number of authenticated sessions.",
	})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bancho",
		Name:      "logins_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	PacketsIn = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bancho",
		Name:      "packets_in_total",
		Help:      "Client packets dispatched to handlers.",
	})

	PacketsOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bancho",
		Name:      "packets_out_total",
		Help:      "Packets enqueued to client sessions.",
	})

	Messages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bancho",
		Name:      "chat_messages_total",
		Help:      "Chat messages routed through channels and DMs.",
	})

	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bancho",
		Name:      "active_matches",
		Help:      "Multiplayer rooms currently alive.",
	})
)
