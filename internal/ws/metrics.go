package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of live chat connections",
		},
	)

	messagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Total number of chat messages persisted from live sessions",
		},
	)

	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_deliveries_total",
			Help: "Broadcast deliveries by outcome",
		},
		[]string{"outcome"},
	)

	prunedConnections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_pruned_connections_total",
			Help: "Connections removed after a failed send",
		},
	)
)
