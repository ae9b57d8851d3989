package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceHTTP      = "http"
	SourceTCP       = "tcp"
	SourceWebSocket = "websocket"
)

var (
	// MessagesAppended - messages written to the log, by ingress path.
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanchat_messages_appended_total",
			Help: "Total number of messages appended to the message log",
		},
		[]string{"source"},
	)

	// MalformedPayloads - relay frames dropped because they did not parse.
	MalformedPayloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanchat_malformed_payloads_total",
			Help: "Total number of relay frames discarded as malformed",
		},
		[]string{"source"},
	)

	// PeersConnected - currently registered peer connections.
	PeersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lanchat_peers_connected",
		Help: "Number of peer connections currently registered",
	})

	// BroadcastDeliveries - successful sends during fan-out.
	BroadcastDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanchat_broadcast_deliveries_total",
		Help: "Total number of payloads delivered to peers",
	})

	// PeersEvicted - peers dropped after a failed send.
	PeersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanchat_peers_evicted_total",
		Help: "Total number of peers removed after a failed send",
	})
)
