// Package metrics defines the relay's Prometheus collectors.
//
// Everything here is registered on the default registry and exposed by the
// /metrics handler in internal/httpserver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection lifecycle.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weavespace_connections_active",
			Help: "Currently connected clients",
		},
	)

	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weavespace_connections_total",
			Help: "Total accepted client connections",
		},
	)

	// Event routing.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weavespace_events_total",
			Help: "Inbound events processed, by event name",
		},
		[]string{"event"},
	)

	DroppedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weavespace_dropped_events_total",
			Help: "Inbound events dropped before routing",
		},
		[]string{"reason"},
	)

	DroppedFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weavespace_dropped_frames_total",
			Help: "Outbound frames dropped because a recipient queue was full",
		},
	)

	SignalsRelayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weavespace_signals_relayed_total",
			Help: "Voice signaling messages relayed, by kind",
		},
		[]string{"kind"},
	)

	// Shared state.
	DocumentShapes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weavespace_document_shapes",
			Help: "Shapes currently in the shared document",
		},
	)

	RoomsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weavespace_rooms_active",
			Help: "Live rooms, by namespace",
		},
		[]string{"namespace"},
	)

	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weavespace_chat_messages_total",
			Help: "Chat messages fanned out",
		},
	)
)

// Drop reasons for DroppedEventsTotal.
const (
	DropReasonMalformed     = "malformed"
	DropReasonRateLimited   = "rate_limited"
	DropReasonUnknownTarget = "unknown_target"
)
