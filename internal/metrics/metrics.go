// Package metrics exposes diagnostic-only counters for the relay. Nothing
// here changes observable protocol behavior; the counters exist so silent
// paths (ignored message types, swallowed collaborator failures) stay
// visible in operation.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_sessions_started_total",
			Help: "Sessions that completed the handshake",
		},
	)

	sessionsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_sessions_finalized_total",
			Help: "Sessions whose transcript was analyzed and persisted",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_sessions",
			Help: "Currently open relay connections",
		},
	)

	unknownMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_unknown_messages_total",
			Help: "Inbound control messages with an unrecognized type",
		},
	)

	collaboratorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_collaborator_failures_total",
			Help: "Failed calls to external collaborators",
		},
		[]string{"stage"},
	)

	initOnce sync.Once
)

// Init registers the relay metrics with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			sessionsStarted,
			sessionsFinalized,
			activeSessions,
			unknownMessages,
			collaboratorFailures,
		)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SessionStarted records a completed handshake.
func SessionStarted() { sessionsStarted.Inc() }

// SessionFinalized records a persisted session log.
func SessionFinalized() { sessionsFinalized.Inc() }

// ConnectionOpened tracks an accepted websocket connection.
func ConnectionOpened() { activeSessions.Inc() }

// ConnectionClosed tracks a closed websocket connection.
func ConnectionClosed() { activeSessions.Dec() }

// UnknownMessage records an ignored control message type.
func UnknownMessage() { unknownMessages.Inc() }

// CollaboratorFailure records a failed external call for the given stage
// (transcription, completion, synthesis, analysis, persistence, tenant).
func CollaboratorFailure(stage string) {
	collaboratorFailures.WithLabelValues(stage).Inc()
}
