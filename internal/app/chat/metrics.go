package chat

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for the chat events counter.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
)

// Metrics collects chat core counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections       prometheus.Gauge
	onlineUsers       prometheus.Gauge
	handshakeFailures prometheus.Counter
	chatEvents        *prometheus.CounterVec
	deliveries        prometheus.Counter
	profilePushes     prometheus.Counter
	watchRejects      prometheus.Counter
}

// NewMetrics creates the chat collectors and registers them on reg,
// or on the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socialchat_connections",
			Help: "Currently open chat connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socialchat_online_users",
			Help: "Users with at least one open chat connection.",
		}),
		handshakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialchat_handshake_failures_total",
			Help: "Connection attempts refused for a missing or invalid session.",
		}),
		chatEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialchat_chat_events_total",
			Help: "Inbound chat events by outcome and rejection code.",
		}, []string{"outcome", "code"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialchat_deliveries_total",
			Help: "Chat frames queued on recipient and sender connections.",
		}),
		profilePushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialchat_profile_pushes_total",
			Help: "Profile-wall messages pushed to watching connections.",
		}),
		watchRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialchat_profile_watch_rejected_total",
			Help: "Malformed profilewatch requests answered with a System notification.",
		}),
	}

	reg.MustRegister(
		m.connections,
		m.onlineUsers,
		m.handshakeFailures,
		m.chatEvents,
		m.deliveries,
		m.profilePushes,
		m.watchRejects,
	)
	return m
}

// SetPresence publishes the current connection and online user counts.
func (m *Metrics) SetPresence(connections, users int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(connections))
	m.onlineUsers.Set(float64(users))
}

// RecordHandshakeFailure counts a connection refused before the upgrade.
func (m *Metrics) RecordHandshakeFailure() {
	if m == nil {
		return
	}
	m.handshakeFailures.Inc()
}

// RecordDelivered counts one delivered chat event queued on frames connections.
func (m *Metrics) RecordDelivered(frames int) {
	if m == nil {
		return
	}
	m.chatEvents.WithLabelValues(OutcomeDelivered, "").Inc()
	m.deliveries.Add(float64(frames))
}

// RecordRejected counts one chat event answered with the given error code.
func (m *Metrics) RecordRejected(code string) {
	if m == nil {
		return
	}
	m.chatEvents.WithLabelValues(OutcomeRejected, code).Inc()
}

// RecordProfilePush counts one profile-wall message queued on a watcher.
func (m *Metrics) RecordProfilePush() {
	if m == nil {
		return
	}
	m.profilePushes.Inc()
}

// RecordWatchRejected counts one malformed profilewatch request.
func (m *Metrics) RecordWatchRejected() {
	if m == nil {
		return
	}
	m.watchRejects.Inc()
}
