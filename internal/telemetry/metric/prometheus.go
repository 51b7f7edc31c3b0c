package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "fergando"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Session metrics
	connectAttempts prometheus.Counter
	disconnects     *prometheus.CounterVec
	established     prometheus.Counter
	reconnectDelay  prometheus.Histogram
	fatal           *prometheus.CounterVec

	// Router metrics
	eventsRouted    *prometheus.CounterVec
	messagesDropped *prometheus.CounterVec
	receipts        *prometheus.CounterVec

	// Command metrics
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	// Storage metrics
	credentialSaves *prometheus.CounterVec
}

// NewRegistry creates a registry with process and Go runtime collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "connect_attempts_total",
			Help:      "Transport connect attempts.",
		}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "disconnects_total",
			Help:      "Connection closes by classified reason.",
		}, []string{"reason"}),
		established: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "established_total",
			Help:      "Session established notifications.",
		}),
		reconnectDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "reconnect_delay_seconds",
			Help:      "Backoff delay chosen before reconnecting.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		fatal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "fatal_total",
			Help:      "Terminal session failures.",
		}, []string{"reason"}),
		eventsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "events_total",
			Help:      "Inbound events routed by kind.",
		}, []string{"kind"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages not dispatched, by cause.",
		}, []string{"cause"}),
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "receipts_total",
			Help:      "Delivery receipts by status.",
		}, []string{"status"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "commands",
			Name:      "dispatched_total",
			Help:      "Dispatched commands by name and result.",
		}, []string{"command", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Command handler duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		credentialSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "credentials",
			Name:      "saves_total",
			Help:      "Credential persistence attempts by result.",
		}, []string{"result"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.connectAttempts,
		r.disconnects,
		r.established,
		r.reconnectDelay,
		r.fatal,
		r.eventsRouted,
		r.messagesDropped,
		r.receipts,
		r.commands,
		r.commandDuration,
		r.credentialSaves,
	)
	return r
}

// Prometheus returns the underlying registry for additional collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.reg.MustRegister(cs...)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ConnectAttempt records a transport connect attempt.
func (r *Registry) ConnectAttempt() {
	if r == nil {
		return
	}
	r.connectAttempts.Inc()
}

// Disconnect records a classified connection close.
func (r *Registry) Disconnect(reason string) {
	if r == nil {
		return
	}
	r.disconnects.WithLabelValues(reason).Inc()
}

// Established records a session established notification.
func (r *Registry) Established() {
	if r == nil {
		return
	}
	r.established.Inc()
}

// ReconnectDelay records a chosen backoff delay.
func (r *Registry) ReconnectDelay(d time.Duration) {
	if r == nil {
		return
	}
	r.reconnectDelay.Observe(d.Seconds())
}

// Fatal records a terminal session failure.
func (r *Registry) Fatal(reason string) {
	if r == nil {
		return
	}
	r.fatal.WithLabelValues(reason).Inc()
}

// EventRouted records an inbound event by kind.
func (r *Registry) EventRouted(kind string) {
	if r == nil {
		return
	}
	r.eventsRouted.WithLabelValues(kind).Inc()
}

// MessageDropped records a message that was not dispatched.
func (r *Registry) MessageDropped(cause string) {
	if r == nil {
		return
	}
	r.messagesDropped.WithLabelValues(cause).Inc()
}

// Receipt records a delivery receipt.
func (r *Registry) Receipt(status string) {
	if r == nil {
		return
	}
	r.receipts.WithLabelValues(status).Inc()
}

// CommandDispatched records a command result and handler duration.
// Unknown command names must be collapsed by the caller to bound cardinality.
func (r *Registry) CommandDispatched(command, result string, d time.Duration) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(command, result).Inc()
	if d > 0 {
		r.commandDuration.WithLabelValues(command).Observe(d.Seconds())
	}
}

// CredentialSave records a credential persistence result.
func (r *Registry) CredentialSave(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.credentialSaves.WithLabelValues(result).Inc()
}
