package replication

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "labelord"
	metricsSubsystem = "replication"
)

// Metrics holds the replication service collectors
type Metrics struct {
	WebhooksReceived *prometheus.CounterVec
	EventsSuppressed prometheus.Counter
	Propagations     *prometheus.CounterVec
	PendingEchoes    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhooksReceived: newCounterVec("webhooks_received_total",
			"Webhook deliveries received, by event type and response status.", "event", "status"),
		EventsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "echoes_suppressed_total",
			Help:      "Label events recognised as echoes of our own mutations.",
		}),
		Propagations: newCounterVec("propagations_total",
			"Label mutations applied to peer repositories, by action and outcome.", "action", "outcome"),
		PendingEchoes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pending_echoes",
			Help:      "Outbound mutations still waiting for their echo.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.WebhooksReceived, m.EventsSuppressed, m.Propagations, m.PendingEchoes)
	}
	return m
}

func newCounterVec(name, help string, labelNames ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      name,
		Help:      help,
	}, labelNames)
}
