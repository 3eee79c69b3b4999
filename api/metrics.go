package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections     prometheus.Gauge
	joins           prometheus.Counter
	framesReceived  *prometheus.CounterVec
	framesRejected  *prometheus.CounterVec
	broadcastSends  prometheus.Counter
	slowConsumers   prometheus.Counter
	persistDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drawisly",
			Name:      "connections",
			Help:      "Currently registered room connections.",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drawisly",
			Name:      "room_joins_total",
			Help:      "Successful room joins.",
		}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drawisly",
			Name:      "frames_received_total",
			Help:      "Inbound frames by type.",
		}, []string{"type"}),
		framesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drawisly",
			Name:      "frames_rejected_total",
			Help:      "Inbound frames that were not applied, by reason.",
		}, []string{"reason"}),
		broadcastSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drawisly",
			Name:      "broadcast_deliveries_total",
			Help:      "Frames queued to participants by fan-out.",
		}),
		slowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drawisly",
			Name:      "slow_consumer_drops_total",
			Help:      "Connections closed because their send queue was full.",
		}),
		persistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "drawisly",
			Name:      "persist_duration_seconds",
			Help:      "Latency of persistence calls on the frame path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{
		m.connections, m.joins, m.framesReceived, m.framesRejected,
		m.broadcastSends, m.slowConsumers, m.persistDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) roomJoined() {
	if m != nil {
		m.joins.Inc()
	}
}

func (m *Metrics) frameReceived(frameType string) {
	if m != nil {
		m.framesReceived.WithLabelValues(frameType).Inc()
	}
}

func (m *Metrics) frameRejected(reason string) {
	if m != nil {
		m.framesRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) framesBroadcast(n int) {
	if m != nil && n > 0 {
		m.broadcastSends.Add(float64(n))
	}
}

func (m *Metrics) slowConsumerDropped() {
	if m != nil {
		m.slowConsumers.Inc()
	}
}

func (m *Metrics) observePersist(op string, seconds float64) {
	if m != nil {
		m.persistDuration.WithLabelValues(op).Observe(seconds)
	}
}
