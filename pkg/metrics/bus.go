package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initBusMetrics(cfg Config) {
	m.publishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_publish_total",
			Help: "Total number of event bus publish attempts by final status",
		},
		[]string{"status"},
	)

	m.publishRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_publish_retries_total",
			Help: "Total number of event bus publish retries",
		},
	)

	m.registry.MustRegister(m.publishTotal)
	m.registry.MustRegister(m.publishRetries)
}

// RecordPublish records the final status of one publish attempt.
func (m *Manager) RecordPublish(status string) {
	if !m.enabled {
		return
	}
	m.publishTotal.WithLabelValues(status).Inc()
}

// RecordRetry records one publish retry.
func (m *Manager) RecordRetry() {
	if !m.enabled {
		return
	}
	m.publishRetries.Inc()
}
