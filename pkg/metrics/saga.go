package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initSagaMetrics(cfg Config) {
	m.commandsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_commands_total",
			Help: "Total number of saga commands applied by status",
		},
		[]string{"saga", "status"},
	)

	m.rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_rejections_total",
			Help: "Total number of rejected saga commands by reason",
		},
		[]string{"saga", "reason"},
	)

	m.eventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_events_total",
			Help: "Total number of saga lifecycle events emitted by kind",
		},
		[]string{"saga", "kind"},
	)

	m.sagaOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_outcomes_total",
			Help: "Total number of sagas reaching a terminal phase by outcome",
		},
		[]string{"saga", "outcome"},
	)

	m.sagaActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "saga_active_count",
			Help: "Current number of in-flight saga instances",
		},
		[]string{"saga"},
	)

	m.dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saga_dispatch_duration_seconds",
			Help:    "Command dispatch duration in seconds (lock, replay, apply, append, publish)",
			Buckets: cfg.DispatchDurationBuckets,
		},
		[]string{"saga"},
	)

	m.registry.MustRegister(m.commandsApplied)
	m.registry.MustRegister(m.rejections)
	m.registry.MustRegister(m.eventsEmitted)
	m.registry.MustRegister(m.sagaOutcomes)
	m.registry.MustRegister(m.sagaActive)
	m.registry.MustRegister(m.dispatchDuration)
}

// RecordCommand records one applied command outcome.
func (m *Manager) RecordCommand(saga, status string) {
	if !m.enabled {
		return
	}
	m.commandsApplied.WithLabelValues(saga, status).Inc()
}

// RecordRejection records one rejected command by reason.
func (m *Manager) RecordRejection(saga, reason string) {
	if !m.enabled {
		return
	}
	m.rejections.WithLabelValues(saga, reason).Inc()
}

// RecordEvent records one emitted lifecycle event.
func (m *Manager) RecordEvent(saga, kind string) {
	if !m.enabled {
		return
	}
	m.eventsEmitted.WithLabelValues(saga, kind).Inc()
}

// RecordOutcome records one saga instance reaching a terminal phase.
func (m *Manager) RecordOutcome(saga, outcome string) {
	if !m.enabled {
		return
	}
	m.sagaOutcomes.WithLabelValues(saga, outcome).Inc()
}

// IncActiveSagas increments the active saga instance count.
func (m *Manager) IncActiveSagas(saga string) {
	if !m.enabled {
		return
	}
	m.sagaActive.WithLabelValues(saga).Inc()
}

// DecActiveSagas decrements the active saga instance count.
func (m *Manager) DecActiveSagas(saga string) {
	if !m.enabled {
		return
	}
	m.sagaActive.WithLabelValues(saga).Dec()
}

// RecordDispatchDuration records end-to-end command dispatch latency.
func (m *Manager) RecordDispatchDuration(saga string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.dispatchDuration.WithLabelValues(saga).Observe(duration.Seconds())
}
