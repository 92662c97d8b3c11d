// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Listener metrics
	Notifications     *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	Connected         prometheus.Gauge
	Reconnects        prometheus.Counter
	ReconnectAttempt  prometheus.Gauge
	SubscriptionCount prometheus.Gauge

	// Executor metrics
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec

	// Journal metrics
	DetectionsStored prometheus.Counter
	JournalErrors    prometheus.Counter
	JournalDropped   prometheus.Counter
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sniper"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Listener metrics
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "notifications_total",
			Help:      "Account notifications received by protocol and outcome",
		}, []string{"protocol", "outcome"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "events_published_total",
			Help:      "Typed events published by topic",
		}, []string{"topic"}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "connected",
			Help:      "1 when the subscription set is live",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "reconnects_scheduled_total",
			Help:      "Total number of reconnection attempts scheduled",
		}),
		ReconnectAttempt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "reconnect_attempt",
			Help:      "Current reconnection attempt number, 0 when connected",
		}),
		SubscriptionCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "subscriptions",
			Help:      "Number of active program subscriptions",
		}),

		// Executor metrics
		ExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "executions_total",
			Help:      "Transaction executions by executor and result",
		}, []string{"executor", "result"}),
		ExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "execution_duration_seconds",
			Help:      "Time from submission to final result in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 90},
		}, []string{"executor"}),

		// Journal metrics
		DetectionsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "detections_stored_total",
			Help:      "Total number of pool detections stored",
		}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "Total number of journal write errors",
		}),
		JournalDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "dropped_total",
			Help:      "Pool events dropped because the journal queue was full",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordNotification counts one account notification.
func (m *Metrics) RecordNotification(protocol, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(protocol, outcome).Inc()
}

// RecordPublished counts one event published on topic.
func (m *Metrics) RecordPublished(topic string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topic).Inc()
}

// SetConnected updates the connection gauges.
func (m *Metrics) SetConnected(connected bool, subscriptions int) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
		m.ReconnectAttempt.Set(0)
	} else {
		m.Connected.Set(0)
	}
	m.SubscriptionCount.Set(float64(subscriptions))
}

// RecordReconnect records a scheduled reconnection attempt.
func (m *Metrics) RecordReconnect(attempt int) {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
	m.ReconnectAttempt.Set(float64(attempt))
}

// RecordExecution records an executor result.
func (m *Metrics) RecordExecution(executor string, confirmed bool, seconds float64) {
	if m == nil {
		return
	}
	result := "failed"
	if confirmed {
		result = "confirmed"
	}
	m.ExecutionsTotal.WithLabelValues(executor, result).Inc()
	m.ExecutionDuration.WithLabelValues(executor).Observe(seconds)
}

// RecordDetection records a journal write.
func (m *Metrics) RecordDetection(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.JournalErrors.Inc()
		return
	}
	m.DetectionsStored.Inc()
}

// RecordJournalDrop counts one pool event the journal could not queue.
func (m *Metrics) RecordJournalDrop() {
	if m == nil {
		return
	}
	m.JournalDropped.Inc()
}
