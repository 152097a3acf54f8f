package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using a dedicated Prometheus registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Lottery metrics
	ticketsBought prometheus.Counter
	roundsSettled prometheus.Counter
	emptyRounds   prometheus.Counter
	participants  prometheus.Gauge
	pot           prometheus.Gauge
	nonce         prometheus.Gauge

	// Transaction metrics
	txResults *prometheus.CounterVec
	txLatency *prometheus.HistogramVec

	// Block metrics
	height        prometheus.Gauge
	commitLatency prometheus.Histogram
	stateVersion  prometheus.Gauge
	eventsLogged  prometheus.Counter
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		ticketsBought: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lottery",
				Name:      "tickets_bought_total",
				Help:      "Total number of successful round entries",
			},
		),
		roundsSettled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lottery",
				Name:      "rounds_settled_total",
				Help:      "Total number of rounds settled with a winner",
			},
		),
		emptyRounds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lottery",
				Name:      "empty_rounds_total",
				Help:      "Total number of settlement attempts with no participants",
			},
		),
		participants: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "lottery",
				Name:      "participants",
				Help:      "Number of participants in the active round",
			},
		),
		pot: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "lottery",
				Name:      "pot",
				Help:      "Balance of the pot account",
			},
		),
		nonce: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "lottery",
				Name:      "nonce",
				Help:      "Current randomness nonce",
			},
		),

		txResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_results_total",
				Help:      "Executed transactions by call and result code",
			},
			[]string{"call", "code"},
		),
		txLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tx_latency_seconds",
				Help:      "Transaction execution latency",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"call"},
		),

		height: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_height",
				Help:      "Last committed block height",
			},
		),
		commitLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_latency_seconds",
				Help:      "Block commit latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		stateVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state_version",
				Help:      "Latest committed state store version",
			},
		),
		eventsLogged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_logged_total",
				Help:      "Total number of events appended to the event log",
			},
		),
	}

	registry.MustRegister(
		m.ticketsBought,
		m.roundsSettled,
		m.emptyRounds,
		m.participants,
		m.pot,
		m.nonce,
		m.txResults,
		m.txLatency,
		m.height,
		m.commitLatency,
		m.stateVersion,
		m.eventsLogged,
	)

	return m
}

func (m *PrometheusMetrics) IncTicketsBought() {
	m.ticketsBought.Inc()
}

func (m *PrometheusMetrics) IncRoundsSettled() {
	m.roundsSettled.Inc()
}

func (m *PrometheusMetrics) IncEmptyRounds() {
	m.emptyRounds.Inc()
}

func (m *PrometheusMetrics) SetParticipants(count int) {
	m.participants.Set(float64(count))
}

func (m *PrometheusMetrics) SetPot(amount uint64) {
	m.pot.Set(float64(amount))
}

func (m *PrometheusMetrics) SetNonce(nonce uint64) {
	m.nonce.Set(float64(nonce))
}

func (m *PrometheusMetrics) IncTxResult(call string, code uint32) {
	m.txResults.WithLabelValues(call, strconv.FormatUint(uint64(code), 10)).Inc()
}

func (m *PrometheusMetrics) ObserveTxLatency(call string, latency time.Duration) {
	m.txLatency.WithLabelValues(call).Observe(latency.Seconds())
}

func (m *PrometheusMetrics) SetHeight(height uint64) {
	m.height.Set(float64(height))
}

func (m *PrometheusMetrics) ObserveCommitLatency(latency time.Duration) {
	m.commitLatency.Observe(latency.Seconds())
}

func (m *PrometheusMetrics) SetStateVersion(version int64) {
	m.stateVersion.Set(float64(version))
}

func (m *PrometheusMetrics) AddEventsLogged(count int) {
	m.eventsLogged.Add(float64(count))
}

// HTTPHandler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}

// Registry returns the underlying Prometheus registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

var _ Metrics = (*PrometheusMetrics)(nil)
