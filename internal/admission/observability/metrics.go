// Package observability provides admission metrics.
package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records admission measurements.
type Metrics interface {
	IncDecision(result string, service string)
	IncFailOpen(reason string)
	ObserveLatency(op string, d time.Duration)
	SetBreakerState(state float64)
	SetServerLoad(factor float64)
}

// PromMetrics implements Metrics on a prometheus registry.
type PromMetrics struct {
	decisions    *prometheus.CounterVec
	failOpen     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	breakerState prometheus.Gauge
	serverLoad   prometheus.Gauge
}

// NewPromMetrics constructs and registers admission metrics.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission decisions by result and service.",
		}, []string{"result", "service"}),
		failOpen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_fail_open_total",
			Help: "Requests admitted because the counter store was unavailable.",
		}, []string{"reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admission_operation_seconds",
			Help:    "Latency of admission operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "admission_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),
		serverLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "admission_server_load_factor",
			Help: "Reported server load factor in [0,1].",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.failOpen, m.latency, m.breakerState, m.serverLoad)
	}
	return m
}

// IncDecision implements Metrics.
func (m *PromMetrics) IncDecision(result, service string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(result, service).Inc()
}

// IncFailOpen implements Metrics.
func (m *PromMetrics) IncFailOpen(reason string) {
	if m == nil {
		return
	}
	m.failOpen.WithLabelValues(reason).Inc()
}

// ObserveLatency implements Metrics.
func (m *PromMetrics) ObserveLatency(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(op).Observe(d.Seconds())
}

// SetBreakerState implements Metrics.
func (m *PromMetrics) SetBreakerState(state float64) {
	if m == nil {
		return
	}
	m.breakerState.Set(state)
}

// SetServerLoad implements Metrics.
func (m *PromMetrics) SetServerLoad(factor float64) {
	if m == nil {
		return
	}
	m.serverLoad.Set(factor)
}

// InMemoryMetrics counts events in process memory, for tests.
type InMemoryMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewInMemoryMetrics constructs an in-memory recorder.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{counters: make(map[string]int64)}
}

// IncDecision implements Metrics.
func (m *InMemoryMetrics) IncDecision(result, service string) {
	m.inc(fmt.Sprintf("decision|%s|%s", result, service))
}

// IncFailOpen implements Metrics.
func (m *InMemoryMetrics) IncFailOpen(reason string) {
	m.inc("fail_open|" + reason)
}

// ObserveLatency implements Metrics.
func (m *InMemoryMetrics) ObserveLatency(op string, d time.Duration) {
	m.inc("latency|" + op)
}

// SetBreakerState implements Metrics.
func (m *InMemoryMetrics) SetBreakerState(state float64) {}

// SetServerLoad implements Metrics.
func (m *InMemoryMetrics) SetServerLoad(factor float64) {}

// Count returns a counter value by its composed key.
func (m *InMemoryMetrics) Count(key string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func (m *InMemoryMetrics) inc(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[key]++
}
