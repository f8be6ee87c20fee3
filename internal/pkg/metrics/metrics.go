// Package metrics exposes the Prometheus collectors for the reminder
// scheduler and the document store.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the bot's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	dispatches    *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	cycleFailures prometheus.Counter
	storeWrites   *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors on reg, reusing any already registered.
// Tests pass a fresh prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "companion",
				Subsystem: "scheduler",
				Name:      "dispatches_total",
				Help:      "Reminder notifications attempted, by kind and result.",
			},
			[]string{"kind", "result"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "companion",
				Subsystem: "scheduler",
				Name:      "cycle_duration_seconds",
				Help:      "Time spent in one poll cycle.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		cycleFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "companion",
				Subsystem: "scheduler",
				Name:      "cycle_failures_total",
				Help:      "Poll cycles aborted by a store error or a panic.",
			},
		),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "companion",
				Subsystem: "store",
				Name:      "writes_total",
				Help:      "Document store writes, by result.",
			},
			[]string{"result"},
		),
	}

	m.dispatches = register(reg, m.dispatches)
	m.cycleDuration = register(reg, m.cycleDuration)
	m.cycleFailures = register(reg, m.cycleFailures)
	m.storeWrites = register(reg, m.storeWrites)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveDispatch counts one notification attempt
func (m *Metrics) ObserveDispatch(kind, result string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(kind, result).Inc()
}

// ObserveCycle records the duration of a poll cycle
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

// IncCycleFailure counts an aborted cycle
func (m *Metrics) IncCycleFailure() {
	if m == nil {
		return
	}
	m.cycleFailures.Inc()
}

// ObserveStoreWrite counts a document write
func (m *Metrics) ObserveStoreWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(result).Inc()
}
