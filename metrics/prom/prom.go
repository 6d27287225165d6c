// Package prom exports cache-set metrics to Prometheus.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/kvstore/cacheset"
)

// Adapter owns the Prometheus collectors shared by every cache set of a
// store. Hit/miss/eviction counters carry a "set" label, as do the size
// gauges, so per-set Size reports do not overwrite each other.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evicts    *prometheus.CounterVec
	sizeEnt   *prometheus.GaugeVec
	sizeBytes *prometheus.GaugeVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, []string{"set"})
	}
	a := &Adapter{
		hits:      counter("hits_total", "Cache set hits", "set"),
		misses:    counter("misses_total", "Cache set misses", "set"),
		evicts:    counter("evictions_total", "Entries removed from a cache set, by reason", "set", "reason"),
		sizeEnt:   gauge("size_entries", "Resident entries per cache set"),
		sizeBytes: gauge("size_bytes", "Key and value bytes held per cache set"),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt, a.sizeBytes)
	return a
}

// ForSet returns the metrics sink for cache set i.
// It satisfies kvcache.MetricsProvider.
func (a *Adapter) ForSet(i int) cacheset.Metrics {
	set := strconv.Itoa(i)
	return &setMetrics{
		hits:      a.hits.WithLabelValues(set),
		misses:    a.misses.WithLabelValues(set),
		evicts:    a.evicts.MustCurryWith(prometheus.Labels{"set": set}),
		sizeEnt:   a.sizeEnt.WithLabelValues(set),
		sizeBytes: a.sizeBytes.WithLabelValues(set),
	}
}

// setMetrics is the per-set view with the "set" label already bound.
type setMetrics struct {
	hits, misses       prometheus.Counter
	evicts             *prometheus.CounterVec
	sizeEnt, sizeBytes prometheus.Gauge
}

// Hit increments the hit counter.
func (m *setMetrics) Hit() { m.hits.Inc() }

// Miss increments the miss counter.
func (m *setMetrics) Miss() { m.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (m *setMetrics) Evict(r cacheset.EvictReason) {
	m.evicts.WithLabelValues(r.String()).Inc()
}

// Size updates the entry and byte gauges.
func (m *setMetrics) Size(entries int, bytes int64) {
	m.sizeEnt.Set(float64(entries))
	m.sizeBytes.Set(float64(bytes))
}

var _ cacheset.Metrics = (*setMetrics)(nil)
