// Package prom provides a Prometheus-backed metrics adapter.
// Metric vectors are registered lazily on first use; the label set seen on
// first use becomes the fixed label set for that metric name.
package prom

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"reviewmonitor/internal/application/ports"
)

// Metrics implements ports.Metrics using the Prometheus client library.
type Metrics struct {
	mu         sync.Mutex
	namespace  string
	tags       map[string]string
	counters   map[string]*vecEntry[*prometheus.CounterVec]
	histograms map[string]*vecEntry[*prometheus.HistogramVec]
	gauges     map[string]*vecEntry[*prometheus.GaugeVec]
}

type vecEntry[T any] struct {
	vec    T
	labels []string
}

// NewMetrics creates a Prometheus metrics adapter. The service name becomes
// the metric namespace prefix.
func NewMetrics(serviceName string) *Metrics {
	return &Metrics{
		namespace:  sanitize(serviceName),
		tags:       make(map[string]string),
		counters:   make(map[string]*vecEntry[*prometheus.CounterVec]),
		histograms: make(map[string]*vecEntry[*prometheus.HistogramVec]),
		gauges:     make(map[string]*vecEntry[*prometheus.GaugeVec]),
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	merged := m.merged(tags)

	m.mu.Lock()
	entry, ok := m.counters[name]
	if !ok {
		labels := labelNames(merged)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      sanitize(name),
			Help:      "Counter " + name,
		}, labels)
		prometheus.MustRegister(vec)
		entry = &vecEntry[*prometheus.CounterVec]{vec: vec, labels: labels}
		m.counters[name] = entry
	}
	m.mu.Unlock()

	entry.vec.WithLabelValues(labelValues(entry.labels, merged)...).Inc()
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	merged := m.merged(tags)

	m.mu.Lock()
	entry, ok := m.histograms[name]
	if !ok {
		labels := labelNames(merged)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      sanitize(name),
			Help:      "Histogram " + name,
			Buckets:   prometheus.DefBuckets,
		}, labels)
		prometheus.MustRegister(vec)
		entry = &vecEntry[*prometheus.HistogramVec]{vec: vec, labels: labels}
		m.histograms[name] = entry
	}
	m.mu.Unlock()

	entry.vec.WithLabelValues(labelValues(entry.labels, merged)...).Observe(value)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	merged := m.merged(tags)

	m.mu.Lock()
	entry, ok := m.gauges[name]
	if !ok {
		labels := labelNames(merged)
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      sanitize(name),
			Help:      "Gauge " + name,
		}, labels)
		prometheus.MustRegister(vec)
		entry = &vecEntry[*prometheus.GaugeVec]{vec: vec, labels: labels}
		m.gauges[name] = entry
	}
	m.mu.Unlock()

	entry.vec.WithLabelValues(labelValues(entry.labels, merged)...).Set(value)
}

// WithTags returns a view sharing the registered vectors with extra default tags.
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &scoped{parent: m, tags: tags}
}

type scoped struct {
	parent *Metrics
	tags   map[string]string
}

func (s *scoped) IncrementCounter(name string, tags map[string]string) {
	s.parent.IncrementCounter(name, mergeTags(s.tags, tags))
}

func (s *scoped) RecordHistogram(name string, value float64, tags map[string]string) {
	s.parent.RecordHistogram(name, value, mergeTags(s.tags, tags))
}

func (s *scoped) RecordGauge(name string, value float64, tags map[string]string) {
	s.parent.RecordGauge(name, value, mergeTags(s.tags, tags))
}

func (s *scoped) WithTags(tags map[string]string) ports.Metrics {
	return &scoped{parent: s.parent, tags: mergeTags(s.tags, tags)}
}

func (m *Metrics) merged(tags map[string]string) map[string]string {
	return mergeTags(m.tags, tags)
}

func mergeTags(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, sanitize(k))
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) []string {
	sanitized := make(map[string]string, len(tags))
	for k, v := range tags {
		sanitized[sanitize(k)] = v
	}

	values := make([]string, len(labels))
	for i, l := range labels {
		values[i] = sanitized[l]
	}
	return values
}

func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}
