// Package mocks provides lightweight test doubles for the application ports.
package mocks

import (
	"sync"

	"reviewmonitor/internal/application/ports"
)

// NoopObservability satisfies ports.Observability with no-op components.
type NoopObservability struct{}

func NewNoopObservability() *NoopObservability { return &NoopObservability{} }

func (o *NoopObservability) Components() (ports.Logger, ports.Metrics, error) {
	return &NoopLogger{}, &NoopMetrics{}, nil
}

func (o *NoopObservability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	return &NoopLogger{}, &NoopMetrics{}, nil
}

func (o *NoopObservability) LoggerScoped(component string) (ports.Logger, error) {
	return &NoopLogger{}, nil
}

func (o *NoopObservability) MetricsScoped(component string) (ports.Metrics, error) {
	return &NoopMetrics{}, nil
}

type NoopLogger struct{}

func (l *NoopLogger) Info(msg string, fields ...interface{})         {}
func (l *NoopLogger) Warn(msg string, fields ...interface{})         {}
func (l *NoopLogger) Error(msg string, fields ...interface{})        {}
func (l *NoopLogger) WithFields(map[string]interface{}) ports.Logger { return l }

type NoopMetrics struct{}

func (m *NoopMetrics) IncrementCounter(name string, tags map[string]string)              {}
func (m *NoopMetrics) RecordHistogram(name string, value float64, tags map[string]string) {}
func (m *NoopMetrics) RecordGauge(name string, value float64, tags map[string]string)     {}
func (m *NoopMetrics) WithTags(tags map[string]string) ports.Metrics                      { return m }

// RecordingMetrics counts metric calls for assertions.
type RecordingMetrics struct {
	mu       sync.Mutex
	Counters map[string]int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{Counters: make(map[string]int)}
}

func (m *RecordingMetrics) IncrementCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counters[name]++
}

func (m *RecordingMetrics) RecordHistogram(name string, value float64, tags map[string]string) {}
func (m *RecordingMetrics) RecordGauge(name string, value float64, tags map[string]string)     {}
func (m *RecordingMetrics) WithTags(tags map[string]string) ports.Metrics                      { return m }

func (m *RecordingMetrics) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counters[name]
}
