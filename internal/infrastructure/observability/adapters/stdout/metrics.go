package stdout

import (
	"reviewmonitor/internal/application/ports"
)

// Metrics implements ports.Metrics by logging measurements. Useful for
// local development where no metrics backend is running.
type Metrics struct {
	logger ports.Logger
	tags   map[string]string
}

// NewMetrics creates a logging metrics adapter
func NewMetrics(logger ports.Logger) ports.Metrics {
	return &Metrics{
		logger: logger,
		tags:   make(map[string]string),
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.logger.Info("metric.counter", "name", name, "tags", m.merged(tags))
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.logger.Info("metric.histogram", "name", name, "value", value, "tags", m.merged(tags))
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.logger.Info("metric.gauge", "name", name, "value", value, "tags", m.merged(tags))
}

func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		logger: m.logger,
		tags:   m.merged(tags),
	}
}

func (m *Metrics) merged(tags map[string]string) map[string]string {
	out := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		out[k] = v
	}
	for k, v := range tags {
		out[k] = v
	}
	return out
}
