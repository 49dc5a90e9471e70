package observability

import (
	"fmt"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/infrastructure/observability/adapters/cloudwatch"
	"reviewmonitor/internal/infrastructure/observability/adapters/prom"
	"reviewmonitor/internal/infrastructure/observability/adapters/stdout"
)

// createComponents builds the root logger and metrics adapters
func createComponents(cfg *config.Config) (ports.Logger, ports.Metrics, error) {
	logger := stdout.NewLogger(cfg.LogLevel)

	var metrics ports.Metrics
	var err error

	switch cfg.Adapters.Metrics {
	case "stdout":
		metrics = stdout.NewMetrics(logger)
	case "prometheus":
		metrics = prom.NewMetrics(cfg.ServiceName)
	case "cloudwatch":
		metrics, err = cloudwatch.NewMetrics(&cfg.Observability)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create cloudwatch metrics: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported metrics adapter: %s", cfg.Adapters.Metrics)
	}

	return logger, metrics, nil
}
