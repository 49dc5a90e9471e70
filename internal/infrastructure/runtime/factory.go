package runtime

import (
	"fmt"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

// Create builds the runtime adapter named by the configuration.
func Create(cfg *config.Config, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	switch cfg.Adapters.Runtime {
	case "lambda":
		return NewLambdaRuntime(&cfg.Lambda, handler, obs)
	case "http":
		return NewHTTPRuntime(&cfg.HTTP, handler, obs)
	case "rabbitmq":
		return NewRabbitMQRuntime(&cfg.Queue, handler, obs)
	default:
		return nil, fmt.Errorf("unsupported runtime adapter: %s", cfg.Adapters.Runtime)
	}
}
