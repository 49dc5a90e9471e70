package database

import (
	"fmt"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

// Create creates a database instance based on configuration
func Create(cfg *config.Config, obs ports.Observability) (ports.Database, error) {
	switch cfg.Adapters.Database {
	case "postgres":
		return NewPostgresAdapter(&cfg.Database, obs)
	default:
		return nil, fmt.Errorf("unsupported database adapter: %s", cfg.Adapters.Database)
	}
}
