package config

import (
	"fmt"
)

// applyDefaults applies environment-specific defaults
func applyDefaults(cfg *Config) {
	if cfg.IsLocal() {
		if cfg.Adapters.Runtime == "" {
			cfg.Adapters.Runtime = "http"
		}
		if cfg.Adapters.Storage == "" {
			cfg.Adapters.Storage = "filesystem"
		}
		if cfg.Adapters.Database == "" {
			cfg.Adapters.Database = "postgres"
		}
		if cfg.Adapters.Metrics == "" {
			cfg.Adapters.Metrics = "stdout"
		}
		if cfg.Adapters.Queue == "" {
			cfg.Adapters.Queue = "rabbitmq"
		}
		if cfg.Storage.BucketOrPath == "" {
			cfg.Storage.BucketOrPath = "/tmp/snapshots"
		}
	} else if cfg.IsProduction() {
		if cfg.Adapters.Runtime == "" {
			cfg.Adapters.Runtime = "rabbitmq"
		}
		if cfg.Adapters.Storage == "" {
			cfg.Adapters.Storage = "s3"
		}
		if cfg.Adapters.Database == "" {
			cfg.Adapters.Database = "postgres"
		}
		if cfg.Adapters.Metrics == "" {
			cfg.Adapters.Metrics = "prometheus"
		}
		if cfg.Adapters.Queue == "" {
			cfg.Adapters.Queue = "sqs"
		}
	}

	// Set bucket/path default if still empty
	if cfg.Storage.BucketOrPath == "" {
		if cfg.Adapters.Storage == "s3" {
			cfg.Storage.BucketOrPath = fmt.Sprintf("%s-snapshots", cfg.ServiceName)
		} else {
			cfg.Storage.BucketOrPath = "/tmp/snapshots"
		}
	}
}
