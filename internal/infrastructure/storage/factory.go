// Package storage selects the snapshot archive implementation.
package storage

import (
	"fmt"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/infrastructure/storage/adapters/fs"
	"reviewmonitor/internal/infrastructure/storage/adapters/s3"
)

// Create builds the storage adapter named by the configuration.
func Create(cfg *config.Config, obs ports.Observability) (ports.Storage, error) {
	logger, err := obs.LoggerScoped("storage.factory")
	if err != nil {
		return nil, fmt.Errorf("failed to get logger from observability: %w", err)
	}

	switch cfg.Adapters.Storage {
	case "s3":
		logger.Info("Creating S3 storage adapter",
			"bucket", cfg.Storage.BucketOrPath,
			"region", cfg.Storage.S3.Region)
		return s3.New(&cfg.Storage, obs)

	case "filesystem":
		logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.BucketOrPath)
		return fs.New(cfg.Storage.BucketOrPath, obs)

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}
