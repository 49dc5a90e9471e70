package config

import (
	"fmt"
)

// Validate checks the configuration for required values and consistency
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	switch c.Adapters.Runtime {
	case "http", "rabbitmq", "lambda":
	default:
		return fmt.Errorf("unsupported runtime adapter: %q", c.Adapters.Runtime)
	}

	switch c.Adapters.Storage {
	case "s3", "filesystem":
	default:
		return fmt.Errorf("unsupported storage adapter: %q", c.Adapters.Storage)
	}

	switch c.Adapters.Metrics {
	case "stdout", "prometheus", "cloudwatch":
	default:
		return fmt.Errorf("unsupported metrics adapter: %q", c.Adapters.Metrics)
	}

	switch c.Adapters.Queue {
	case "rabbitmq", "sqs":
	default:
		return fmt.Errorf("unsupported queue adapter: %q", c.Adapters.Queue)
	}

	if c.Database.Host == "" || c.Database.Database == "" {
		return fmt.Errorf("database host and name are required")
	}

	if c.Classifier.Taxonomy != TaxonomyRich && c.Classifier.Taxonomy != TaxonomyCollapsed {
		return fmt.Errorf("classifier taxonomy must be \"rich\" or \"collapsed\", got %q", c.Classifier.Taxonomy)
	}
	if c.Classifier.MaxAttempts < 1 {
		return fmt.Errorf("classifier max attempts must be at least 1")
	}
	if c.Classifier.BatchSize < 1 {
		return fmt.Errorf("classifier batch size must be at least 1")
	}

	if c.Apify.PollInterval <= 0 {
		return fmt.Errorf("apify poll interval must be positive")
	}
	if c.Apify.MaxPollAttempts < 1 {
		return fmt.Errorf("apify max poll attempts must be at least 1")
	}

	if c.WorkQueue.MaxConcurrent < 1 {
		return fmt.Errorf("work queue max concurrent must be at least 1")
	}
	if c.WorkQueue.MaxRetries < 1 {
		return fmt.Errorf("work queue max retries must be at least 1")
	}

	return nil
}
