package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	HTTP          HTTPConfig
	Lambda        LambdaConfig
	Database      DatabaseConfig
	Storage       StorageConfig
	Queue         QueueConfig
	Observability ObservabilityConfig
	Apify         ApifyConfig
	Classifier    ClassifierConfig
	Scraper       ScraperConfig
	WorkQueue     WorkQueueConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Runtime  string // "http", "rabbitmq", "lambda"
	Storage  string // "s3", "filesystem"
	Database string // "postgres"
	Metrics  string // "prometheus", "cloudwatch", "stdout"
	Queue    string // "rabbitmq", "sqs" - for publishing events
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	MaxOpenConns int
	MaxIdleConns int
	SSLMode      string
}

// HTTPConfig holds HTTP configuration
type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Addr       string // Server address for HTTP runtime
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	Timeout time.Duration
}

// StorageConfig holds raw snapshot archive configuration
type StorageConfig struct {
	BucketOrPath string
	MaxRetries   int
	Timeout      time.Duration

	S3 S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO or S3-compatible services
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	CloudWatchRegion    string
	CloudWatchNamespace string
}

// QueueConfig holds event publishing configuration
type QueueConfig struct {
	Queues           QueueNames
	RuntimeQueueName string

	RabbitMQ RabbitMQConfig
	SQS      SQSConfig
}

// QueueNames defines all queue names in the system
type QueueNames struct {
	Events     string // Queue for scrape/scan lifecycle events
	DeadLetter string // Dead letter queue for failed messages
}

// RabbitMQConfig - minimal config
type RabbitMQConfig struct {
	URL           string
	Timeout       time.Duration
	PrefetchCount int
}

// SQSConfig - minimal config
type SQSConfig struct {
	Region string
}

// ApifyConfig holds external scraper API configuration
type ApifyConfig struct {
	BaseURL         string
	Token           string
	ProductActorID  string
	ReviewActorID   string
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollDuration time.Duration
	MaxReviews      int
	Country         string
	UseRunSync      bool
}

// Taxonomy modes for classifier findings.
const (
	TaxonomyRich      = "rich"
	TaxonomyCollapsed = "collapsed"
)

// ClassifierConfig holds violation classifier webhook configuration
type ClassifierConfig struct {
	WebhookURL  string
	MaxAttempts int
	BaseDelay   time.Duration
	BatchSize   int
	BatchDelay  time.Duration
	SingleShot  bool
	ScanTimeout time.Duration

	// Taxonomy is either "rich" (findings keep their reported type) or
	// "collapsed" (type forced to "Content Violation", original type kept
	// as the category).
	Taxonomy string
}

// ScraperConfig holds orchestrator configuration
type ScraperConfig struct {
	// ChainReviews enqueues a review scrape after product ingestion
	ChainReviews bool
}

// WorkQueueConfig holds in-memory queue manager configuration
type WorkQueueConfig struct {
	MaxConcurrent   int
	MaxRetries      int
	TickInterval    time.Duration
	AssumedDuration time.Duration
	CompletedTTL    time.Duration
}
