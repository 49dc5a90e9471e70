package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

// Metrics implements ports.Metrics by pushing datapoints to CloudWatch.
// Publishing is fire-and-forget; a failed put must not disturb the caller.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	tags      map[string]string
}

// NewMetrics creates a CloudWatch metrics adapter
func NewMetrics(cfg *config.ObservabilityConfig) (*Metrics, error) {
	if cfg.CloudWatchNamespace == "" {
		return nil, fmt.Errorf("cloudwatch namespace is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.CloudWatchRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Metrics{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: cfg.CloudWatchNamespace,
		tags:      make(map[string]string),
	}, nil
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.put(name, 1, types.StandardUnitCount, tags)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.put(name, value, types.StandardUnitNone, tags)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.put(name, value, types.StandardUnitNone, tags)
}

func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	return &Metrics{
		client:    m.client,
		namespace: m.namespace,
		tags:      merged,
	}
}

func (m *Metrics) put(name string, value float64, unit types.StandardUnit, tags map[string]string) {
	dims := make([]types.Dimension, 0, len(m.tags)+len(tags))
	for k, v := range m.tags {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}
	for k, v := range tags {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Errors are intentionally dropped; metrics must not break the worker
	m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now().UTC()),
				Dimensions: dims,
			},
		},
	})
}
