package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

type sqsQueue struct {
	client  *sqs.Client
	logger  ports.Logger
	metrics ports.Metrics
	config  *config.SQSConfig
	// queue URLs resolved once per name
	queueURLs map[string]string
}

// NewSQSQueue creates an SQS-backed publish adapter.
func NewSQSQueue(cfg *config.SQSConfig, obs ports.Observability) (ports.Queue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.sqs")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("SQS queue initialized", "region", cfg.Region)

	return &sqsQueue{
		client:    sqs.NewFromConfig(awsCfg),
		logger:    logger,
		metrics:   metrics,
		config:    cfg,
		queueURLs: make(map[string]string),
	}, nil
}

func (q *sqsQueue) getQueueURL(ctx context.Context, queueName string) (string, error) {
	if url, ok := q.queueURLs[queueName]; ok {
		return url, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", queueName, err)
	}

	q.queueURLs[queueName] = *result.QueueUrl
	return *result.QueueUrl, nil
}

func (q *sqsQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	startTime := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration",
			time.Since(startTime).Seconds(),
			map[string]string{"target": message.Target})
	}()

	queueURL, err := q.getQueueURL(ctx, message.Target)
	if err != nil {
		q.logger.Error("failed to get queue URL", "error", err, "queue", message.Target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "queue_url_failed"})
		return err
	}

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("failed to send message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "send_failed"})
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": message.Target})

	return nil
}

func (q *sqsQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	batches := make(map[string][]*ports.QueueMessage)
	for _, msg := range messages {
		batches[msg.Target] = append(batches[msg.Target], msg)
	}

	for target, batch := range batches {
		if err := q.publishBatchToQueue(ctx, target, batch); err != nil {
			return err
		}
	}
	return nil
}

func (q *sqsQueue) publishBatchToQueue(ctx context.Context, target string, messages []*ports.QueueMessage) error {
	// SQS caps batches at 10 entries
	const maxBatchSize = 10

	queueURL, err := q.getQueueURL(ctx, target)
	if err != nil {
		return err
	}

	for i := 0; i < len(messages); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(messages) {
			end = len(messages)
		}

		batch := messages[i:end]
		entries := make([]types.SendMessageBatchRequestEntry, len(batch))
		for j, msg := range batch {
			body, err := json.Marshal(msg.Body)
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			entries[j] = types.SendMessageBatchRequestEntry{
				Id:          aws.String(fmt.Sprintf("%d", j)),
				MessageBody: aws.String(string(body)),
			}
		}

		_, err = q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}

	return nil
}

func (q *sqsQueue) Close() error { return nil }
