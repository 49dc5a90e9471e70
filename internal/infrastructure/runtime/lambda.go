package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

type lambdaRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	config  *config.LambdaConfig
}

// NewLambdaRuntime creates a Lambda runtime accepting direct requests and
// SQS batch events.
func NewLambdaRuntime(cfg *config.LambdaConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.lambda")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("failed to create runtime: handler is required")
	}

	return &lambdaRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

func (rt *lambdaRuntime) Start() error {
	rt.logger.Info("Starting Lambda runtime")
	rt.metrics.IncrementCounter("lambda.starts", nil)
	lambda.Start(rt.handleEvent)
	return nil
}

func (rt *lambdaRuntime) Stop(ctx context.Context) error {
	// The Lambda platform owns the lifecycle
	return nil
}

func (rt *lambdaRuntime) handleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	rt.metrics.IncrementCounter("lambda.invocations", nil)
	start := time.Now()
	defer func() {
		rt.metrics.RecordHistogram("lambda.duration",
			float64(time.Since(start).Milliseconds()), nil)
	}()

	if sqsEvent, ok := tryParseSQSEvent(event); ok {
		return rt.processSQSEvent(ctx, sqsEvent)
	}
	if req, ok := tryParseDirectRequest(event); ok {
		rt.metrics.IncrementCounter("lambda.invocations.direct", nil)
		return rt.handler.Handle(rt.applyTimeout(ctx), req)
	}

	rt.logger.Error("Unsupported event type")
	rt.metrics.IncrementCounter("lambda.invocations.unsupported", nil)
	return nil, fmt.Errorf("unsupported event type")
}

// processSQSEvent handles batch events, reporting per-message failures so
// only failed messages return to the queue.
func (rt *lambdaRuntime) processSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	rt.metrics.IncrementCounter("lambda.invocations.sqs", nil)
	rt.logger.Info("Processing SQS batch", "batch_size", len(event.Records))

	response := events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{},
	}

	for _, record := range event.Records {
		req := ports.RuntimeRequest{
			ID:        record.MessageId,
			Source:    "sqs",
			Type:      extractMessageType(record),
			Payload:   parseMessageBody(record.Body),
			Metadata:  extractMetadata(record),
			Timestamp: time.Now().UTC(),
		}

		resp, err := rt.handler.Handle(rt.applyTimeout(ctx), req)
		if err != nil || !resp.Success {
			rt.logger.Error("Message processing failed",
				"message_id", record.MessageId,
				"error", err)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	rt.logger.Info("SQS batch processing complete",
		"total", len(event.Records),
		"failures", len(response.BatchItemFailures))

	return response, nil
}

func (rt *lambdaRuntime) applyTimeout(ctx context.Context) context.Context {
	if rt.config.Timeout <= 0 {
		return ctx
	}
	reqCtx, _ := context.WithTimeout(ctx, rt.config.Timeout)
	return reqCtx
}

func tryParseSQSEvent(event json.RawMessage) (events.SQSEvent, bool) {
	var sqsEvent events.SQSEvent
	err := json.Unmarshal(event, &sqsEvent)
	return sqsEvent, err == nil && len(sqsEvent.Records) > 0
}

func tryParseDirectRequest(event json.RawMessage) (ports.RuntimeRequest, bool) {
	var req ports.RuntimeRequest
	err := json.Unmarshal(event, &req)
	return req, err == nil && req.Type != ""
}

func extractMessageType(record events.SQSMessage) string {
	if attr, ok := record.MessageAttributes["type"]; ok && attr.StringValue != nil {
		return *attr.StringValue
	}
	return ""
}

func parseMessageBody(body string) json.RawMessage {
	var payload json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		payload, _ = json.Marshal(body)
	}
	return payload
}

func extractMetadata(record events.SQSMessage) map[string]string {
	metadata := make(map[string]string)
	for key, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			metadata[key] = *attr.StringValue
		}
	}
	metadata["sqs_message_id"] = record.MessageId
	metadata["sqs_receipt_handle"] = record.ReceiptHandle
	return metadata
}
