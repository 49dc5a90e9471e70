package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

type rabbitmqRuntime struct {
	handler   ports.Handler
	logger    ports.Logger
	metrics   ports.Metrics
	config    *config.QueueConfig
	conn      *amqp091.Connection
	channel   *amqp091.Channel
}

// NewRabbitMQRuntime creates a consumer runtime reading requests from the
// configured runtime queue.
func NewRabbitMQRuntime(cfg *config.QueueConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("failed to create runtime: handler is required")
	}

	return &rabbitmqRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

func (rt *rabbitmqRuntime) Start() error {
	conn, err := amqp091.Dial(rt.config.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	rt.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	rt.channel = ch

	if rt.config.RabbitMQ.PrefetchCount > 0 {
		if err := ch.Qos(rt.config.RabbitMQ.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	q, err := ch.QueueDeclare(
		rt.config.RuntimeQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to consume: %w", err)
	}

	rt.logger.Info("RabbitMQ consumer started",
		"queue", rt.config.RuntimeQueueName,
		"prefetch", rt.config.RabbitMQ.PrefetchCount)
	rt.metrics.IncrementCounter("rabbitmq.starts", nil)

	for msg := range msgs {
		rt.processMessage(msg)
	}
	return nil
}

func (rt *rabbitmqRuntime) Stop(ctx context.Context) error {
	if rt.channel != nil {
		rt.channel.Close()
	}
	if rt.conn != nil {
		rt.conn.Close()
	}
	rt.logger.Info("RabbitMQ consumer stopped")
	return nil
}

func (rt *rabbitmqRuntime) processMessage(msg amqp091.Delivery) {
	startTime := time.Now()

	ctx := context.Background()
	if rt.config.RabbitMQ.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.config.RabbitMQ.Timeout)
		defer cancel()
	}

	req := ports.RuntimeRequest{
		ID:        msg.MessageId,
		Source:    "rabbitmq",
		Type:      rt.extractType(msg),
		Payload:   json.RawMessage(msg.Body),
		Metadata:  rt.buildMetadata(msg),
		Timestamp: msg.Timestamp,
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("rmq-%d", msg.DeliveryTag)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	rt.logger.Info("Processing RabbitMQ message",
		"message_id", req.ID,
		"type", req.Type,
		"redelivered", msg.Redelivered)
	rt.metrics.IncrementCounter("rabbitmq.messages", nil)

	resp, err := rt.handler.Handle(ctx, req)

	if err == nil && resp.Success {
		if ackErr := msg.Ack(false); ackErr != nil {
			rt.logger.Error("Failed to ack message", "id", req.ID, "error", ackErr)
		}
		rt.metrics.IncrementCounter("rabbitmq.success", nil)
	} else {
		// Requeue once; a second failure drops to the dead-letter policy
		requeue := !msg.Redelivered
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			rt.logger.Error("Failed to nack message", "id", req.ID, "error", nackErr)
		}
		rt.logger.Error("Message processing failed",
			"id", req.ID,
			"error", err,
			"requeued", requeue)
		rt.metrics.IncrementCounter("rabbitmq.failure", nil)
	}

	rt.metrics.RecordHistogram("rabbitmq.duration_ms",
		float64(time.Since(startTime).Milliseconds()), nil)
}

func (rt *rabbitmqRuntime) extractType(msg amqp091.Delivery) string {
	if t, ok := msg.Headers["type"]; ok {
		return fmt.Sprintf("%v", t)
	}
	if msg.RoutingKey != "" {
		return msg.RoutingKey
	}
	return "message"
}

func (rt *rabbitmqRuntime) buildMetadata(msg amqp091.Delivery) map[string]string {
	meta := make(map[string]string)

	if msg.RoutingKey != "" {
		meta["routing_key"] = msg.RoutingKey
	}
	if msg.Exchange != "" {
		meta["exchange"] = msg.Exchange
	}
	if msg.CorrelationId != "" {
		meta["correlation_id"] = msg.CorrelationId
	}
	meta["redelivered"] = fmt.Sprintf("%v", msg.Redelivered)

	for k, v := range msg.Headers {
		meta[fmt.Sprintf("header_%s", k)] = fmt.Sprintf("%v", v)
	}
	return meta
}
