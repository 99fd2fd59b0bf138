// Package queue connects the API server to the ingestion workers over
// RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bionexus/backend/pkg/logger"
)

const (
	// messages parked in the retry queue flow back after this many ms
	retryDelayMs = 10000
	maxRetries   = 3

	retryCountHeader = "x-retry-count"
)

// IngestMessage asks a worker to ingest corpus objects under one job.
// When ObjectKeys is empty the worker resolves the batch by listing the
// bucket prefix named by Mode.
type IngestMessage struct {
	JobID      string   `json:"job_id"`
	Mode       string   `json:"mode,omitempty"`
	ObjectKeys []string `json:"object_keys,omitempty"`
}

// Queue wraps one AMQP connection and its ingest queue topology.
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	name    string
}

// Connect dials RabbitMQ and declares the ingest queue together with its
// dead letter and retry queues.
func Connect(url string, name string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, name: name}
	if err := q.setupQueues(); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

// setupQueues declares the main queue, a dead letter queue for messages
// that exhausted their retries and a retry queue that routes messages
// back to the main queue after a delay.
func (q *Queue) setupQueues() error {
	_, err := q.channel.QueueDeclare(q.name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.name + "_dlq",
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", q.name, err)
	}

	_, err = q.channel.QueueDeclare(q.name+"_dlq", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s_dlq: %w", q.name, err)
	}

	_, err = q.channel.QueueDeclare(q.name+"_retry", true, false, false, false, amqp.Table{
		"x-message-ttl":             int32(retryDelayMs),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.name,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s_retry: %w", q.name, err)
	}
	return nil
}

// PublishIngest enqueues an ingest message.
func (q *Queue) PublishIngest(ctx context.Context, message IngestMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal ingest message: %w", err)
	}

	err = q.channel.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", q.name, err)
	}
	logger.Debug("[Queue] Published ingest message",
		"job", message.JobID, "mode", message.Mode, "objects", len(message.ObjectKeys))
	return nil
}

// Consume returns a delivery channel for the ingest queue. Workers take
// one message at a time.
func (q *Queue) Consume() (<-chan amqp.Delivery, error) {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.channel.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", q.name, err)
	}
	return deliveries, nil
}

// RetryCount reads the retry counter from a delivery.
func RetryCount(delivery amqp.Delivery) int {
	if delivery.Headers == nil {
		return 0
	}
	switch count := delivery.Headers[retryCountHeader].(type) {
	case int32:
		return int(count)
	case int64:
		return int(count)
	case int:
		return count
	}
	return 0
}

// Retry acknowledges the delivery and parks a copy in the retry queue
// with an incremented counter. Once the counter exceeds the limit the
// message is rejected into the dead letter queue instead.
func (q *Queue) Retry(ctx context.Context, delivery amqp.Delivery) error {
	count := RetryCount(delivery) + 1
	if count > maxRetries {
		logger.Warn("[Queue] Retries exhausted, dead lettering", "queue", q.name, "retries", count-1)
		return delivery.Nack(false, false)
	}

	err := q.channel.PublishWithContext(ctx, "", q.name+"_retry", false, false, amqp.Publishing{
		ContentType:  delivery.ContentType,
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryCountHeader: int32(count)},
		Body:         delivery.Body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s_retry: %w", q.name, err)
	}
	return delivery.Ack(false)
}

// Close shuts the channel and connection down.
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
