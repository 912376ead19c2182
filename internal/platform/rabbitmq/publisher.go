package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/model"
)

// MessagePublisher enqueues chat turns for the persistence worker.
type MessagePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewMessagePublisher(conn *amqp.Connection, queueName string) *MessagePublisher {
	return &MessagePublisher{conn: conn, queueName: queueName}
}

func (p *MessagePublisher) Publish(ctx context.Context, msg model.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message payload failed: %w", err)
	}
	return publish(ctx, p.conn, p.queueName, payload)
}

// EmbedJob asks the embed worker to populate one chunk's embedding.
type EmbedJob struct {
	ChunkID uint `json:"chunk_id"`
}

// EmbedJobPublisher enqueues chunks for background embedding.
type EmbedJobPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewEmbedJobPublisher(conn *amqp.Connection, queueName string) *EmbedJobPublisher {
	return &EmbedJobPublisher{conn: conn, queueName: queueName}
}

func (p *EmbedJobPublisher) PublishChunkEmbed(ctx context.Context, chunkID uint) error {
	payload, err := json.Marshal(EmbedJob{ChunkID: chunkID})
	if err != nil {
		return fmt.Errorf("marshal embed job failed: %w", err)
	}
	return publish(ctx, p.conn, p.queueName, payload)
}

func publish(ctx context.Context, conn *amqp.Connection, queueName string, payload []byte) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish to %s failed: %w", queueName, err)
	}
	return nil
}
