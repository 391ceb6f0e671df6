package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"testbank/internal/processing"

	"github.com/rabbitmq/amqp091-go"
)

const (
	callbackExchange   = "testbank.extraction"
	callbackRoutingKey = "extraction.callback"
	consumePrefetch    = 10
	handleTimeout      = 5 * time.Minute
)

type recordLookup interface {
	GetRecordByUploadID(ctx context.Context, uploadID string) (*processing.Record, error)
}

// Consumer reads extraction callbacks off RabbitMQ and hands them to the
// pipeline. Messages are acked after processing; delivery is at-least-once,
// so redeliveries for records that already left pending are dropped.
type Consumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	pipeline  *Pipeline
	records   recordLookup
	enabled   bool
}

func NewConsumer(amqpURL, queueName string, pipeline *Pipeline, records recordLookup) (*Consumer, error) {
	if amqpURL == "" {
		log.Println("ingest: amqp url is empty, callback consumption is disabled")
		return &Consumer{enabled: false}, nil
	}

	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(callbackExchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	queue, err := channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.QueueBind(queue.Name, callbackRoutingKey, callbackExchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &Consumer{
		conn:      conn,
		channel:   channel,
		queueName: queue.Name,
		pipeline:  pipeline,
		records:   records,
		enabled:   true,
	}, nil
}

func (c *Consumer) Start() error {
	if !c.enabled {
		return nil
	}

	if err := c.channel.Qos(consumePrefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := c.processMessage(msg.Body); err != nil {
				log.Printf("ingest: process callback: %v", err)
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}()

	log.Printf("ingest: consuming extraction callbacks from %q", c.queueName)
	return nil
}

func (c *Consumer) processMessage(body []byte) error {
	var msg CallbackMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// Poison message, drop it.
		log.Printf("ingest: dropping malformed callback: %v", err)
		return nil
	}
	if msg.UploadID == "" {
		log.Println("ingest: dropping callback without upload id")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	rec, err := c.records.GetRecordByUploadID(ctx, msg.UploadID)
	if err != nil {
		if errors.Is(err, processing.ErrRecordNotFound) {
			log.Printf("ingest: dropping callback for unknown upload %q", msg.UploadID)
			return nil
		}
		return fmt.Errorf("load record for upload %q: %w", msg.UploadID, err)
	}
	if rec.Status != processing.StatusPending {
		// Redelivered callback, the record was already picked up.
		log.Printf("ingest: dropping callback for upload %q, record %d is %s", msg.UploadID, rec.ID, rec.Status)
		return nil
	}

	return c.pipeline.Ingest(ctx, rec.ID, msg)
}

func (c *Consumer) Close() error {
	if !c.enabled {
		return nil
	}
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
