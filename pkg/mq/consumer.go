package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"unifiedinbox/pkg/metrics"
	"unifiedinbox/pkg/otel"
	"unifiedinbox/pkg/trace"
)

// prefetch bounds unacked deliveries per consumer.
const prefetch = 16

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// ErrPermanent marks a handler failure that redelivery cannot fix. Messages
// failing with it are dead-lettered instead of requeued.
var ErrPermanent = errors.New("permanent failure")

// ErrDeliveryClosed is returned by StartConsuming when the broker closes the
// delivery channel while ctx is still live, e.g. after a connection loss.
var ErrDeliveryClosed = errors.New("delivery channel closed")

// Permanent wraps err so the consumer dead-letters the message.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer declares queueName bound to routingKey on the events exchange,
// with DLQName(queueName) behind it.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := dial(url, "consumer")
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := declareEvents(ch); err != nil {
		return fail(err)
	}
	if err := declareDeadLetter(ch, queueName, routingKey); err != nil {
		return fail(err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		deadLetterArgs(),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to declare queue: %w", err))
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return fail(fmt.Errorf("failed to bind queue: %w", err))
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("failed to set qos: %w", err))
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is cancelled or the delivery channel closes.
// A broker-side close returns ErrDeliveryClosed so the caller can exit non-zero.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue.Name,
		"",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	return c.drain(ctx, deliveries)
}

// drain processes deliveries until the channel closes.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp091.Delivery) error {
	for msg := range deliveries {
		c.process(ctx, msg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Warn("Delivery channel closed by broker", zap.String("queue", c.queue.Name))
	return ErrDeliveryClosed
}

func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	}()

	// 保证每条消息都会被 ack 或 nack
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.Any("panic", r),
			)
			if err := msg.Nack(false, false); err != nil {
				c.logger.Error("Failed to nack message after panic", zap.Error(err))
			}
		}
	}()

	ctx = otel.ExtractHeaders(ctx, msg.Headers)
	if traceID, ok := msg.Headers[TraceIDHeader].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	ctx, span := otel.MQConsumeSpan(ctx, c.queue.Name, c.routingKey)
	defer span.End()

	err := c.handler(ctx, msg.Body)
	ack, requeue := Settle(err)
	if ack {
		if err := msg.Ack(false); err != nil {
			c.logger.Error("Failed to ack message",
				zap.String("routing_key", c.routingKey),
				zap.Error(err),
			)
		}
		return
	}

	c.logger.Error("Handler error",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.Bool("requeue", requeue),
		zap.Error(err),
	)
	if err := msg.Nack(false, requeue); err != nil {
		c.logger.Error("Failed to nack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
	}
}

// Settle maps a handler result to the broker acknowledgement: success acks,
// permanent failures are rejected to the DLQ, everything else is requeued.
func Settle(err error) (ack bool, requeue bool) {
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, ErrPermanent):
		return false, false
	default:
		return false, true
	}
}
