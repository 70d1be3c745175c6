package mq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSettle(t *testing.T) {
	ack, requeue := Settle(nil)
	assert.True(t, ack)
	assert.False(t, requeue)

	ack, requeue = Settle(errors.New("db down"))
	assert.False(t, ack)
	assert.True(t, requeue)

	ack, requeue = Settle(Permanent(errors.New("bad json")))
	assert.False(t, ack)
	assert.False(t, requeue)

	ack, requeue = Settle(fmt.Errorf("handler: %w", Permanent(errors.New("bad json"))))
	assert.False(t, ack)
	assert.False(t, requeue)
}

func TestDrainReportsBrokerClose(t *testing.T) {
	c := &Consumer{logger: zap.NewNop()}
	deliveries := make(chan amqp091.Delivery)
	close(deliveries)

	err := c.drain(context.Background(), deliveries)
	assert.ErrorIs(t, err, ErrDeliveryClosed)
}

func TestDrainReturnsContextErrorOnShutdown(t *testing.T) {
	c := &Consumer{logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deliveries := make(chan amqp091.Delivery)
	close(deliveries)

	err := c.drain(ctx, deliveries)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrDeliveryClosed)
}

func TestDeadLetterTopology(t *testing.T) {
	assert.Equal(t, "email.received.categorize.q.dlq", DLQName("email.received.categorize.q"))
	assert.Equal(t, DLQExchangeName, deadLetterArgs()["x-dead-letter-exchange"])
}
