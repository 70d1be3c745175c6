package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// DLQExchangeName receives emails the categorize worker rejected without
// requeue: undecodable payloads and store failures past the retry budget.
const DLQExchangeName = "events.dlq"

// DLQName is the parking queue behind queue, e.g.
// email.received.categorize.q.dlq.
func DLQName(queue string) string {
	return queue + ".dlq"
}

// deadLetterArgs routes rejected deliveries of a work queue to the DLQ
// exchange, keeping their original routing key.
func deadLetterArgs() amqp091.Table {
	return amqp091.Table{"x-dead-letter-exchange": DLQExchangeName}
}

// declareDeadLetter sets up the DLQ exchange and the parking queue for
// queue, bound on routingKey.
func declareDeadLetter(ch *amqp091.Channel, queue, routingKey string) error {
	if err := ch.ExchangeDeclare(DLQExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", DLQExchangeName, err)
	}

	name := DLQName(queue)
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := ch.QueueBind(name, routingKey, DLQExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", name, DLQExchangeName, err)
	}
	return nil
}
