package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Every event of the categorizer goes through one durable topic exchange.
// email.received is consumed by the worker; email.categorized and
// category.rules.changed are published for downstream inbox views.
const (
	ExchangeName = "events"

	RoutingKeyEmailReceived    = "email.received"
	RoutingKeyEmailCategorized = "email.categorized"
	RoutingKeyRulesChanged     = "category.rules.changed"
)

const heartbeat = 10 * time.Second

// dial opens a broker connection tagged with the calling role so it shows
// up by name in the management UI.
func dial(url, role string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName("categorizer-" + role)

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq as %s: %w", role, err)
	}
	return conn, nil
}

// declareEvents declares the events exchange; publisher and consumer both
// call it so either can start first.
func declareEvents(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}
	return nil
}
