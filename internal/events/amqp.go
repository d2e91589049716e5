package events

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const exchange = "application_updates"

// AMQP publishes events to a RabbitMQ topic exchange. Routing keys follow
// the pattern application.<id>, so consumers can bind to a single
// application or to application.# for everything.
type AMQP struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

func NewAMQP(url string, logger *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQP{conn: conn, channel: channel, logger: logger}, nil
}

func (a *AMQP) Publish(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := fmt.Sprintf("application.%d", event.ApplicationID)

	err = a.channel.Publish(
		exchange, // exchange
		key,      // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	a.logger.Debug("published application event",
		zap.String("routing_key", key),
		zap.String("status", event.Status),
	)

	return nil
}

func (a *AMQP) Close() error {
	if err := a.channel.Close(); err != nil {
		a.conn.Close()
		return fmt.Errorf("close rabbitmq channel: %w", err)
	}
	return a.conn.Close()
}
