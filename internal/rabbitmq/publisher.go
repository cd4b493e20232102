package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes audit and lifecycle events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// NewPublisher builds a RabbitMQ publisher, or a noop publisher when AMQP
// is disabled or unreachable. Event publishing is never allowed to block
// service startup.
func NewPublisher(amqpURL, exchange string, logger *zap.SugaredLogger) Publisher {
	if amqpURL == "" {
		logger.Infow("rabbitmq disabled, using noop publisher", "reason", "empty amqp url")
		return noopPublisher{logger: logger}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Warnw("rabbitmq unavailable, using noop publisher", "error", err)
		return noopPublisher{logger: logger}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Warnw("rabbitmq channel failed, using noop publisher", "error", err)
		_ = conn.Close()
		return noopPublisher{logger: logger}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		logger.Warnw("rabbitmq exchange declare failed, using noop publisher", "error", err)
		_ = ch.Close()
		_ = conn.Close()
		return noopPublisher{logger: logger}
	}

	logger.Infow("rabbitmq connected", "exchange", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.SugaredLogger
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	amqpHeaders := amqp.Table{}
	for key, value := range headers {
		amqpHeaders[key] = value
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqpHeaders,
		Body:         body,
	})
	if err != nil {
		p.logger.Warnw("rabbitmq publish failed", "routing_key", routingKey, "error", err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	logger *zap.SugaredLogger
}

func (n noopPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	n.logger.Debugw("noop publish", "routing_key", routingKey)
	return nil
}

func (noopPublisher) Close() error {
	return nil
}
