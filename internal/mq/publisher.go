package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher handles event publishing to RabbitMQ
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// AnomalyEvent is published for every transaction flagged in a run.
type AnomalyEvent struct {
	RunID         string  `json:"run_id"`
	TransactionID string  `json:"transaction_id"`
	OccurredAt    string  `json:"occurred_at"`
	Amount        float64 `json:"amount"`
	RollingSum    float64 `json:"rolling_sum"`
	Threshold     float64 `json:"threshold"`
}

// RunSummaryEvent is published once per completed run.
type RunSummaryEvent struct {
	RunID            string  `json:"run_id"`
	Source           string  `json:"source"`
	WindowSize       int     `json:"window_size"`
	AnomalyQuantile  float64 `json:"anomaly_quantile"`
	Threshold        float64 `json:"threshold"`
	TransactionCount int     `json:"transaction_count"`
	AnomalyCount     int     `json:"anomaly_count"`
}

// PublishAnomalyEvent publishes a flagged-transaction event
func (p *Publisher) PublishAnomalyEvent(ctx context.Context, event AnomalyEvent, routingKey string) error {
	if err := p.publish(ctx, event, routingKey); err != nil {
		return err
	}

	p.logger.Debug("published anomaly event",
		zap.String("routing_key", routingKey),
		zap.String("run_id", event.RunID),
		zap.String("transaction_id", event.TransactionID),
	)

	return nil
}

// PublishRunSummary publishes a run summary event
func (p *Publisher) PublishRunSummary(ctx context.Context, event RunSummaryEvent, routingKey string) error {
	if err := p.publish(ctx, event, routingKey); err != nil {
		return err
	}

	p.logger.Debug("published run summary",
		zap.String("routing_key", routingKey),
		zap.String("run_id", event.RunID),
		zap.Int("anomaly_count", event.AnomalyCount),
	)

	return nil
}

func (p *Publisher) publish(ctx context.Context, event interface{}, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
