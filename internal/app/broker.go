package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"settlement/internal/config"
)

// Broker publishes settlement events to a durable AMQP topic exchange.
type Broker struct {
	exchange string
	conn     *amqp.Connection
	ch       *amqp.Channel
	mu       sync.Mutex
}

// NewBroker dials cfg.URL, retrying with backoff until ctx is done, and
// declares the exchange.
func NewBroker(ctx context.Context, cfg config.BrokerConfig, logger *zap.Logger) (*Broker, error) {
	retryDelay := time.Second
	for attempt := 1; ; attempt++ {
		b, err := dialBroker(cfg)
		if err == nil {
			logger.Info("connected to broker", zap.String("exchange", cfg.Exchange), zap.Int("attempt", attempt))
			return b, nil
		}
		logger.Warn("broker connection failed", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect broker after %d attempts: %w", attempt, err)
		case <-time.After(retryDelay):
			retryDelay = min(retryDelay*3/2, 10*time.Second)
		}
	}
}

func dialBroker(cfg config.BrokerConfig) (*Broker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}

	return &Broker{exchange: cfg.Exchange, conn: conn, ch: ch}, nil
}

// Publish sends body as a persistent JSON message.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte) error {
	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ch.PublishWithContext(
		publishCtx,
		b.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// Close closes the channel and the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ch.Close(); err != nil {
		_ = b.conn.Close()
		return err
	}
	return b.conn.Close()
}
