package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hamidoujand/usersadmin/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// AMQPConfig represents all required configs for publishing to rabbitmq.
type AMQPConfig struct {
	Host     string
	User     string
	Password string
	Exchange string
}

// AMQPPublisher publishes events to a durable fanout exchange.
type AMQPPublisher struct {
	log      *logger.Logger
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	breaker  *gobreaker.CircuitBreaker
}

// NewAMQPPublisher dials rabbitmq, retrying until ctx expires, and declares the exchange.
func NewAMQPPublisher(ctx context.Context, log *logger.Logger, cfg AMQPConfig) (*AMQPPublisher, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	u := url.URL{
		Scheme: "amqp",
		Host:   cfg.Host,
		User:   url.UserPassword(cfg.User, cfg.Password),
	}

	var conn *amqp.Connection
	for attempt := 1; ; attempt++ {
		var dialErr error
		conn, dialErr = amqp.Dial(u.String())
		if dialErr == nil {
			break
		}

		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dial: %w", dialErr)
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchangeDeclare %s: %w", cfg.Exchange, err)
	}

	return &AMQPPublisher{
		log:      log,
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		breaker:  newBreaker("amqp-publisher", log),
	}, nil
}

// Publish implements Publisher.
func (ap *AMQPPublisher) Publish(ctx context.Context, e Event) {
	bs, err := json.Marshal(e)
	if err != nil {
		ap.log.Error(ctx, "marshal event", "eventID", e.ID, "err", err)
		return
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Type:         e.Name(),
		Timestamp:    e.OccurredAt,
		Body:         bs,
	}

	_, err = ap.breaker.Execute(func() (any, error) {
		return nil, ap.channel.PublishWithContext(ctx, ap.exchange, "", false, false, msg)
	})

	if err != nil {
		ap.log.Error(ctx, "publish event to rabbitmq", "eventID", e.ID, "exchange", ap.exchange, "err", err)
	}
}

// Close closes the channel and then the connection.
func (ap *AMQPPublisher) Close() error {
	if err := ap.channel.Close(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}

	if err := ap.conn.Close(); err != nil {
		return fmt.Errorf("connection: %w", err)
	}

	return nil
}
