package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hamidoujand/usersadmin/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisConfig holds what is needed to reach the redis server.
type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

// NewRedisClient creates a client and waits until redis answers a PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		pingErr := client.Ping(ctx).Err()
		if pingErr == nil {
			break
		}

		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		if ctx.Err() != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping: %w", pingErr)
		}
	}

	return client, nil
}

//==============================================================================

// RedisPublisher publishes events on a redis pub/sub channel.
type RedisPublisher struct {
	log     *logger.Logger
	client  *redis.Client
	channel string
	breaker *gobreaker.CircuitBreaker
}

func NewRedisPublisher(log *logger.Logger, client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		log:     log,
		client:  client,
		channel: channel,
		breaker: newBreaker("redis-publisher", log),
	}
}

// Publish implements Publisher.
func (rp *RedisPublisher) Publish(ctx context.Context, e Event) {
	bs, err := json.Marshal(e)
	if err != nil {
		rp.log.Error(ctx, "marshal event", "eventID", e.ID, "err", err)
		return
	}

	_, err = rp.breaker.Execute(func() (any, error) {
		return nil, rp.client.Publish(ctx, rp.channel, bs).Err()
	})

	if err != nil {
		rp.log.Error(ctx, "publish event to redis", "eventID", e.ID, "channel", rp.channel, "err", err)
	}
}

//==============================================================================

// Relay forwards events received on a redis channel into a local publisher,
// usually the Hub, so SSE clients see changes made on other instances.
type Relay struct {
	log    *logger.Logger
	pubsub *redis.PubSub
}

// NewRelay subscribes to channel and waits for redis to confirm the
// subscription, so nothing published after it returns is missed.
func NewRelay(ctx context.Context, log *logger.Logger, client *redis.Client, channel string) (*Relay, error) {
	pubsub := client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	return &Relay{log: log, pubsub: pubsub}, nil
}

// Run blocks until ctx is done or the subscription is closed.
func (r *Relay) Run(ctx context.Context, dst Publisher) {
	msgs := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.log.Error(ctx, "unmarshal relayed event", "channel", msg.Channel, "err", err)
				continue
			}

			dst.Publish(ctx, e)
		}
	}
}

func (r *Relay) Close() error {
	return r.pubsub.Close()
}
