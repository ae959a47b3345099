package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sensacare/vitals/internal/utils"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // redis://host:port or plain host:port
	Password string
	DB       int
	Stream   string // Stream prefix (default: "vitals")
}

// RedisPublisher appends messages to <prefix>:<subject> streams under the
// "data" field.
type RedisPublisher struct {
	client *redis.Client
	config RedisConfig
}

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), utils.StorageConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisPublisherWithClient(client, cfg), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, cfg RedisConfig) *RedisPublisher {
	if cfg.Stream == "" {
		cfg.Stream = "vitals"
	}
	return &RedisPublisher{client: client, config: cfg}
}

// StreamName converts a subject to a Redis stream name
func (q *RedisPublisher) StreamName(subject string) string {
	return fmt.Sprintf("%s:%s", q.config.Stream, subject)
}

func (q *RedisPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.StreamName(subject)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"data": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}
	return nil
}

// PublishBatch sends all messages in one pipeline.
func (q *RedisPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.StreamName(msg.Subject),
			ID:     "*",
			Values: map[string]interface{}{"data": msg.Data},
		})
	}

	cmds, err := pipe.Exec(ctx)
	if err != nil && len(cmds) == 0 {
		return 0, fmt.Errorf("failed to execute batch publish: %w", err)
	}

	successCount := 0
	for _, cmd := range cmds {
		if cmd.Err() == nil {
			successCount++
		}
	}
	return successCount, nil
}

func (q *RedisPublisher) Close() error {
	return q.client.Close()
}
