package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/utils"
)

var redisLog = logging.Global().With("component", "subscriber.redis")

// RedisOptions configures a RedisSubscriber. StreamPrefix must match the
// publisher's so that both resolve <prefix>:<subject> to the same stream.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	StreamPrefix string // default: "vitals"
	Group        string
	Consumer     string
	Block        time.Duration // XREADGROUP block time (default: 1s)
}

// RedisSubscriber reads Redis Streams through a consumer group.
type RedisSubscriber struct {
	client        *redis.Client
	opts          RedisOptions
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

// NewRedisSubscriber connects and pings the server.
func NewRedisSubscriber(opts RedisOptions) (*RedisSubscriber, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), utils.StorageConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSubscriberWithClient(client, opts), nil
}

// NewRedisSubscriberWithClient wraps an existing client.
func NewRedisSubscriberWithClient(client *redis.Client, opts RedisOptions) *RedisSubscriber {
	d := DefaultConfig()
	if opts.StreamPrefix == "" {
		opts.StreamPrefix = "vitals"
	}
	if opts.Group == "" {
		opts.Group = d.ConsumerGroup
	}
	if opts.Consumer == "" {
		opts.Consumer = d.NodeID
	}
	if opts.Block <= 0 {
		opts.Block = time.Second
	}
	return &RedisSubscriber{
		client:        client,
		opts:          opts,
		subscriptions: make(map[string]context.CancelFunc),
	}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamName := s.streamName(subject)
	if _, exists := s.subscriptions[streamName]; exists {
		return fmt.Errorf("already subscribed to stream: %s", streamName)
	}

	err := s.client.XGroupCreateMkStream(ctx, streamName, s.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.subscriptions[streamName] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(subCtx, streamName, subject, handler)
	}()

	redisLog.Info("Subscribed to Redis stream", "stream", streamName, "group", s.opts.Group, "consumer", s.opts.Consumer)
	return nil
}

// consume first replays this consumer's pending entries ("0"), then reads
// new ones (">"). Entries whose handler failed stay pending and are retried
// on the next replay pass.
func (s *RedisSubscriber) consume(ctx context.Context, streamName, subject string, handler MessageHandler) {
	cursor := "0"
	for ctx.Err() == nil {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.opts.Group,
			Consumer: s.opts.Consumer,
			Streams:  []string{streamName, cursor},
			Count:    100,
			Block:    s.opts.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				cursor = ">"
				continue
			}
			redisLog.Error("Failed to read from stream", "stream", streamName, "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		received := 0
		failed := 0
		for _, stream := range streams {
			for _, message := range stream.Messages {
				received++
				data, ok := message.Values["data"].(string)
				if !ok {
					redisLog.Warn("Invalid message format", "stream", streamName, "id", message.ID)
					s.client.XAck(ctx, streamName, s.opts.Group, message.ID)
					continue
				}

				if err := handler(ctx, subject, []byte(data)); err != nil {
					redisLog.Error("Failed to handle message", "stream", streamName, "id", message.ID, "error", err)
					failed++
					continue
				}

				if err := s.client.XAck(ctx, streamName, s.opts.Group, message.ID).Err(); err != nil {
					redisLog.Error("Failed to ACK message", "stream", streamName, "id", message.ID, "error", err)
				}
			}
		}

		switch {
		case failed > 0:
			// Back off and replay the pending list.
			cursor = "0"
			sleepCtx(ctx, time.Second)
		case cursor == "0" && received == 0:
			cursor = ">"
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// streamName resolves {prefix}:{subject}
func (s *RedisSubscriber) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", s.opts.StreamPrefix, subject)
}

func (s *RedisSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamName := s.streamName(subject)
	cancel, exists := s.subscriptions[streamName]
	if !exists {
		return fmt.Errorf("not subscribed to stream: %s", streamName)
	}

	cancel()
	delete(s.subscriptions, streamName)
	return nil
}

// Close cancels every consumer, waits for them and closes the client.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	s.wg.Wait()

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	redisLog.Info("Redis subscriber closed")
	return nil
}
