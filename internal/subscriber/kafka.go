package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sensacare/vitals/internal/logging"
)

var kafkaLog = logging.Global().With("component", "subscriber.kafka")

// KafkaSubscriber reads topics through a consumer group. Subjects are used
// as topic names.
type KafkaSubscriber struct {
	brokers       []string
	consumerGroup string
	readers       map[string]*kafka.Reader
	cancels       map[string]context.CancelFunc
	mu            sync.Mutex
}

func NewKafkaSubscriber(brokers []string, consumerGroup string) (*KafkaSubscriber, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if consumerGroup == "" {
		consumerGroup = DefaultConfig().ConsumerGroup
	}

	return &KafkaSubscriber{
		brokers:       brokers,
		consumerGroup: consumerGroup,
		readers:       make(map[string]*kafka.Reader),
		cancels:       make(map[string]context.CancelFunc),
	}, nil
}

func (s *KafkaSubscriber) readerConfig(topic string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:           s.brokers,
		GroupID:           s.consumerGroup,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           3 * time.Second,
		StartOffset:       kafka.FirstOffset,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		RebalanceTimeout:  60 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			kafkaLog.Debug(fmt.Sprintf(msg, args...))
		}),
	}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.readers[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(s.readerConfig(subject))
	s.readers[subject] = reader

	subCtx, cancel := context.WithCancel(ctx)
	s.cancels[subject] = cancel

	go s.consume(subCtx, reader, subject, handler)

	kafkaLog.Info("Subscribed to Kafka topic", "topic", subject, "group", s.consumerGroup)
	return nil
}

// consume commits only after the handler succeeds. A failed message is
// retried in place until it succeeds or the subscription ends.
func (s *KafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, subject string, handler MessageHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			kafkaLog.Error("Failed to fetch message", "topic", subject, "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		for {
			err := handler(ctx, subject, msg.Value)
			if err == nil {
				break
			}
			kafkaLog.Error("Failed to handle message", "topic", subject, "offset", msg.Offset, "error", err)
			sleepCtx(ctx, time.Second)
			if ctx.Err() != nil {
				return
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			kafkaLog.Error("Failed to commit message", "topic", subject, "offset", msg.Offset, "error", err)
		}
	}
}

func (s *KafkaSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, exists := s.cancels[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	cancel()
	delete(s.cancels, subject)

	if reader, ok := s.readers[subject]; ok {
		if err := reader.Close(); err != nil {
			kafkaLog.Warn("Failed to close reader", "topic", subject, "error", err)
		}
		delete(s.readers, subject)
	}
	return nil
}

func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = make(map[string]context.CancelFunc)

	var lastErr error
	for topic, reader := range s.readers {
		if err := reader.Close(); err != nil {
			kafkaLog.Warn("Failed to close reader", "topic", topic, "error", err)
			lastErr = err
		}
	}
	s.readers = make(map[string]*kafka.Reader)
	return lastErr
}
