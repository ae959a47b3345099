package subscriber

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sensacare/vitals/internal/logging"
)

var natsLog = logging.Global().With("component", "subscriber.nats")

// NATSSubscriber consumes JetStream subjects through durable consumers.
type NATSSubscriber struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	cfg           Config
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

func NewNATSSubscriber(url string, cfg Config) (*NATSSubscriber, error) {
	cfg = cfg.withDefaults()
	opts := []nats.Option{
		nats.Name(fmt.Sprintf("vitals-ingest-%s", cfg.NodeID)),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				natsLog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			natsLog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSSubscriber{
		conn:          conn,
		js:            js,
		cfg:           cfg,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := s.ensureStream(subject); err != nil {
		return err
	}

	durableName := s.durableName(subject)

	// Queue subscription so replicas in one group share the subject.
	sub, err := s.js.QueueSubscribe(subject, s.cfg.ConsumerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			_ = msg.Nak()
			return
		}

		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			natsLog.Error("Failed to handle message",
				"subject", msg.Subject,
				"error", err,
				"data_preview", string(msg.Data[:min(100, len(msg.Data))]))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(s.cfg.MaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.subscriptions[subject] = sub
	natsLog.Info("Subscribed to subject", "subject", subject, "durable", durableName)
	return nil
}

// ensureStream reuses any stream already capturing subject and otherwise
// creates a work-queue stream for it.
func (s *NATSSubscriber) ensureStream(subject string) error {
	if name, err := s.js.StreamNameBySubject(subject); err == nil && name != "" {
		return nil
	}

	streamName := s.getStreamName(subject)
	if _, err := s.js.StreamInfo(streamName); err == nil {
		return nil
	}

	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return nil
}

// getStreamName maps a subject to a valid stream name (no dots).
func (s *NATSSubscriber) getStreamName(subject string) string {
	sanitized := strings.NewReplacer(".", "_", "-", "_").Replace(subject)
	return "STREAM_" + sanitized
}

func (s *NATSSubscriber) durableName(subject string) string {
	sanitized := strings.NewReplacer(".", "_", "*", "all", ">", "rest").Replace(subject)
	return fmt.Sprintf("%s-%s", s.cfg.ConsumerGroup, sanitized)
}

func (s *NATSSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
	}
	delete(s.subscriptions, subject)
	return nil
}

func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			natsLog.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
	}
	s.subscriptions = make(map[string]*nats.Subscription)

	s.conn.Close()
	natsLog.Info("NATS subscriber closed")
	return nil
}
