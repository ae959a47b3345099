package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sensacare/vitals/internal/logging"
)

var natsLog = logging.Global().With("component", "queue.nats")

// NATSPublisher publishes through JetStream. A stream covering the
// subject's family is created on first use when none exists.
type NATSPublisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	streams map[string]struct{}
	mu      sync.Mutex
}

// NewNATSPublisher connects to url with JetStream enabled.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("vitals-publisher"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := NewNATSPublisherWithConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// NewNATSPublisherWithConn wraps an existing connection.
func NewNATSPublisherWithConn(conn *nats.Conn) (*NATSPublisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &NATSPublisher{
		conn:    conn,
		js:      js,
		streams: make(map[string]struct{}),
	}, nil
}

// subjectFamily returns the wildcard a stream should capture for subject:
// "vitals.alerts.u1" -> "vitals.alerts.>". Two-token subjects are kept as is.
func subjectFamily(subject string) string {
	tokens := strings.Split(subject, ".")
	if len(tokens) < 3 {
		return subject
	}
	return strings.Join(tokens[:len(tokens)-1], ".") + ".>"
}

func (q *NATSPublisher) ensureStream(subject string) error {
	family := subjectFamily(subject)

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.streams[family]; ok {
		return nil
	}
	if name, err := q.js.StreamNameBySubject(subject); err == nil && name != "" {
		q.streams[family] = struct{}{}
		return nil
	}

	streamName := "VITALS_" + sanitizeName(strings.TrimSuffix(family, ".>"))
	_, err := q.js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{family},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	natsLog.Debug("Stream ready", "stream", streamName, "subjects", family)
	q.streams[family] = struct{}{}
	return nil
}

// Publish waits for the JetStream ack.
func (q *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch queues every message asynchronously and waits for the acks.
func (q *NATSPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			natsLog.Warn("Skipping message", "subject", msg.Subject, "error", err)
			continue
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			continue
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	successCount := 0
	for _, future := range futures {
		select {
		case <-future.Ok():
			successCount++
		case err := <-future.Err():
			natsLog.Warn("Async publish failed", "subject", future.Msg().Subject, "error", err)
		}
	}
	return successCount, nil
}

func (q *NATSPublisher) Close() error {
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
	}
	return nil
}

// sanitizeName keeps A-Z, a-z, 0-9, dash and underscore.
func sanitizeName(subject string) string {
	result := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
