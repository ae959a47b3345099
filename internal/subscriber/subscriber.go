// Package subscriber consumes broker messages for the ingest worker.
// Implementations ack a message only when the handler returns nil.
package subscriber

import "context"

// MessageHandler processes one message. A non-nil error leaves the
// message unacknowledged so the broker can redeliver it.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber defines the interface for message subscription
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler MessageHandler) error
	Unsubscribe(subject string) error
	Close() error
}

// Config identifies this consumer to the broker.
type Config struct {
	// NodeID distinguishes consumers within a group.
	NodeID string

	// ConsumerGroup shares work between vitalsd replicas.
	ConsumerGroup string

	// MaxDeliver caps redelivery attempts where the broker supports it.
	MaxDeliver int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		NodeID:        "vitalsd",
		ConsumerGroup: "vitals-ingest",
		MaxDeliver:    3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NodeID == "" {
		c.NodeID = d.NodeID
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = d.ConsumerGroup
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = d.MaxDeliver
	}
	return c
}
