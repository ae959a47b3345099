package utils

import (
	"strings"
	"time"
)

// HTTP handler timeouts
const (
	// DefaultRequestTimeout bounds an analytics request including the storage query.
	DefaultRequestTimeout = 30 * time.Second

	// BatchWriteTimeout bounds a reading batch write.
	BatchWriteTimeout = 10 * time.Second

	// StorageConnectTimeout bounds the initial ping of a storage backend.
	StorageConnectTimeout = 5 * time.Second
)

// Query window limits
const (
	// DefaultLookback is used when a request omits start_time.
	DefaultLookback = 7 * 24 * time.Hour

	// MaxQueryWindow is the widest window an analytics request may ask for.
	MaxQueryWindow = 90 * 24 * time.Hour

	// MaxBatchSize is the most readings accepted in one write.
	MaxBatchSize = 10000
)

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// StorageType selects the reading and profile backend.
type StorageType string

const (
	StorageTypeMemory   StorageType = "memory"
	StorageTypeRedis    StorageType = "redis"
	StorageTypePostgres StorageType = "postgres"
)

// Subjects
const (
	DefaultReadingsSubject = "vitals.readings"
	DefaultAlertsPrefix    = "vitals.alerts"
)

// AlertSubject returns the per-user alert subject under prefix.
func AlertSubject(prefix, userID string) string {
	if prefix == "" {
		prefix = DefaultAlertsPrefix
	}
	return strings.TrimSuffix(prefix, ".") + "." + userID
}
