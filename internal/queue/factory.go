package queue

import (
	"fmt"
	"strings"

	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/utils"
)

// NewPublisher creates a Publisher for cfg.Type. NATS is the default.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return NewNATSPublisher(cfg.URL)

	case utils.QueueTypeRedis:
		return NewRedisPublisher(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

	case utils.QueueTypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		return NewKafkaPublisher(KafkaConfig{Brokers: brokers})

	case utils.QueueTypeMemory:
		return NewMemoryPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}
