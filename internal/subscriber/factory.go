package subscriber

import (
	"fmt"
	"strings"

	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/utils"
)

// NewSubscriber creates a Subscriber for cfg.Type. NATS is the default.
func NewSubscriber(cfg config.QueueConfig, subCfg Config) (Subscriber, error) {
	subCfg = subCfg.withDefaults()

	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return NewNATSSubscriber(cfg.URL, subCfg)
	case utils.QueueTypeRedis:
		addr := strings.TrimPrefix(cfg.URL, "redis://")
		if addr == "" {
			addr = "localhost:6379"
		}
		return NewRedisSubscriber(RedisOptions{
			Addr:         addr,
			Password:     cfg.Password,
			DB:           cfg.RedisDB,
			StreamPrefix: cfg.RedisStream,
			Group:        firstNonEmpty(cfg.RedisGroup, subCfg.ConsumerGroup),
			Consumer:     firstNonEmpty(cfg.RedisConsumer, subCfg.NodeID),
		})
	case utils.QueueTypeKafka:
		brokers := cfg.KafkaBrokers
		if len(brokers) == 0 && cfg.URL != "" {
			brokers = strings.Split(cfg.URL, ",")
		}
		return NewKafkaSubscriber(brokers, firstNonEmpty(cfg.KafkaGroupID, subCfg.ConsumerGroup))
	case utils.QueueTypeMemory:
		return NewMemorySubscriber()
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", queueType)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
