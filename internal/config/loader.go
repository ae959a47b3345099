package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from configPath, or from the default search
// paths when configPath is empty. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/vitals")
	}

	setDefaults(v)

	v.SetEnvPrefix("VITALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return parseConfig(v)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.timezone", d.Storage.Timezone)
	v.SetDefault("storage.recency_window", d.Storage.RecencyWindow)
	v.SetDefault("storage.redis.addr", d.Storage.Redis.Addr)
	v.SetDefault("storage.redis.key_prefix", d.Storage.Redis.KeyPrefix)
	v.SetDefault("storage.redis.compression", d.Storage.Redis.Compression)
	v.SetDefault("storage.postgres.max_open_conns", d.Storage.Postgres.MaxOpenConns)
	v.SetDefault("storage.postgres.max_idle_conns", d.Storage.Postgres.MaxIdleConns)
	v.SetDefault("storage.postgres.conn_max_lifetime", d.Storage.Postgres.ConnMaxLifetime)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)

	v.SetDefault("ingest.enabled", d.Ingest.Enabled)
	v.SetDefault("ingest.subject", d.Ingest.Subject)
	v.SetDefault("ingest.consumer_group", d.Ingest.ConsumerGroup)

	v.SetDefault("alerts.enabled", d.Alerts.Enabled)
	v.SetDefault("alerts.subject_prefix", d.Alerts.SubjectPrefix)

	v.SetDefault("analytics.default_lookback", d.Analytics.DefaultLookback)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig is a valid single-node configuration backed by memory storage.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BodyLimit:    4 * 1024 * 1024,
		},
		Storage: StorageConfig{
			Type:          "memory",
			Timezone:      "UTC",
			RecencyWindow: 30 * 24 * time.Hour,
			Redis: RedisConfig{
				Addr:        "localhost:6379",
				KeyPrefix:   "vitals",
				Compression: "snappy",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Queue: QueueConfig{
			Type:        "nats",
			URL:         "nats://localhost:4222",
			RedisStream: "vitals",
			RedisGroup:  "vitals-group",
		},
		Ingest: IngestConfig{
			Enabled:       false,
			Subject:       "vitals.readings",
			ConsumerGroup: "vitals-ingest",
		},
		Alerts: AlertsConfig{
			Enabled:       false,
			SubjectPrefix: "vitals.alerts",
		},
		Analytics: AnalyticsConfig{
			DefaultLookback: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
