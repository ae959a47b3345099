package config

import (
	"fmt"
	"time"
)

// Config is the complete vitalsd configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	HTTPPort     int           `mapstructure:"http_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // bytes
}

// StorageConfig selects where readings and profiles live.
type StorageConfig struct {
	Type          string         `mapstructure:"type"`           // memory, redis, postgres
	Timezone      string         `mapstructure:"timezone"`       // "Asia/Tokyo", "+09:00", "UTC"
	RecencyWindow time.Duration  `mapstructure:"recency_window"` // oldest accepted reading age
	Redis         RedisConfig    `mapstructure:"redis"`
	Postgres      PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig is used when storage.type is redis.
type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	KeyPrefix   string `mapstructure:"key_prefix"`
	Compression string `mapstructure:"compression"` // none, snappy
}

// PostgresConfig is used when storage.type is postgres.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// QueueConfig is the message broker shared by ingestion and alerts.
type QueueConfig struct {
	Type     string `mapstructure:"type"` // nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`
	RedisGroup    string `mapstructure:"redis_group"`
	RedisConsumer string `mapstructure:"redis_consumer"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`
}

// IngestConfig controls the queue consumer that stores device batches.
type IngestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Subject       string `mapstructure:"subject"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	NodeID        string `mapstructure:"node_id"`
}

// AlertsConfig controls publication of detections that need medical attention.
type AlertsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// AnalyticsConfig overrides the analyzer windows. Zero values keep the defaults.
type AnalyticsConfig struct {
	SampleInterval      time.Duration `mapstructure:"sample_interval"`
	HRVAdjacencyWindow  time.Duration `mapstructure:"hrv_adjacency_window"`
	RecoveryWindow      time.Duration `mapstructure:"recovery_window"`
	IrregularWindowSpan time.Duration `mapstructure:"irregular_window_span"`
	SuddenChangeWindow  time.Duration `mapstructure:"sudden_change_window"`
	SustainedMinSpan    time.Duration `mapstructure:"sustained_min_span"`
	DefaultLookback     time.Duration `mapstructure:"default_lookback"`
}

// AuthConfig is API key authentication for /v1.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// LoggingConfig is consumed by logging.NewFromConfig.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}
	if c.Ingest.Enabled && c.Ingest.Subject == "" {
		return fmt.Errorf("ingest config: subject is required when enabled")
	}
	if c.Alerts.Enabled && c.Alerts.SubjectPrefix == "" {
		return fmt.Errorf("alerts config: subject_prefix is required when enabled")
	}
	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics config: %w", err)
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth config: api_keys is required when enabled")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required")
		}
		if c.Redis.Compression != "" && c.Redis.Compression != "none" && c.Redis.Compression != "snappy" {
			return fmt.Errorf("redis.compression must be 'none' or 'snappy'")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Type)
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("recency_window must be positive")
	}
	return nil
}

func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "nats", "redis", "memory":
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("kafka requires kafka_brokers or url")
		}
	default:
		return fmt.Errorf("unsupported queue type: %q", c.Type)
	}
	return nil
}

func (c *AnalyticsConfig) Validate() error {
	durations := map[string]time.Duration{
		"sample_interval":       c.SampleInterval,
		"hrv_adjacency_window":  c.HRVAdjacencyWindow,
		"recovery_window":       c.RecoveryWindow,
		"irregular_window_span": c.IrregularWindowSpan,
		"sudden_change_window":  c.SuddenChangeWindow,
		"sustained_min_span":    c.SustainedMinSpan,
		"default_lookback":      c.DefaultLookback,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}
