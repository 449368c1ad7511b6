package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DONORMATCH_SERVER_ADDR.
const EnvPrefix = "DONORMATCH"

// Config is the full service configuration.
type Config struct {
	Server   Server      `mapstructure:"server"`
	Database Database    `mapstructure:"database"`
	Redis    RedisConfig `mapstructure:"redis"`
	Kafka    Kafka       `mapstructure:"kafka"`
	Matching Matching    `mapstructure:"matching"`
	Breaker  Breaker     `mapstructure:"breaker"`
	Cache    Cache       `mapstructure:"cache"`
	Logging  Logging     `mapstructure:"logging"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Database configures the PostgreSQL pool. An empty URL runs the service on
// in-memory stores.
type Database struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig configures the shared donor cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Kafka configures search notifications. No brokers disables publishing.
type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	ClientID          string   `mapstructure:"client_id"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
}

// Matching tunes the match engine.
type Matching struct {
	BatchSize       int           `mapstructure:"batch_size"`
	MaxPhaseOneLoci int           `mapstructure:"max_phase_one_loci"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
}

// Breaker configures the circuit breaker around the locus match source.
type Breaker struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// Cache configures the donor record cache tiers.
type Cache struct {
	LocalSize int           `mapstructure:"local_size"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional YAML file, then environment
// variables, on top of defaults. With an empty path the standard locations
// are searched and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("donormatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/donormatch/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "donormatch.searches")
	v.SetDefault("kafka.client_id", "donormatch")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)

	v.SetDefault("matching.batch_size", 50_000)
	v.SetDefault("matching.max_phase_one_loci", 0)
	v.SetDefault("matching.search_timeout", "30s")

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "60s")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.consecutive_failures", 5)

	v.SetDefault("cache.local_size", 100_000)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.key_prefix", "donormatch:donor:")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}
	if c.Matching.BatchSize <= 0 {
		return fmt.Errorf("invalid matching batch size: %d", c.Matching.BatchSize)
	}
	if c.Matching.MaxPhaseOneLoci < 0 {
		return fmt.Errorf("invalid max phase one loci: %d", c.Matching.MaxPhaseOneLoci)
	}
	if c.Matching.SearchTimeout < 0 {
		return fmt.Errorf("invalid search timeout: %s", c.Matching.SearchTimeout)
	}
	if c.Cache.LocalSize < 0 {
		return fmt.Errorf("invalid local cache size: %d", c.Cache.LocalSize)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are configured")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}
