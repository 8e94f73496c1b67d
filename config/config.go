package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	AES         AESConfig         `mapstructure:"aes"`
	Log         LogConfig         `mapstructure:"log"`
	Jobs        JobsConfig        `mapstructure:"worker"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key used for merchant webhook secrets
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// JobsConfig holds the raw worker switches as loaded from file/env.
type JobsConfig struct {
	TestMode                  bool `mapstructure:"test_mode"`
	TestPaymentSuccess        bool `mapstructure:"test_payment_success"`
	WebhookRetryIntervalsTest bool `mapstructure:"webhook_retry_intervals_test"`
}

type WebhookConfig struct {
	Timeout time.Duration `mapstructure:"timeout"` // bound on each outbound delivery call
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkerConfig is the immutable set of knobs handed to each worker at construction.
// It is a value type; workers keep their own copy.
type WorkerConfig struct {
	TestMode           bool
	TestPaymentSuccess bool
	FastWebhookRetries bool
	WebhookTimeout     time.Duration
	RetrySweepInterval time.Duration
	IdempotencyTTL     time.Duration
}

// Worker derives the WorkerConfig from the loaded configuration.
func (c *Config) Worker() WorkerConfig {
	return WorkerConfig{
		TestMode:           c.Jobs.TestMode,
		TestPaymentSuccess: c.Jobs.TestPaymentSuccess,
		FastWebhookRetries: c.Jobs.WebhookRetryIntervalsTest,
		WebhookTimeout:     c.Webhook.Timeout,
		RetrySweepInterval: c.Scheduler.Interval,
		IdempotencyTTL:     c.Idempotency.TTL,
	}
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PGW_ (Payment GateWay).
// Nested keys use underscore: PGW_DATABASE_HOST, PGW_WORKER_TEST_MODE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gateway_user")
	v.SetDefault("database.password", "gateway_pass")
	v.SetDefault("database.dbname", "payment_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("worker.test_mode", false)
	v.SetDefault("worker.test_payment_success", true)
	v.SetDefault("worker.webhook_retry_intervals_test", false)
	v.SetDefault("webhook.timeout", "5s")
	v.SetDefault("scheduler.interval", "10s")
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("metrics.enabled", true)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PGW_WORKER_TEST_MODE -> worker.test_mode
	v.SetEnvPrefix("PGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Webhook.Timeout <= 0 {
		return nil, fmt.Errorf("webhook.timeout must be positive, got %s", cfg.Webhook.Timeout)
	}
	if cfg.Scheduler.Interval <= 0 {
		return nil, fmt.Errorf("scheduler.interval must be positive, got %s", cfg.Scheduler.Interval)
	}

	return &cfg, nil
}
