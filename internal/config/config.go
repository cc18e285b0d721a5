// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultCodeTTL = 5 * time.Minute

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the tenant HTTP API listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health service. Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store (dev and tests only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr moves OTP records to Redis when set (host:port).
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// TelegramBotToken is the Bot API token. Empty disables the poller and the Telegram gateway.
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	// TelegramPollTimeout is the long-poll timeout in seconds for getUpdates.
	TelegramPollTimeout int `mapstructure:"TELEGRAM_POLL_TIMEOUT"`
	// LinkCodeTTL is the linking code lifetime (e.g. "5m").
	LinkCodeTTL string `mapstructure:"LINK_CODE_TTL"`
	// OTPTTL is the OTP lifetime (e.g. "5m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// PurgeInterval enables a periodic expiry purge (e.g. "1m"). Startup purge always runs.
	PurgeInterval string `mapstructure:"PURGE_INTERVAL"`
	// BcryptCost is the bcrypt cost factor (4–31) for tenant secrets; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// OTPReturnToClient enables dev delivery: messages are captured in memory and served by GET /dev/otp
	// instead of being sent to Telegram. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// TrustedProxies is a comma-separated list of proxy IPs/CIDRs whose X-Forwarded-For
	// and X-Real-IP headers set the audited client IP. Empty trusts only the peer address.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for lifecycle events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// Worker-only: Loki URL for the telemetry worker (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty keeps no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_POLL_TIMEOUT", 60)
	v.SetDefault("LINK_CODE_TTL", "5m")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("PURGE_INTERVAL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "otp-telemetry")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "otp-telemetry-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "tg-otp-relay")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.TelegramPollTimeout <= 0 {
		cfg.TelegramPollTimeout = 60
	}

	return &cfg, nil
}

// LinkCodeLifetime parses LinkCodeTTL. Returns 5m if unset or invalid.
func (c *Config) LinkCodeLifetime() time.Duration {
	return parsePositiveDuration(c.LinkCodeTTL, defaultCodeTTL)
}

// OTPLifetime parses OTPTTL. Returns 5m if unset or invalid.
func (c *Config) OTPLifetime() time.Duration {
	return parsePositiveDuration(c.OTPTTL, defaultCodeTTL)
}

// PurgeEvery parses PurgeInterval. Returns 0 (disabled) if unset or invalid.
func (c *Config) PurgeEvery() time.Duration {
	return parsePositiveDuration(c.PurgeInterval, 0)
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

// TrustedProxiesList returns the trusted proxy entries from the comma-separated config.
func (c *Config) TrustedProxiesList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StorageIdentifier describes the active persistence backend without credentials,
// e.g. "postgres://db.internal:5432/otp" or "memory".
func (c *Config) StorageIdentifier() string {
	if c.DatabaseURL == "" {
		return "memory"
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.Host == "" {
		return "postgres"
	}
	return u.Scheme + "://" + u.Host + u.Path
}

func parsePositiveDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
