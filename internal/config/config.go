// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret     = "change-me-jwt-secret"
	defaultGatewaySecret = "change-me-gateway-secret"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTTTL      time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins []string      `mapstructure:"CORS_ORIGINS"`
	RateLimit   int           `mapstructure:"RATE_LIMIT_PER_MIN"`

	GatewayMerchantID string `mapstructure:"GATEWAY_MERCHANT_ID"`
	GatewaySecret     string `mapstructure:"GATEWAY_SECRET"`
	GatewayBaseURL    string `mapstructure:"GATEWAY_BASE_URL"`
	GatewayMode       string `mapstructure:"GATEWAY_MODE"`
	GatewaySuccessURL string `mapstructure:"GATEWAY_SUCCESS_URL"`
	GatewayFailureURL string `mapstructure:"GATEWAY_FAILURE_URL"`
	GatewayWebhookURL string `mapstructure:"GATEWAY_WEBHOOK_URL"`

	DefaultCurrency      string        `mapstructure:"DEFAULT_CURRENCY"`
	QuoteExpirationHours int           `mapstructure:"QUOTE_EXPIRATION_HOURS"`
	SLAResponseMinutes   int           `mapstructure:"SLA_RESPONSE_MINUTES"`
	SLACompletionMinutes int           `mapstructure:"SLA_COMPLETION_MINUTES"`
	LockWait             time.Duration `mapstructure:"LOCK_WAIT"`
	LockTTL              time.Duration `mapstructure:"LOCK_TTL"`
	PendingOrderTTL      time.Duration `mapstructure:"PENDING_ORDER_TTL"`

	SweepSchedule  string `mapstructure:"SWEEP_SCHEDULE"`
	SweepBatchSize int    `mapstructure:"SWEEP_BATCH_SIZE"`
}

var defaults = map[string]interface{}{
	"APP_ENV":   "dev",
	"PORT":      "8080",
	"LOG_LEVEL": "info",

	"DATABASE_URL": "file:hotelrides.db?_pragma=busy_timeout(5000)",

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"KAFKA_BROKERS": "",
	"KAFKA_TOPIC":   "transport-booking-events",

	"JWT_SECRET":         defaultJWTSecret,
	"JWT_TTL":            "24h",
	"CORS_ORIGINS":       "",
	"RATE_LIMIT_PER_MIN": 120,

	"GATEWAY_MERCHANT_ID": "",
	"GATEWAY_SECRET":      defaultGatewaySecret,
	"GATEWAY_BASE_URL":    "https://checkout.kashier.io",
	"GATEWAY_MODE":        "test",
	"GATEWAY_SUCCESS_URL": "",
	"GATEWAY_FAILURE_URL": "",
	"GATEWAY_WEBHOOK_URL": "",

	"DEFAULT_CURRENCY":       "EGP",
	"QUOTE_EXPIRATION_HOURS": 24,
	"SLA_RESPONSE_MINUTES":   30,
	"SLA_COMPLETION_MINUTES": 240,
	"LOCK_WAIT":              "5s",
	"LOCK_TTL":               "30s",
	"PENDING_ORDER_TTL":      "2h",

	"SWEEP_SCHEDULE":   "@every 1m",
	"SWEEP_BATCH_SIZE": 200,
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.CORSOrigins = compact(cfg.CORSOrigins)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.LockWait <= 0 {
		return fmt.Errorf("LOCK_WAIT must be > 0")
	}
	if cfg.LockTTL < cfg.LockWait {
		return fmt.Errorf("LOCK_TTL must not be shorter than LOCK_WAIT")
	}
	if cfg.PendingOrderTTL <= 0 {
		return fmt.Errorf("PENDING_ORDER_TTL must be > 0")
	}
	if cfg.QuoteExpirationHours <= 0 {
		return fmt.Errorf("QUOTE_EXPIRATION_HOURS must be > 0")
	}
	if cfg.SLAResponseMinutes <= 0 || cfg.SLACompletionMinutes <= 0 {
		return fmt.Errorf("SLA targets must be > 0")
	}
	if len(cfg.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3 letter ISO code")
	}
	if cfg.GatewayMode != "test" && cfg.GatewayMode != "live" {
		return fmt.Errorf("GATEWAY_MODE must be one of: test, live")
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must be >= 0")
	}

	if cfg.IsProdLike() {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.GatewaySecret, defaultGatewaySecret) {
			return fmt.Errorf("in prod GATEWAY_SECRET must be set and not default")
		}
		if cfg.GatewayMerchantID == "" {
			return fmt.Errorf("in prod GATEWAY_MERCHANT_ID must be set")
		}
	}
	return nil
}

func (c *Config) IsProdLike() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production" || c.AppEnv == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

// compact drops blanks left by splitting an empty or padded list.
func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
