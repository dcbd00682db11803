// Package config loads service settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gitlab.com/codeauth/codeauth-backend/pkg/env"
)

const MinJWTSecretLength = 32

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	NotifierKafka  = "kafka"
	NotifierOutbox = "outbox"
	NotifierSNS    = "sns"
	NotifierLog    = "log"
)

// Config is the API service configuration.
type Config struct {
	ModeName string `mapstructure:"MODE"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	Storage  string `mapstructure:"STORAGE"`
	PgDSN    string `mapstructure:"PG_DSN"`

	CodeTTLMinutes         int    `mapstructure:"CODE_TTL_MINUTES"`
	RateLimitWindowSeconds int    `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
	TokenTTLMinutes        int    `mapstructure:"TOKEN_TTL_MINUTES"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`

	Notifier      string        `mapstructure:"NOTIFIER"`
	NotifyTimeout time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_VERIFICATION_TOPIC"`

	SNSTopicARN        string `mapstructure:"SNS_TOPIC_ARN"`
	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSEndpoint        string `mapstructure:"AWS_ENDPOINT_URL"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`

	HTTPRateLimitRPS   float64 `mapstructure:"HTTP_RATE_LIMIT_RPS"`
	HTTPRateLimitBurst int     `mapstructure:"HTTP_RATE_LIMIT_BURST"`
	CORSAllowedOrigins string  `mapstructure:"CORS_ALLOWED_ORIGINS"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Mode env.Mode `mapstructure:"-"`
}

// NotifierConfig is the notification consumer configuration.
type NotifierConfig struct {
	ModeName string `mapstructure:"MODE"`
	// Source is either "kafka" or "outbox".
	Source string `mapstructure:"NOTIFIER_SOURCE"`
	PgDSN  string `mapstructure:"PG_DSN"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_VERIFICATION_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Mode env.Mode `mapstructure:"-"`
}

var apiKeys = []string{
	"MODE", "HTTP_ADDR", "STORAGE", "PG_DSN",
	"CODE_TTL_MINUTES", "RATE_LIMIT_WINDOW_SECONDS", "TOKEN_TTL_MINUTES", "JWT_SECRET",
	"NOTIFIER", "NOTIFY_TIMEOUT",
	"KAFKA_BROKERS", "KAFKA_VERIFICATION_TOPIC",
	"SNS_TOPIC_ARN", "AWS_REGION", "AWS_ENDPOINT_URL", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"HTTP_RATE_LIMIT_RPS", "HTTP_RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

var notifierKeys = []string{
	"MODE", "NOTIFIER_SOURCE", "PG_DSN",
	"KAFKA_BROKERS", "KAFKA_VERIFICATION_TOPIC", "KAFKA_GROUP_ID",
	"OUTBOX_POLL_INTERVAL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

// newViper reads .env from the working directory when present. Process
// environment variables take precedence over it.
func newViper(keys []string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read .env: %w", err)
		}
	}

	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault("MODE", env.Dev.String())
	v.SetDefault("KAFKA_VERIFICATION_TOPIC", "verification-codes")
	return v, nil
}

// Load builds the API configuration. The core knobs (code TTL, rate limit
// window, token TTL and JWT secret) have no defaults and must be set.
func Load() (*Config, error) {
	v, err := newViper(apiKeys)
	if err != nil {
		return nil, err
	}

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORAGE", StoragePostgres)
	v.SetDefault("NOTIFIER", NotifierLog)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("HTTP_RATE_LIMIT_RPS", 5)
	v.SetDefault("HTTP_RATE_LIMIT_BURST", 10)

	for _, key := range []string{"CODE_TTL_MINUTES", "RATE_LIMIT_WINDOW_SECONDS", "TOKEN_TTL_MINUTES", "JWT_SECRET"} {
		if !v.IsSet(key) {
			return nil, fmt.Errorf("config: %s must be set", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	mode, err := env.Parse(c.ModeName)
	if err != nil {
		return fmt.Errorf("config: MODE: %w", err)
	}
	c.Mode = mode

	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	c.Notifier = strings.ToLower(strings.TrimSpace(c.Notifier))

	var errs []error
	if c.CodeTTLMinutes <= 0 {
		errs = append(errs, errors.New("CODE_TTL_MINUTES must be positive"))
	}
	if c.RateLimitWindowSeconds < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW_SECONDS must not be negative"))
	}
	if c.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL_MINUTES must be positive"))
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}

	switch c.Storage {
	case StoragePostgres:
		if c.PgDSN == "" {
			errs = append(errs, errors.New("PG_DSN is required for postgres storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE %q is not one of postgres, memory", c.Storage))
	}

	switch c.Notifier {
	case NotifierKafka:
		if len(c.KafkaBrokerList()) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka notifier"))
		}
	case NotifierOutbox:
		if c.PgDSN == "" {
			errs = append(errs, errors.New("PG_DSN is required for the outbox notifier"))
		}
	case NotifierSNS:
		if c.SNSTopicARN == "" || c.AWSRegion == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN and AWS_REGION are required for the sns notifier"))
		}
	case NotifierLog:
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER %q is not one of kafka, outbox, sns, log", c.Notifier))
	}

	if c.NotifyTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFY_TIMEOUT must be positive"))
	}
	if c.HTTPRateLimitRPS < 0 || c.HTTPRateLimitBurst < 0 {
		errs = append(errs, errors.New("HTTP_RATE_LIMIT_RPS and HTTP_RATE_LIMIT_BURST must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLMinutes) * time.Minute
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c *Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// LoadNotifier builds the notification consumer configuration.
func LoadNotifier() (*NotifierConfig, error) {
	v, err := newViper(notifierKeys)
	if err != nil {
		return nil, err
	}

	v.SetDefault("NOTIFIER_SOURCE", NotifierKafka)
	v.SetDefault("KAFKA_GROUP_ID", "notification-service")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "1s")

	var cfg NotifierConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	mode, err := env.Parse(cfg.ModeName)
	if err != nil {
		return nil, fmt.Errorf("config: MODE: %w", err)
	}
	cfg.Mode = mode
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))

	switch cfg.Source {
	case NotifierKafka:
		if len(cfg.KafkaBrokerList()) == 0 {
			return nil, errors.New("config: KAFKA_BROKERS is required for the kafka source")
		}
		if cfg.KafkaGroupID == "" {
			return nil, errors.New("config: KAFKA_GROUP_ID must not be empty")
		}
	case NotifierOutbox:
		if cfg.PgDSN == "" {
			return nil, errors.New("config: PG_DSN is required for the outbox source")
		}
		if cfg.OutboxPollInterval <= 0 {
			return nil, errors.New("config: OUTBOX_POLL_INTERVAL must be positive")
		}
	default:
		return nil, fmt.Errorf("config: NOTIFIER_SOURCE %q is not one of kafka, outbox", cfg.Source)
	}

	return &cfg, nil
}

func (c *NotifierConfig) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
