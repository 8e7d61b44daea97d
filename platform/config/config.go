// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	IsDatabaseEnabled() bool
}

// RedisConfig provides Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	IsRedisEnabled() bool
}

// MakeConfig provides settings for the Make.com webhook relay.
type MakeConfig interface {
	GetMakeWebhookURL() string
	GetMakeAPIKey() string
	GetMakeTimeout() time.Duration
}

// WhatsAppConfig provides settings for the WhatsApp Cloud API sender.
type WhatsAppConfig interface {
	GetWhatsAppToken() string
	GetWhatsAppPhoneID() string
	GetAdminPhone() string
	IsWhatsAppEnabled() bool
}

// WebhookConfig provides settings for the inbound webhook endpoint.
type WebhookConfig interface {
	GetVerifyToken() string
}

// CatalogConfig provides settings for the catalog file store.
type CatalogConfig interface {
	GetCataloguePath() string
}

// StateConfig provides settings for local fallback persistence.
type StateConfig interface {
	GetDataDir() string
}

// QueueConfig provides settings for the outbound delivery queue.
type QueueConfig interface {
	GetQueueTickInterval() time.Duration
	GetQueueBaseDelay() time.Duration
	GetQueueMaxDelay() time.Duration
	GetQueueMaxRetries() int
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRemindersEnabled() bool
	GetReminderCronSpec() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	RedisURL          string
	MakeWebhookURL    string
	MakeAPIKey        string
	MakeTimeout       time.Duration
	WhatsAppToken     string
	WhatsAppPhoneID   string
	AdminPhone        string
	VerifyToken       string
	CataloguePath     string
	DataDir           string
	QueueTickInterval time.Duration
	QueueBaseDelay    time.Duration
	QueueMaxDelay     time.Duration
	QueueMaxRetries   int
	CORSAllowAll      bool
	CORSOrigins       []string
	AsynqQueueName    string
	AsynqConcurrency  int
	RemindersEnabled  bool
	ReminderCronSpec  string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) IsDatabaseEnabled() bool {
	return c.DatabaseURL != ""
}

// RedisConfig implementation
func (c *Config) GetRedisURL() string  { return c.RedisURL }
func (c *Config) IsRedisEnabled() bool { return c.RedisURL != "" }

// MakeConfig implementation
func (c *Config) GetMakeWebhookURL() string     { return c.MakeWebhookURL }
func (c *Config) GetMakeAPIKey() string         { return c.MakeAPIKey }
func (c *Config) GetMakeTimeout() time.Duration { return c.MakeTimeout }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppToken() string   { return c.WhatsAppToken }
func (c *Config) GetWhatsAppPhoneID() string { return c.WhatsAppPhoneID }
func (c *Config) GetAdminPhone() string      { return c.AdminPhone }
func (c *Config) IsWhatsAppEnabled() bool {
	return c.WhatsAppToken != "" && c.WhatsAppPhoneID != ""
}

// WebhookConfig implementation
func (c *Config) GetVerifyToken() string { return c.VerifyToken }

// CatalogConfig implementation
func (c *Config) GetCataloguePath() string { return c.CataloguePath }

// StateConfig implementation
func (c *Config) GetDataDir() string { return c.DataDir }

// QueueConfig implementation
func (c *Config) GetQueueTickInterval() time.Duration { return c.QueueTickInterval }
func (c *Config) GetQueueBaseDelay() time.Duration    { return c.QueueBaseDelay }
func (c *Config) GetQueueMaxDelay() time.Duration     { return c.QueueMaxDelay }
func (c *Config) GetQueueMaxRetries() int             { return c.QueueMaxRetries }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }
func (c *Config) GetRemindersEnabled() bool   { return c.RemindersEnabled }
func (c *Config) GetReminderCronSpec() string { return c.ReminderCronSpec }

// Load reads configuration from environment variables.
// The Make relay endpoint is a hard dependency: without it the chatbot cannot
// forward anything, so its absence is a startup error. WhatsApp credentials are
// optional (the sender degrades to a logged no-op).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":5000"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		MakeWebhookURL:    getEnv("MAKE_WEBHOOK_URL", ""),
		MakeAPIKey:        getEnv("MAKE_API_KEY", ""),
		MakeTimeout:       mustDuration(getEnv("MAKE_TIMEOUT", "10s")),
		WhatsAppToken:     getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID:   getEnv("WHATSAPP_PHONE_ID", ""),
		AdminPhone:        getEnv("ADMIN_PHONE", ""),
		VerifyToken:       getEnv("VERIFY_TOKEN", ""),
		CataloguePath:     getEnv("CATALOGUE_PATH", "data/catalogue.json"),
		DataDir:           getEnv("DATA_DIR", "data"),
		QueueTickInterval: mustDuration(getEnv("QUEUE_TICK_INTERVAL", "3s")),
		QueueBaseDelay:    mustDuration(getEnv("QUEUE_BASE_DELAY", "1s")),
		QueueMaxDelay:     mustDuration(getEnv("QUEUE_MAX_DELAY", "60s")),
		QueueMaxRetries:   mustInt(getEnv("QUEUE_MAX_RETRIES", "5")),
		CORSAllowAll:      strings.EqualFold(getEnv("CORS_ALLOW_ALL", "true"), "true"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "")),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:  mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		RemindersEnabled:  strings.EqualFold(getEnv("ENABLE_REMINDERS", "false"), "true"),
		ReminderCronSpec:  getEnv("REMINDER_CRON", "0 9 * * *"),
	}

	if cfg.MakeWebhookURL == "" {
		return nil, fmt.Errorf("MAKE_WEBHOOK_URL is required")
	}
	if cfg.MakeAPIKey == "" {
		return nil, fmt.Errorf("MAKE_API_KEY is required")
	}
	if cfg.QueueMaxRetries < 1 {
		return nil, fmt.Errorf("QUEUE_MAX_RETRIES must be at least 1")
	}
	if cfg.QueueBaseDelay <= 0 || cfg.QueueMaxDelay < cfg.QueueBaseDelay {
		return nil, fmt.Errorf("invalid queue backoff configuration")
	}
	if cfg.RemindersEnabled && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when ENABLE_REMINDERS is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
