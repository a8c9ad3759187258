// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration. Values can be set via environment
// variables prefixed with BOT_ (e.g., BOT_TELEGRAM_TOKEN) or through config.yaml.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Flow      FlowConfig      `mapstructure:"flow"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credential and webhook settings.
// BotInfo is filled at runtime from getMe.
type TelegramConfig struct {
	Token         string       `mapstructure:"token"          validate:"required"`
	WebhookURL    string       `mapstructure:"webhook_url"    validate:"omitempty,url"`
	WebhookSecret string       `mapstructure:"webhook_secret"`
	BotInfo       *models.User `mapstructure:"-"`
}

// ServerConfig configures the HTTP listener serving the webhook and liveness endpoints.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=1m"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ReminderConfig holds the reminder tunables.
type ReminderConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval" validate:"min=1m"`
	QuietStart      int           `mapstructure:"quiet_start"      validate:"min=0,max=23"`
	QuietEnd        int           `mapstructure:"quiet_end"        validate:"min=0,max=23"`
	Timezone        string        `mapstructure:"timezone"         validate:"required"`
	Messages        []string      `mapstructure:"messages"         validate:"min=1,dive,required"`
}

// SchedulerConfig lists the fixed background tasks keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// FlowConfig controls multi-step conversational flows.
type FlowConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"min=1m"`
}

// GeminiConfig configures the conversational backend.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"            validate:"required"`
	ModelName         string        `mapstructure:"model_name"         validate:"required"`
	Temperature       float32       `mapstructure:"temperature"        validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	MaxRetries        int           `mapstructure:"max_retries"        validate:"min=0,max=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	HistoryLimit      int           `mapstructure:"history_limit"      validate:"min=0,max=200"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"min=1s,max=5m"`
}

// UpstreamConfig configures outbound price and search APIs.
type UpstreamConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"           validate:"min=1s,max=2m"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"         validate:"min=1s,max=10m"`
	CacheSize     int           `mapstructure:"cache_size"        validate:"min=1"`
	NavasanAPIKey string        `mapstructure:"navasan_api_key"`
	NavasanURL    string        `mapstructure:"navasan_url"       validate:"required,url"`
	CarPricesURL  string        `mapstructure:"car_prices_url"    validate:"required,url"`
	HolidaysURL   string        `mapstructure:"holidays_url"      validate:"required,url"`
	DigikalaURL   string        `mapstructure:"digikala_url"      validate:"required,url"`
	BasalamURL    string        `mapstructure:"basalam_url"       validate:"required,url"`
	MaxResults    int           `mapstructure:"max_results"       validate:"min=1,max=20"`
	// BreakerFailures consecutive failures make a host skipped for BreakerCooldown.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=1,max=100"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"min=1s,max=1h"`
}

// MessagesConfig holds every user-facing string.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"           validate:"required"`
	Help             string `mapstructure:"help"              validate:"required"`
	GeneralError     string `mapstructure:"general_error"     validate:"required"`
	Unknown          string `mapstructure:"unknown"           validate:"required"`
	RemindersStarted string `mapstructure:"reminders_started" validate:"required"`
	RemindersStopped string `mapstructure:"reminders_stopped" validate:"required"`
	IntervalMenu     string `mapstructure:"interval_menu"     validate:"required"`
	IntervalSet      string `mapstructure:"interval_set"      validate:"required"`
	ChatEnabled      string `mapstructure:"chat_enabled"      validate:"required"`
	ChatDisabled     string `mapstructure:"chat_disabled"     validate:"required"`
	Status           string `mapstructure:"status"            validate:"required"`
	AskSearchQuery   string `mapstructure:"ask_search_query"  validate:"required"`
	AskProductID     string `mapstructure:"ask_product_id"    validate:"required"`
	AskChatPrompt    string `mapstructure:"ask_chat_prompt"   validate:"required"`
	StateOn          string `mapstructure:"state_on"          validate:"required"`
	StateOff         string `mapstructure:"state_off"         validate:"required"`
	UpstreamError    string `mapstructure:"upstream_error"    validate:"required"`
	NothingFound     string `mapstructure:"nothing_found"     validate:"required"`
	AIError          string `mapstructure:"ai_error"          validate:"required"`
}
