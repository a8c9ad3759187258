package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from, in increasing priority:
//  1. Default values
//  2. the YAML file at path (optional)
//  3. BOT_* environment variables, with TOKEN and PORT honoured for older deployments
//
// A .env file in the working directory is loaded into the environment first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("telegram.token", "BOT_TELEGRAM_TOKEN", "TOKEN"); err != nil {
		return fmt.Errorf("failed to bind token env: %w", err)
	}
	if err := v.BindEnv("server.port", "BOT_SERVER_PORT", "PORT"); err != nil {
		return fmt.Errorf("failed to bind port env: %w", err)
	}
	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_secret", "")

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("reminder.default_interval", DefaultReminderInterval)
	v.SetDefault("reminder.quiet_start", DefaultQuietStart)
	v.SetDefault("reminder.quiet_end", DefaultQuietEnd)
	v.SetDefault("reminder.timezone", DefaultTimezone)
	v.SetDefault("reminder.messages", DefaultReminderMessages)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", DefaultSQLMaintenanceSchedule)
	v.SetDefault("scheduler.tasks.flow_cleanup.enabled", true)
	v.SetDefault("scheduler.tasks.flow_cleanup.schedule", DefaultFlowCleanupSchedule)

	v.SetDefault("flow.ttl", DefaultFlowTTL)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.system_instruction", DefaultGeminiInstruction)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.history_limit", DefaultGeminiHistoryLimit)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	v.SetDefault("upstream.timeout", DefaultUpstreamTimeout)
	v.SetDefault("upstream.cache_ttl", DefaultUpstreamCacheTTL)
	v.SetDefault("upstream.cache_size", DefaultUpstreamCacheSize)
	v.SetDefault("upstream.navasan_api_key", "")
	v.SetDefault("upstream.navasan_url", DefaultNavasanURL)
	v.SetDefault("upstream.car_prices_url", DefaultCarPricesURL)
	v.SetDefault("upstream.holidays_url", DefaultHolidaysURL)
	v.SetDefault("upstream.digikala_url", DefaultDigikalaURL)
	v.SetDefault("upstream.basalam_url", DefaultBasalamURL)
	v.SetDefault("upstream.max_results", DefaultUpstreamMaxResults)
	v.SetDefault("upstream.breaker_failures", DefaultBreakerFailures)
	v.SetDefault("upstream.breaker_cooldown", DefaultBreakerCooldown)

	m := DefaultMessages
	v.SetDefault("messages.welcome", m.Welcome)
	v.SetDefault("messages.help", m.Help)
	v.SetDefault("messages.general_error", m.GeneralError)
	v.SetDefault("messages.unknown", m.Unknown)
	v.SetDefault("messages.reminders_started", m.RemindersStarted)
	v.SetDefault("messages.reminders_stopped", m.RemindersStopped)
	v.SetDefault("messages.interval_menu", m.IntervalMenu)
	v.SetDefault("messages.interval_set", m.IntervalSet)
	v.SetDefault("messages.chat_enabled", m.ChatEnabled)
	v.SetDefault("messages.chat_disabled", m.ChatDisabled)
	v.SetDefault("messages.status", m.Status)
	v.SetDefault("messages.ask_search_query", m.AskSearchQuery)
	v.SetDefault("messages.ask_product_id", m.AskProductID)
	v.SetDefault("messages.ask_chat_prompt", m.AskChatPrompt)
	v.SetDefault("messages.state_on", m.StateOn)
	v.SetDefault("messages.state_off", m.StateOff)
	v.SetDefault("messages.upstream_error", m.UpstreamError)
	v.SetDefault("messages.nothing_found", m.NothingFound)
	v.SetDefault("messages.ai_error", m.AIError)
}
