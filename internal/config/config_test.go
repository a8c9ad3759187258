package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TOKEN", "PORT",
		"BOT_TELEGRAM_TOKEN", "BOT_SERVER_PORT", "BOT_GEMINI_API_KEY",
		"BOT_REMINDER_TIMEZONE", "BOT_REMINDER_QUIET_START", "BOT_LOGGER_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("BOT_GEMINI_API_KEY", "gem-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "gem-key", cfg.Gemini.APIKey)
	assert.Equal(t, DefaultGeminiTimeout, cfg.Gemini.Timeout)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Reminder.DefaultInterval)
	assert.Equal(t, 23, cfg.Reminder.QuietStart)
	assert.Equal(t, 8, cfg.Reminder.QuietEnd)
	assert.Equal(t, 10*time.Minute, cfg.Flow.TTL)
	assert.NotEmpty(t, cfg.Reminder.Messages)
	assert.Equal(t, DefaultMessages.Welcome, cfg.Messages.Welcome)
	assert.Equal(t, "Asia/Tehran", cfg.Location().String())

	require.Contains(t, cfg.Scheduler.Tasks, "sql_maintenance")
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.Equal(t, DefaultSQLMaintenanceSchedule, cfg.Scheduler.Tasks["sql_maintenance"].Schedule)
}

func TestLoadConfigLegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "legacy-token")
	t.Setenv("PORT", "8081")
	t.Setenv("BOT_GEMINI_API_KEY", "gem-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Telegram.Token)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadConfigPrefixedEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "legacy-token")
	t.Setenv("BOT_TELEGRAM_TOKEN", "new-token")
	t.Setenv("BOT_GEMINI_API_KEY", "gem-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "new-token", cfg.Telegram.Token)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  token: file-token
gemini:
  api_key: file-key
reminder:
  quiet_start: 1
  quiet_end: 5
  default_interval: 30m
upstream:
  cache_ttl: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, 1, cfg.Reminder.QuietStart)
	assert.Equal(t, 5, cfg.Reminder.QuietEnd)
	assert.Equal(t, 30*time.Minute, cfg.Reminder.DefaultInterval)
	assert.Equal(t, 45*time.Second, cfg.Upstream.CacheTTL)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing token",
			env:  map[string]string{"BOT_GEMINI_API_KEY": "gem-key"},
		},
		{
			name: "missing gemini key",
			env:  map[string]string{"BOT_TELEGRAM_TOKEN": "123:abc"},
		},
		{
			name: "unknown timezone",
			env: map[string]string{
				"BOT_TELEGRAM_TOKEN":    "123:abc",
				"BOT_GEMINI_API_KEY":    "gem-key",
				"BOT_REMINDER_TIMEZONE": "Mars/Olympus",
			},
		},
		{
			name: "quiet hour out of range",
			env: map[string]string{
				"BOT_TELEGRAM_TOKEN":       "123:abc",
				"BOT_GEMINI_API_KEY":       "gem-key",
				"BOT_REMINDER_QUIET_START": "24",
			},
		},
		{
			name: "unknown log level",
			env: map[string]string{
				"BOT_TELEGRAM_TOKEN": "123:abc",
				"BOT_GEMINI_API_KEY": "gem-key",
				"BOT_LOGGER_LEVEL":   "verbose",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}
