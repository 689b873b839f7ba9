package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, time.UTC, cfg.App.Location())
	assert.False(t, cfg.Notify.Telegram.Enabled)
	assert.True(t, cfg.Notify.Telegram.PollCommands)
	assert.Equal(t, "https://api.telegram.org", cfg.Notify.Telegram.APIBaseURL)
	assert.Equal(t, "@SniprXBot", cfg.Notify.Telegram.Username())
	assert.Equal(t, 10*time.Second, cfg.Notify.Telegram.SendTimeout())
	assert.Equal(t, "/oauth2/start", cfg.Auth.LoginURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_BOT_USERNAME", "@DeskBot")
	t.Setenv("TELEGRAM_AUTHORIZED_CHATS", "11,22,11")
	t.Setenv("GOOGLE_CLIENT_ID", "cid")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.App.HTTPAddr)
	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, "123:abc", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "@DeskBot", cfg.Notify.Telegram.Username())
	assert.Equal(t, []int64{11, 22}, cfg.Notify.Telegram.AuthorizedChats)
	assert.Equal(t, "cid", cfg.Auth.GoogleClientID)
}

func TestLoad_ShippedConfigHonorsPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	cfg, err := Load("../../configs/sniprx.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)

	t.Setenv("PORT", "")
	cfg, err = Load("../../configs/sniprx.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.App.HTTPAddr)
}

func TestTelegramUsername(t *testing.T) {
	assert.Equal(t, "@DeskBot", TelegramConfig{BotUsername: "DeskBot"}.Username())
	assert.Equal(t, "@DeskBot", TelegramConfig{BotUsername: " @DeskBot "}.Username())
	assert.Equal(t, "", TelegramConfig{BotUsername: "  "}.Username())
	assert.Equal(t, "", TelegramConfig{BotUsername: "@"}.Username())

	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "notify:\n  telegram:\n    bot_username: \"\"\n")
	clearEnv(t)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Notify.Telegram.Username())
}

func TestLoad_FileWithIncludes(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "telegram.yaml", `
notify:
  telegram:
    bot_token: "file-token"
    authorized_chats: [7, 8]
    send_timeout_seconds: 3
`)
	main := writeFile(t, dir, "sniprx.yaml", `
include:
  - telegram.yaml
app:
  http_addr: "127.0.0.1:7000"
  log_level: debug
notify:
  telegram:
    poll_commands: false
`)
	t.Setenv("PORT", "9999")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.App.HTTPAddr, "explicit http_addr wins over PORT")
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.False(t, cfg.Notify.Telegram.PollCommands)
	assert.Equal(t, []int64{7, 8}, cfg.Notify.Telegram.AuthorizedChats)
	assert.Equal(t, 3*time.Second, cfg.Notify.Telegram.SendTimeout())
}

func TestLoad_IncludeCycle(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoad_Validation(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "enabled.yaml", "notify:\n  telegram:\n    enabled: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")

	_, err = Load(writeFile(t, dir, "level.yaml", "app:\n  log_level: loud\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, dir, "tz.yaml", "app:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "SNIPRX_APP_ENV=staging\n")
	require.NoError(t, os.Unsetenv("SNIPRX_APP_ENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Env)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("SNIPRX_CONFIG", "/etc/sniprx.yaml")
	assert.Equal(t, "custom.yaml", ResolvePath(" custom.yaml "))
	assert.Equal(t, "/etc/sniprx.yaml", ResolvePath(""))
}
