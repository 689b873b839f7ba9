package config

import (
	"strings"
	"time"
)

// Config 是 sniprx 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	Notify NotifyConfig `toml:"notify"`
	Auth   AuthConfig   `toml:"auth"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	HTTPAddr    string `toml:"http_addr"`
	Port        string `toml:"port"` // PORT 环境变量，仅在 http_addr 未显式配置时生效
	LogPath     string `toml:"log_path"`
	LogMaxSize  int    `toml:"log_max_size_mb"`
	LogBackups  int    `toml:"log_max_backups"`
	LogMaxAge   int    `toml:"log_max_age_days"`
	LogCompress bool   `toml:"log_compress"`
	OutboundLog string `toml:"outbound_log_path"`
	SeedPath    string `toml:"seed_path"`
	Timezone    string `toml:"timezone"`
}

// Location 解析 timezone，失败时回退到 UTC。
func (a AppConfig) Location() *time.Location {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled            bool    `toml:"enabled"`
	BotToken           string  `toml:"bot_token"`
	BotUsername        string  `toml:"bot_username"`
	AuthorizedChats    []int64 `toml:"authorized_chats"`
	APIBaseURL         string  `toml:"api_base_url"`
	SendTimeoutSeconds int     `toml:"send_timeout_seconds"`
	PollTimeoutSeconds int     `toml:"poll_timeout_seconds"`
	PollCommands       bool    `toml:"poll_commands"`
	BreakerThreshold   int     `toml:"breaker_threshold"`
	BreakerCooldownSec int     `toml:"breaker_cooldown_seconds"`
}

func (t TelegramConfig) SendTimeout() time.Duration {
	return time.Duration(t.SendTimeoutSeconds) * time.Second
}

func (t TelegramConfig) PollTimeout() time.Duration {
	return time.Duration(t.PollTimeoutSeconds) * time.Second
}

func (t TelegramConfig) BreakerCooldown() time.Duration {
	return time.Duration(t.BreakerCooldownSec) * time.Second
}

// Username 返回带 @ 前缀的机器人用户名；未配置时返回空串。
func (t TelegramConfig) Username() string {
	name := strings.TrimPrefix(strings.TrimSpace(t.BotUsername), "@")
	if name == "" {
		return ""
	}
	return "@" + name
}

// AuthConfig 描述上游认证代理。sniprx 只读取其透传的身份头。
type AuthConfig struct {
	GoogleClientID     string `toml:"google_client_id"`
	GoogleClientSecret string `toml:"google_client_secret"`
	LoginURL           string `toml:"login_url"`
	UserHeader         string `toml:"user_header"`
	EmailHeader        string `toml:"email_header"`
	UsernameHeader     string `toml:"username_header"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
