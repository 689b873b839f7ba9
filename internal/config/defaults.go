package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":8000"
	defaultLogMaxSizeMB     = 50
	defaultLogMaxBackups    = 5
	defaultLogMaxAgeDays    = 14
	defaultTimezone         = "UTC"
	defaultTelegramAPI      = "https://api.telegram.org"
	defaultBotUsername      = "SniprXBot"
	defaultSendTimeout      = 10
	defaultPollTimeout      = 30
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30
	defaultLoginURL         = "/oauth2/start"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Notify.Telegram.applyDefaults(keys)
	c.Auth.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.timezone", &a.Timezone, defaultTimezone),
		fieldDefault{
			key:  "app.http_addr",
			need: func() bool { return strings.TrimSpace(a.HTTPAddr) == "" },
			apply: func() {
				a.HTTPAddr = defaultAppHTTPAddr
				if port := strings.TrimSpace(a.Port); port != "" {
					a.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
				}
			},
		},
		intFieldDefault("app.log_max_size_mb", &a.LogMaxSize, defaultLogMaxSizeMB),
		intFieldDefault("app.log_max_backups", &a.LogBackups, defaultLogMaxBackups),
		intFieldDefault("app.log_max_age_days", &a.LogMaxAge, defaultLogMaxAgeDays),
	)
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	t.BotToken = strings.TrimSpace(t.BotToken)
	applyFieldDefaults(keys,
		stringFieldDefault("notify.telegram.api_base_url", &t.APIBaseURL, defaultTelegramAPI),
		stringFieldDefault("notify.telegram.bot_username", &t.BotUsername, defaultBotUsername),
		intFieldDefault("notify.telegram.send_timeout_seconds", &t.SendTimeoutSeconds, defaultSendTimeout),
		intFieldDefault("notify.telegram.poll_timeout_seconds", &t.PollTimeoutSeconds, defaultPollTimeout),
		intFieldDefault("notify.telegram.breaker_threshold", &t.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("notify.telegram.breaker_cooldown_seconds", &t.BreakerCooldownSec, defaultBreakerCooldown),
		// 未显式配置时，只要有 token 就启用
		fieldDefault{
			key:   "notify.telegram.enabled",
			apply: func() { t.Enabled = t.BotToken != "" },
		},
		boolFieldDefault("notify.telegram.poll_commands", &t.PollCommands, true),
	)
	t.AuthorizedChats = dedupeChats(t.AuthorizedChats)
}

func (a *AuthConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("auth.login_url", &a.LoginURL, defaultLoginURL),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func dedupeChats(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
