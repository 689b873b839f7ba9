package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	if _, err := time.LoadLocation(strings.TrimSpace(a.Timezone)); err != nil {
		return fmt.Errorf("app.timezone invalid: %w", err)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	t := n.Telegram
	if t.Enabled && t.BotToken == "" {
		return fmt.Errorf("notify.telegram.enabled requires bot_token (or TELEGRAM_BOT_TOKEN)")
	}
	if t.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("notify.telegram.send_timeout_seconds must be > 0")
	}
	if t.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("notify.telegram.poll_timeout_seconds must be > 0")
	}
	if t.BreakerThreshold <= 0 {
		return fmt.Errorf("notify.telegram.breaker_threshold must be > 0")
	}
	u, err := url.Parse(strings.TrimSpace(t.APIBaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("notify.telegram.api_base_url invalid: %q", t.APIBaseURL)
	}
	return nil
}
