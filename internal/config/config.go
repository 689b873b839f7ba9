package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultPath 是未指定 --config / SNIPRX_CONFIG 时尝试读取的文件。
const DefaultPath = "configs/sniprx.yaml"

// envBindings 把配置键映射到兼容的环境变量名；另外每个键都可用 SNIPRX_<KEY> 覆盖。
var envBindings = map[string][]string{
	"app.env":                              {"SNIPRX_APP_ENV"},
	"app.log_level":                        {"SNIPRX_APP_LOG_LEVEL", "LOG_LEVEL"},
	"app.http_addr":                        {"SNIPRX_APP_HTTP_ADDR"},
	"app.port":                             {"PORT"},
	"app.log_path":                         {"SNIPRX_APP_LOG_PATH"},
	"app.outbound_log_path":                {"SNIPRX_APP_OUTBOUND_LOG_PATH"},
	"app.seed_path":                        {"SNIPRX_APP_SEED_PATH"},
	"app.timezone":                         {"SNIPRX_APP_TIMEZONE"},
	"notify.telegram.enabled":              {"SNIPRX_NOTIFY_TELEGRAM_ENABLED"},
	"notify.telegram.bot_token":            {"SNIPRX_NOTIFY_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"},
	"notify.telegram.bot_username":         {"SNIPRX_NOTIFY_TELEGRAM_BOT_USERNAME", "TELEGRAM_BOT_USERNAME"},
	"notify.telegram.authorized_chats":     {"SNIPRX_NOTIFY_TELEGRAM_AUTHORIZED_CHATS", "TELEGRAM_AUTHORIZED_CHATS"},
	"notify.telegram.api_base_url":         {"SNIPRX_NOTIFY_TELEGRAM_API_BASE_URL"},
	"notify.telegram.poll_commands":        {"SNIPRX_NOTIFY_TELEGRAM_POLL_COMMANDS"},
	"notify.telegram.send_timeout_seconds": {"SNIPRX_NOTIFY_TELEGRAM_SEND_TIMEOUT_SECONDS"},
	"notify.telegram.poll_timeout_seconds": {"SNIPRX_NOTIFY_TELEGRAM_POLL_TIMEOUT_SECONDS"},
	"auth.google_client_id":                {"SNIPRX_AUTH_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID"},
	"auth.google_client_secret":            {"SNIPRX_AUTH_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"},
	"auth.login_url":                       {"SNIPRX_AUTH_LOGIN_URL"},
}

// ResolvePath 依次取 flag、SNIPRX_CONFIG、DefaultPath（存在时）。返回空串表示只用默认值与环境变量。
func ResolvePath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("SNIPRX_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// LoadDotEnv 加载 .env 文件，已存在的环境变量不会被覆盖；文件不存在时忽略。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s failed: %w", p, err)
		}
	}
	return nil
}

// Load 读取配置文件（含 include）、叠加环境变量、补默认值并校验。path 为空时跳过文件。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if strings.TrimSpace(path) != "" {
		files, err := resolveConfigIncludes(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if err := mergeConfigFile(v, file); err != nil {
				return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
			}
		}
	}
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) error {
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("binding env for %s failed: %w", key, err)
		}
	}
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	settings := tmp.AllSettings()
	delete(settings, "include")
	return v.MergeConfigMap(settings)
}

func resolveConfigIncludes(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	stack := make(map[string]bool)
	files, err := collectConfigFiles(abs, seen, stack)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []string{abs}, nil
	}
	return files, nil
}

func collectConfigFiles(path string, seen, stack map[string]bool) ([]string, error) {
	path = filepath.Clean(path)
	if stack[path] {
		return nil, fmt.Errorf("include cycle detected: %s", path)
	}
	if seen[path] {
		return nil, nil
	}
	stack[path] = true
	includes, err := parseIncludeList(path)
	if err != nil {
		return nil, fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	dir := filepath.Dir(path)
	var ordered []string
	for _, inc := range includes {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(dir, inc)
		}
		sub, err := collectConfigFiles(incPath, seen, stack)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, sub...)
	}
	delete(stack, path)
	seen[path] = true
	ordered = append(ordered, path)
	return ordered, nil
}

func parseIncludeList(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	var items []string
	switch val := raw.(type) {
	case []any:
		for _, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("include only supports strings")
			}
			items = append(items, str)
		}
	case []string:
		items = val
	case string:
		items = []string{val}
	default:
		return nil, fmt.Errorf("include must be a string array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	case []any:
		if prefix != "" {
			dest.mark(prefix)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
