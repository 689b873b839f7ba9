package config

import (
	"context"
	"fmt"
	"strings"

	"sniprx/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch 监听配置文件变化，重新加载成功后回调 onChange。目前只有 app.log_level 会被热更新。
// ctx 结束后回调不再触发。
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Warnf("config: reload %s failed, keeping previous values: %v", path, err)
			return
		}
		logger.Infof("config: reloaded %s", path)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// ApplyRuntime 把可热更新的字段应用到运行中的进程。
func ApplyRuntime(cfg *Config) {
	if cfg == nil {
		return
	}
	if prev := logger.Level(); prev != strings.ToLower(logger.ParseLevel(cfg.App.LogLevel).String()) {
		logger.SetLevel(cfg.App.LogLevel)
		logger.Infof("config: log level %s -> %s", prev, logger.Level())
	}
}
