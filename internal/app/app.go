package app

import (
	"context"
	"fmt"
	"io"

	"sniprx/internal/command"
	brcfg "sniprx/internal/config"
	"sniprx/internal/logger"
	apihttp "sniprx/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与命令轮询。
type App struct {
	cfg        *brcfg.Config
	configPath string
	http       *apihttp.Server
	poller     *command.Poller
	closers    []io.Closer
	Summary    *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。configPath 非空时启用热加载。
func NewApp(cfg *brcfg.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	a, err := buildAppWithWire(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	a.configPath = configPath
	return a, nil
}

// Run 启动 HTTP 服务与命令轮询，直到 ctx 结束或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.poller != nil {
		group.Go(func() error {
			return a.poller.Run(ctx)
		})
	}

	if a.configPath != "" {
		if err := brcfg.Watch(ctx, a.configPath, brcfg.ApplyRuntime); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	return group.Wait()
}

// AddCloser 登记退出时需要关闭的资源。
func (a *App) AddCloser(c io.Closer) {
	if a == nil || c == nil {
		return
	}
	a.closers = append(a.closers, c)
}

// Close 释放日志文件等资源，可重复调用。
func (a *App) Close() {
	if a == nil {
		return
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Warnf("close resource failed: %v", err)
		}
	}
	a.closers = nil
}

// HTTPServer exposes the HTTP server (for tests).
func (a *App) HTTPServer() *apihttp.Server {
	if a == nil {
		return nil
	}
	return a.http
}
