package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sniprx/internal/activity"
	"sniprx/internal/auth"
	"sniprx/internal/command"
	brcfg "sniprx/internal/config"
	"sniprx/internal/control"
	"sniprx/internal/gateway/notifier"
	"sniprx/internal/identity"
	"sniprx/internal/logger"
	"sniprx/internal/notify"
	"sniprx/internal/state"
	apihttp "sniprx/internal/transport/http/api"
)

type AppBuilder struct {
	cfg *brcfg.Config

	seedFn     func(brcfg.AppConfig) (state.Seed, error)
	telegramFn func(brcfg.TelegramConfig) *notifier.Telegram
}

type AppBuilderOption func(*AppBuilder)

// WithSeedLoader 替换初始数据来源（测试使用）。
func WithSeedLoader(fn func(brcfg.AppConfig) (state.Seed, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.seedFn = fn
		}
	}
}

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		seedFn:     loadSeed,
		telegramFn: buildTelegram,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func loadSeed(app brcfg.AppConfig) (state.Seed, error) {
	if path := strings.TrimSpace(app.SeedPath); path != "" {
		return state.LoadSeed(path)
	}
	return state.DefaultSeed()
}

// buildTelegram 未启用时返回 nil。
func buildTelegram(cfg brcfg.TelegramConfig) *notifier.Telegram {
	if !cfg.Enabled || cfg.BotToken == "" {
		return nil
	}
	return notifier.NewTelegram(cfg.BotToken,
		notifier.WithBaseURL(cfg.APIBaseURL),
		notifier.WithBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown()),
	)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("app builder not initialized")
	}
	cfg := b.cfg
	tgCfg := cfg.Notify.Telegram

	var closers []io.Closer
	if path := strings.TrimSpace(cfg.App.OutboundLog); path != "" {
		w, err := logger.NewRotatingWriter(logger.FileOptions{
			Path:       path,
			MaxSizeMB:  cfg.App.LogMaxSize,
			MaxBackups: cfg.App.LogBackups,
			MaxAgeDays: cfg.App.LogMaxAge,
			Compress:   cfg.App.LogCompress,
		})
		if err != nil {
			return nil, fmt.Errorf("open outbound log failed: %w", err)
		}
		logger.SetOutboundWriter(w)
		closers = append(closers, w)
	}

	seed, err := b.seedFn(cfg.App)
	if err != nil {
		return nil, fmt.Errorf("load seed failed: %w", err)
	}
	store := state.NewStore(seed)
	registry := auth.NewRegistry(tgCfg.AuthorizedChats...)
	activityLog := activity.New(activity.DefaultCapacity)

	tg := b.telegramFn(tgCfg)
	var sender notifier.Sender
	if tg != nil {
		sender = tg
	}
	dispatcher := notify.NewDispatcher(sender, registry,
		notify.WithSendTimeout(tgCfg.SendTimeout()),
		notify.WithLocation(cfg.App.Location()),
	)
	ctl := control.NewService(store, activityLog, dispatcher)
	ident := identity.NewHeaderProvider(identity.Headers{
		User:     cfg.Auth.UserHeader,
		Email:    cfg.Auth.EmailHeader,
		Username: cfg.Auth.UsernameHeader,
	}, cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.LoginURL)

	router := apihttp.NewRouter(store, ctl, registry, activityLog, dispatcher, ident, tgCfg.Username())
	server, err := apihttp.NewServer(apihttp.ServerConfig{Addr: cfg.App.HTTPAddr, Router: router})
	if err != nil {
		return nil, err
	}

	var poller *command.Poller
	if tg != nil && tgCfg.PollCommands {
		cmds := command.NewDispatcher(store, registry, tgCfg.Username())
		poller = command.NewPoller(tg, tg, cmds,
			command.WithPollTimeout(tgCfg.PollTimeout()),
			command.WithReplyTimeout(tgCfg.SendTimeout()),
		)
	}

	summary := &StartupSummary{
		HTTPAddr:        cfg.App.HTTPAddr,
		Env:             cfg.App.Env,
		LogLevel:        cfg.App.LogLevel,
		Timezone:        cfg.App.Location().String(),
		SeedSource:      seedSource(cfg.App),
		Accounts:        len(seed.Accounts),
		OpenTrades:      len(seed.Trades.Open),
		ClosedTrades:    len(seed.Trades.Closed),
		TelegramEnabled: tg != nil,
		BotUsername:     tgCfg.Username(),
		CommandPolling:  poller != nil,
		AuthorizedChats: registry.Len(),
		GoogleAuth:      ident.Configured(),
	}

	return &App{
		cfg:     cfg,
		http:    server,
		poller:  poller,
		closers: closers,
		Summary: summary,
	}, nil
}

func seedSource(app brcfg.AppConfig) string {
	if path := strings.TrimSpace(app.SeedPath); path != "" {
		return path
	}
	return "built-in"
}
