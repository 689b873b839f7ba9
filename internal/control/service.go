// Package control orchestrates bot lifecycle changes: mutate state, record
// the activity, then notify subscribers.
package control

import (
	"context"
	"fmt"
	"sync"

	"sniprx/internal/activity"
	"sniprx/internal/logger"
	"sniprx/internal/notify"
	"sniprx/internal/pkg/errs"
	"sniprx/internal/state"
)

// Publisher 把事件扇出给订阅者。
type Publisher interface {
	Publish(ctx context.Context, ev notify.Event) (notify.Result, error)
}

// Service 串行化“修改状态 + 写活动日志”，保证日志顺序与修改顺序一致；
// 推送在释放锁之后进行，慢接收者不会阻塞其他控制操作。
type Service struct {
	mu        sync.Mutex
	store     *state.Store
	log       *activity.Log
	publisher Publisher
}

func NewService(store *state.Store, log *activity.Log, publisher Publisher) *Service {
	return &Service{store: store, log: log, publisher: publisher}
}

// Start 设置运行标记。重复调用会再次记录日志并推送。
func (s *Service) Start(ctx context.Context) state.BotStatus {
	s.mu.Lock()
	status := s.store.SetRunning(true)
	strategy := s.store.Settings().Strategy
	details := "Strategy: " + strategy
	s.log.Append(activity.Entry{Type: "bot", Title: "Bot Started", Details: details, Tag: "bot"})
	s.mu.Unlock()

	s.publish(ctx, notify.BotStatusEvent{Status: "Bot Started", Details: details})
	return status
}

func (s *Service) Stop(ctx context.Context) state.BotStatus {
	s.mu.Lock()
	status := s.store.SetRunning(false)
	s.log.Append(activity.Entry{Type: "bot", Title: "Bot Stopped", Tag: "bot"})
	s.mu.Unlock()

	s.publish(ctx, notify.BotStatusEvent{Status: "Bot Stopped"})
	return status
}

// Login 新建或覆盖账户并记录连接事件。
func (s *Service) Login(_ context.Context, req state.LoginRequest) (state.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.store.UpsertAccount(req)
	if err != nil {
		return state.Account{}, err
	}
	s.log.Append(activity.Entry{
		Type:    "connection",
		Title:   "MT5 Connected",
		Details: fmt.Sprintf("%s @ %s", acct.Login, acct.Server),
		Tag:     "mt5",
	})
	return acct, nil
}

// UpdateSettings 浅合并配置；partial 含 bot_active 时额外记录并推送状态变化。
func (s *Service) UpdateSettings(ctx context.Context, partial map[string]any) (state.BotSettings, error) {
	_, toggled := partial["bot_active"]

	s.mu.Lock()
	merged, err := s.store.MergeSettings(partial)
	if err != nil {
		s.mu.Unlock()
		return state.BotSettings{}, err
	}
	var ev notify.BotStatusEvent
	if toggled {
		ev = notify.BotStatusEvent{Status: "Bot Stopped", Details: "Strategy: " + merged.Strategy}
		if merged.BotActive {
			ev.Status = "Bot Started"
		}
		s.log.Append(activity.Entry{Type: "settings", Title: ev.Status, Details: ev.Details, Tag: "settings"})
	}
	s.mu.Unlock()

	if toggled {
		s.publish(ctx, ev)
	}
	return merged, nil
}

// OpenTrade 记录一笔新持仓。
func (s *Service) OpenTrade(_ context.Context, t state.Trade) (state.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opened, err := s.store.OpenTrade(t)
	if err != nil {
		return state.Trade{}, err
	}
	s.log.Append(activity.Entry{
		Type:    "trade",
		Title:   "Trade Opened",
		Details: fmt.Sprintf("#%d %s %s %gL", opened.Ticket, opened.Symbol, opened.Type, opened.Volume),
		Tag:     "trade",
	})
	return opened, nil
}

// CloseTrade 平仓后推送 trade 事件。
func (s *Service) CloseTrade(ctx context.Context, req state.CloseRequest) (state.Trade, error) {
	s.mu.Lock()
	closed, err := s.store.CloseTrade(req)
	if err != nil {
		s.mu.Unlock()
		return state.Trade{}, err
	}
	s.log.Append(activity.Entry{
		Type:    "trade",
		Title:   "Trade Closed",
		Details: fmt.Sprintf("#%d %s %s profit %.2f", closed.Ticket, closed.Symbol, closed.Type, closed.Profit),
		Tag:     "trade",
	})
	s.mu.Unlock()

	s.publish(ctx, notify.TradeEvent{Symbol: closed.Symbol, Side: closed.Type, Volume: closed.Volume, Profit: closed.Profit})
	return closed, nil
}

// publish 的失败不影响控制操作本身的结果。
func (s *Service) publish(ctx context.Context, ev notify.Event) {
	if s.publisher == nil {
		return
	}
	res, err := s.publisher.Publish(ctx, ev)
	switch {
	case err == nil:
		logger.Debugf("control: %s delivered %d/%d", ev.Type(), res.Delivered, res.Attempted)
	case errs.IsConfiguration(err):
		logger.Debugf("control: skip %s notification: %v", ev.Type(), err)
	default:
		logger.Warnf("control: %s notification failed: %v", ev.Type(), err)
	}
}
