package command

import (
	"context"
	"errors"
	"time"

	"sniprx/internal/gateway/notifier"
	"sniprx/internal/logger"
)

const (
	defaultPollTimeout  = 30 * time.Second
	defaultPollBackoff  = 3 * time.Second
	defaultReplyTimeout = 10 * time.Second
)

// Poller 通过长轮询拉取聊天消息并交给 Dispatcher 处理。
type Poller struct {
	source       notifier.UpdateSource
	sender       notifier.Sender
	dispatcher   *Dispatcher
	pollTimeout  time.Duration
	backoff      time.Duration
	replyTimeout time.Duration
	offset       int64
}

type PollerOption func(*Poller)

func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.pollTimeout = d
		}
	}
}

func WithBackoff(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.backoff = d
		}
	}
}

func WithReplyTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.replyTimeout = d
		}
	}
}

func NewPoller(source notifier.UpdateSource, sender notifier.Sender, dispatcher *Dispatcher, opts ...PollerOption) *Poller {
	p := &Poller{
		source:       source,
		sender:       sender,
		dispatcher:   dispatcher,
		pollTimeout:  defaultPollTimeout,
		backoff:      defaultPollBackoff,
		replyTimeout: defaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run 一直轮询到 ctx 结束。拉取失败时按 backoff 等待后重试。
func (p *Poller) Run(ctx context.Context) error {
	logger.Infof("command: poller started")
	defer logger.Infof("command: poller stopped")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Warnf("command: poll failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
		}
	}
}

// PollOnce 拉取一批更新并逐条处理，offset 前移到最后一条之后。
func (p *Poller) PollOnce(ctx context.Context) error {
	updates, err := p.source.GetUpdates(ctx, p.offset, p.pollTimeout)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
		p.handle(ctx, u)
	}
	return nil
}

// Offset 返回下一次拉取使用的 offset。
func (p *Poller) Offset() int64 { return p.offset }

func (p *Poller) handle(ctx context.Context, u notifier.Update) {
	if u.ChatID == 0 || u.Text == "" {
		return
	}
	reply, ok := p.dispatcher.Handle(ctx, u.ChatID, u.Text)
	if !ok || reply == "" {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.replyTimeout)
	defer cancel()
	if err := p.sender.SendText(sendCtx, u.ChatID, reply); err != nil {
		logger.Warnf("command: reply to chat=%d failed: %v", u.ChatID, err)
	}
}
