// Package notify renders events and fans them out to every authorized chat.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"sniprx/internal/gateway/notifier"
	"sniprx/internal/logger"
	"sniprx/internal/pkg/errs"

	"golang.org/x/sync/errgroup"
)

const defaultSendTimeout = 10 * time.Second

// Recipients 是当前授权的 chat 集合。
type Recipients interface {
	List() []int64
}

// Result 统计一次扇出。Attempted 总是等于扇出时的接收者数量。
type Result struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Dispatcher 对每个接收者并发投递，单个接收者失败只记日志与计数，不影响其他接收者。
type Dispatcher struct {
	sender     notifier.Sender
	recipients Recipients
	timeout    time.Duration
	location   *time.Location
	now        func() time.Time
}

// Option 调整 Dispatcher。
type Option func(*Dispatcher)

// WithSendTimeout 设置单个接收者的投递超时。
func WithSendTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithLocation 设置消息时间戳的时区。
func WithLocation(loc *time.Location) Option {
	return func(disp *Dispatcher) {
		if loc != nil {
			disp.location = loc
		}
	}
}

// WithClock 替换时间源（测试使用）。
func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) {
		if now != nil {
			disp.now = now
		}
	}
}

// NewDispatcher 构建扇出器；sender 为 nil 表示未配置推送通道。
func NewDispatcher(sender notifier.Sender, recipients Recipients, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:     sender,
		recipients: recipients,
		timeout:    defaultSendTimeout,
		location:   time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Configured 表示推送通道是否可用。
func (d *Dispatcher) Configured() bool {
	return d != nil && d.sender != nil
}

// Notify 解析 {type, payload} 后推送。未知类型在任何投递前被拒绝。
func (d *Dispatcher) Notify(ctx context.Context, eventType string, payload json.RawMessage) (Result, error) {
	ev, err := DecodeEvent(eventType, payload)
	if err != nil {
		return Result{}, err
	}
	return d.Publish(ctx, ev)
}

// Publish 渲染事件并扇出给所有授权 chat，等待所有投递尝试结束后返回。
func (d *Dispatcher) Publish(ctx context.Context, ev Event) (Result, error) {
	if ev == nil {
		return Result{}, errs.Missing("event")
	}
	if !d.Configured() {
		return Result{}, &errs.ConfigurationError{Component: "telegram bot", Hint: "set TELEGRAM_BOT_TOKEN"}
	}
	text := ev.Message(d.now().In(d.location)).Render()
	res := d.Broadcast(ctx, text)
	logger.Infof("notify: type=%s attempted=%d delivered=%d failed=%d", ev.Type(), res.Attempted, res.Delivered, res.Failed)
	logger.LogOutbound(string(ev.Type()), res.Attempted, res.Delivered, text)
	return res, nil
}

// Broadcast 为每个接收者启动一个 goroutine 并 join。调用方取消 ctx 不会中断已开始的扇出。
func (d *Dispatcher) Broadcast(ctx context.Context, text string) Result {
	ids := d.recipients.List()
	if len(ids) == 0 {
		return Result{}
	}
	base := context.WithoutCancel(ctx)
	var delivered atomic.Int64
	var group errgroup.Group
	for _, id := range ids {
		group.Go(func() error {
			if err := d.deliver(base, id, text); err != nil {
				logger.Warnf("notify: %v", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = group.Wait()
	ok := int(delivered.Load())
	return Result{Attempted: len(ids), Delivered: ok, Failed: len(ids) - ok}
}

func (d *Dispatcher) deliver(ctx context.Context, chatID int64, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errs.DeliveryError{Recipient: chatID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.SendText(sendCtx, chatID, text); err != nil {
		return &errs.DeliveryError{Recipient: chatID, Err: err}
	}
	return nil
}
