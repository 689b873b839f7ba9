package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sniprx/internal/pkg/circuit"

	"github.com/tidwall/gjson"
)

// 中文说明：
// Telegram Bot API 客户端：向单个 chat 推送文本、长轮询入站命令。

const (
	defaultTelegramAPI = "https://api.telegram.org"
	// 没有调用方 deadline 时的单次请求上限
	defaultRequestTimeout = 15 * time.Second
	// 长轮询在服务端 timeout 之外额外留出的网络余量
	pollTimeoutMargin = 10 * time.Second
)

// APIError 是 Bot API 返回的 ok=false 响应。
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram status=%d", e.StatusCode)
	}
	return fmt.Sprintf("telegram status=%d: %s", e.StatusCode, e.Description)
}

// upstreamFault 区分 Telegram 自身故障与单个 chat 的拒绝。
// 4xx（含 429 限流，Telegram 按 chat 计算）只影响该 chat，不计入熔断。
func upstreamFault(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}

type Telegram struct {
	BotToken string
	BaseURL  string
	Client   *http.Client
	breaker  *circuit.CircuitBreaker
}

// TelegramOption 调整 Telegram 客户端。
type TelegramOption func(*Telegram)

// WithBaseURL 替换 API 地址（测试或自建代理）。
func WithBaseURL(base string) TelegramOption {
	return func(t *Telegram) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			t.BaseURL = base
		}
	}
}

// WithBreaker 设置熔断阈值。
func WithBreaker(threshold int, cooldown time.Duration) TelegramOption {
	return func(t *Telegram) {
		t.breaker = circuit.NewCircuitBreaker("telegram", threshold, cooldown)
	}
}

func NewTelegram(botToken string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		BotToken: strings.TrimSpace(botToken),
		BaseURL:  defaultTelegramAPI,
		Client:   &http.Client{},
		breaker:  circuit.NewCircuitBreaker("telegram", 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BreakerState 返回熔断器当前状态，用于健康检查。
func (t *Telegram) BreakerState() circuit.State {
	return t.breaker.State()
}

// SendText 向单个 chat 发送纯文本消息。不做自动重试：超时或失败由调用方计数。
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	if t.BotToken == "" {
		return fmt.Errorf("Telegram 配置不完整")
	}
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return t.breaker.Call(func() error {
		_, err := t.call(ctx, http.MethodPost, "sendMessage", nil, body)
		return err
	}, upstreamFault)
}

// GetUpdates 长轮询 offset 之后的消息更新。
func (t *Telegram) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	if t.BotToken == "" {
		return nil, fmt.Errorf("Telegram 配置不完整")
	}
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	q.Set("allowed_updates", `["message"]`)
	pollCtx, cancel := context.WithTimeout(ctx, timeout+pollTimeoutMargin)
	defer cancel()
	var raw []byte
	err := t.breaker.Call(func() error {
		var err error
		raw, err = t.call(pollCtx, http.MethodGet, "getUpdates", q, nil)
		return err
	}, upstreamFault)
	if err != nil {
		return nil, err
	}
	return ParseUpdates(raw), nil
}

// ParseUpdates 从 getUpdates 响应中提取消息。没有 message 的更新只保留 UpdateID 以推进 offset。
func ParseUpdates(raw []byte) []Update {
	results := gjson.GetBytes(raw, "result").Array()
	out := make([]Update, 0, len(results))
	for _, item := range results {
		out = append(out, Update{
			UpdateID: item.Get("update_id").Int(),
			ChatID:   item.Get("message.chat.id").Int(),
			Username: item.Get("message.from.username").String(),
			Text:     strings.TrimSpace(item.Get("message.text").String()),
		})
	}
	return out
}

func (t *Telegram) call(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	u := fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, endpoint)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, redactToken(err, t.BotToken)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 || !gjson.GetBytes(raw, "ok").Bool() {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Description: gjson.GetBytes(raw, "description").String(),
		}
	}
	return raw, nil
}

// redactToken 避免把 bot token 写进日志（url.Error 会带上完整 URL）。
func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
