package apihttp

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// rawText 把 JSON 字符串或数字统一成文本；null / 缺省返回空串。
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// firstPresent 返回第一个非空的原始字段，用于 id/chatId、payload/data 这类别名。
func firstPresent(fields ...json.RawMessage) json.RawMessage {
	for _, f := range fields {
		if t := bytes.TrimSpace(f); len(t) > 0 && !bytes.Equal(t, []byte("null")) {
			return f
		}
	}
	return nil
}

type loginRequest struct {
	Login    json.RawMessage `json:"login"`
	Password string          `json:"password"`
	Server   string          `json:"server"`
	Name     string          `json:"name"`
}

type chatRequest struct {
	ID     json.RawMessage `json:"id"`
	ChatID json.RawMessage `json:"chatId"`
}

type notifyRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Data    json.RawMessage `json:"data"`
}

// openTradeRequest 与 closeTradeRequest 使用与 state.Trade 相同的 camelCase 字段名。
type openTradeRequest struct {
	Ticket       int64     `json:"ticket"`
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"`
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Profit       float64   `json:"profit"`
	Swap         float64   `json:"swap"`
	OpenTime     time.Time `json:"openTime"`
}

type closeTradeRequest struct {
	Ticket     int64     `json:"ticket"`
	ClosePrice float64   `json:"closePrice"`
	Profit     *float64  `json:"profit"`
	CloseTime  time.Time `json:"closeTime"`
}

type googleUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type controlResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	BotStatus any    `json:"bot_status"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	TelegramBot bool      `json:"telegram_bot"`
	GoogleAuth  bool      `json:"google_auth"`
}
