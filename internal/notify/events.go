package notify

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"sniprx/internal/gateway/notifier"
	"sniprx/internal/pkg/errs"
	"sniprx/internal/pkg/utils"
)

// EventType 是可推送的事件种类。
type EventType string

const (
	EventLogin     EventType = "login"
	EventLogout    EventType = "logout"
	EventTrade     EventType = "trade"
	EventBotStatus EventType = "bot_status"
	EventError     EventType = "error"
)

// ParseEventType 识别事件类型；trade_closed 是 trade 的别名。
func ParseEventType(raw string) (EventType, bool) {
	switch EventType(strings.ToLower(strings.TrimSpace(raw))) {
	case EventLogin:
		return EventLogin, true
	case EventLogout:
		return EventLogout, true
	case EventTrade, "trade_closed":
		return EventTrade, true
	case EventBotStatus:
		return EventBotStatus, true
	case EventError:
		return EventError, true
	default:
		return "", false
	}
}

// Event 能按固定模板渲染成一条消息。
type Event interface {
	Type() EventType
	Message(at time.Time) notifier.StructuredMessage
}

// UserEvent 对应 login / logout。
type UserEvent struct {
	Kind      EventType  `json:"-"`
	UserEmail string     `json:"userEmail"`
	UserID    flexString `json:"userId"`
}

func (e UserEvent) Type() EventType { return e.Kind }

func (e UserEvent) Message(at time.Time) notifier.StructuredMessage {
	icon, title := "🔐", "User Login"
	if e.Kind == EventLogout {
		icon, title = "🚪", "User Logout"
	}
	return notifier.StructuredMessage{
		Icon:  icon,
		Title: title,
		Fields: []notifier.Field{
			{Icon: "👤", Label: "User", Value: e.UserEmail},
			{Icon: "🆔", Label: "ID", Value: string(e.UserID)},
		},
		Timestamp: at,
	}
}

// TradeEvent 描述一笔已平仓交易。
type TradeEvent struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"type"`
	Volume float64 `json:"volume"`
	Profit float64 `json:"profit"`
}

func (TradeEvent) Type() EventType { return EventTrade }

func (e TradeEvent) Message(at time.Time) notifier.StructuredMessage {
	return notifier.StructuredMessage{
		Icon:  utils.ProfitIcon(e.Profit),
		Title: "TRADE",
		Fields: []notifier.Field{
			{Icon: "📊", Label: "Symbol", Value: e.Symbol},
			{Icon: "📈", Label: "Type", Value: e.Side},
			{Icon: "📊", Label: "Volume", Value: utils.FormatVolume(e.Volume)},
			{Icon: "💰", Label: "Profit", Value: utils.FormatSignedUSD(e.Profit)},
		},
		Timestamp: at,
	}
}

type BotStatusEvent struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

func (BotStatusEvent) Type() EventType { return EventBotStatus }

func (e BotStatusEvent) Message(at time.Time) notifier.StructuredMessage {
	icon := "🔴"
	if strings.Contains(strings.ToLower(e.Status), "start") {
		icon = "🟢"
	}
	return notifier.StructuredMessage{
		Icon:  icon,
		Title: "Bot Status Update",
		Fields: []notifier.Field{
			{Icon: "🔄", Label: "Status", Value: e.Status},
			{Icon: "📝", Label: "Details", Value: e.Details},
		},
		Timestamp: at,
	}
}

type ErrorEvent struct {
	Error string `json:"error"`
}

func (ErrorEvent) Type() EventType { return EventError }

func (e ErrorEvent) Message(at time.Time) notifier.StructuredMessage {
	return notifier.StructuredMessage{
		Icon:      "⚠️",
		Title:     "Error Alert",
		Fields:    []notifier.Field{{Icon: "❌", Label: "Error", Value: e.Error}},
		Timestamp: at,
	}
}

// DecodeEvent 把 HTTP 请求中的 {type, payload} 解析为具体事件。
// 未知类型或缺字段返回 ValidationError。
func DecodeEvent(rawType string, payload json.RawMessage) (Event, error) {
	typ, ok := ParseEventType(rawType)
	if !ok {
		if strings.TrimSpace(rawType) == "" {
			return nil, errs.Missing("type")
		}
		return nil, errs.Invalid("type", "Invalid notification type")
	}
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return nil, errs.Missing("payload")
	}
	switch typ {
	case EventLogin, EventLogout:
		ev := UserEvent{Kind: typ}
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, errs.Invalid("payload", err.Error())
		}
		if strings.TrimSpace(ev.UserEmail) == "" && strings.TrimSpace(string(ev.UserID)) == "" {
			return nil, errs.Missing("payload.userEmail")
		}
		return ev, nil
	case EventTrade:
		var wrapper struct {
			Trade *TradeEvent `json:"trade"`
		}
		if err := json.Unmarshal(payload, &wrapper); err != nil {
			return nil, errs.Invalid("payload", err.Error())
		}
		if wrapper.Trade == nil {
			return nil, errs.Missing("payload.trade")
		}
		if strings.TrimSpace(wrapper.Trade.Symbol) == "" {
			return nil, errs.Missing("payload.trade.symbol")
		}
		return *wrapper.Trade, nil
	case EventBotStatus:
		var ev BotStatusEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, errs.Invalid("payload", err.Error())
		}
		if strings.TrimSpace(ev.Status) == "" {
			return nil, errs.Missing("payload.status")
		}
		return ev, nil
	default:
		var ev ErrorEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, errs.Invalid("payload", err.Error())
		}
		if strings.TrimSpace(ev.Error) == "" {
			return nil, errs.Missing("payload.error")
		}
		return ev, nil
	}
}

// flexString 接受 JSON 字符串或数字（userId 两种形式都会出现）。
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
