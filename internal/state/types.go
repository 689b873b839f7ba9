package state

import (
	"strings"
	"time"
)

// Account 描述一个已连接的 MT5 交易账户快照。
type Account struct {
	Login       string  `json:"login" yaml:"login"`
	Server      string  `json:"server" yaml:"server"`
	Name        string  `json:"name" yaml:"name"`
	Balance     float64 `json:"balance" yaml:"balance"`
	Equity      float64 `json:"equity" yaml:"equity"`
	Margin      float64 `json:"margin" yaml:"margin"`
	FreeMargin  float64 `json:"freeMargin" yaml:"free_margin"`
	MarginLevel float64 `json:"marginLevel" yaml:"margin_level"`
	Connected   bool    `json:"connected" yaml:"connected"`
	WinRate     float64 `json:"winRate" yaml:"win_rate"`
	TotalTrades int     `json:"totalTrades" yaml:"total_trades"`
	AvgWin      float64 `json:"avgWin" yaml:"avg_win"`
	AvgLoss     float64 `json:"avgLoss" yaml:"avg_loss"`
}

// LoginRequest 是 MT5 登录/连接所需的凭据。
type LoginRequest struct {
	Login    string
	Password string
	Server   string
	Name     string
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade 表示一笔持仓或已平仓交易。持仓使用 CurrentPrice，已平仓使用 ClosePrice/CloseTime。
type Trade struct {
	Ticket       int64      `json:"ticket" yaml:"ticket"`
	Symbol       string     `json:"symbol" yaml:"symbol"`
	Type         string     `json:"type" yaml:"type"`
	Volume       float64    `json:"volume" yaml:"volume"`
	OpenPrice    float64    `json:"openPrice" yaml:"open_price"`
	CurrentPrice float64    `json:"currentPrice,omitempty" yaml:"current_price,omitempty"`
	ClosePrice   float64    `json:"closePrice,omitempty" yaml:"close_price,omitempty"`
	Profit       float64    `json:"profit" yaml:"profit"`
	Swap         float64    `json:"swap" yaml:"swap"`
	OpenTime     time.Time  `json:"openTime" yaml:"open_time"`
	CloseTime    *time.Time `json:"closeTime,omitempty" yaml:"close_time,omitempty"`
}

// NormalizeSide 将方向统一为 BUY/SELL，无法识别时返回空串。
func NormalizeSide(side string) string {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case SideBuy, "LONG":
		return SideBuy
	case SideSell, "SHORT":
		return SideSell
	default:
		return ""
	}
}

// TradeBook 是持仓与已平仓两个互斥序列，均按插入顺序（最新在末尾）。
type TradeBook struct {
	Open   []Trade `json:"open_trades" yaml:"open_trades"`
	Closed []Trade `json:"closed_trades" yaml:"closed_trades"`
}

// RecentOpen 返回最近的 n 笔持仓，最新在前。
func (b TradeBook) RecentOpen(n int) []Trade { return newestFirst(b.Open, n) }

// RecentClosed 返回最近的 n 笔已平仓交易，最新在前。
func (b TradeBook) RecentClosed(n int) []Trade { return newestFirst(b.Closed, n) }

func newestFirst(trades []Trade, n int) []Trade {
	if n <= 0 || n > len(trades) {
		n = len(trades)
	}
	out := make([]Trade, 0, n)
	for i := len(trades) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, trades[i])
	}
	return out
}

// CloseRequest 描述一次平仓。Profit 为空时沿用持仓的浮动盈亏。
type CloseRequest struct {
	Ticket     int64
	ClosePrice float64
	Profit     *float64
	CloseTime  time.Time
}

// BotStatus 只由 start/stop 修改。
type BotStatus struct {
	Running    bool      `json:"running" yaml:"running"`
	LastUpdate time.Time `json:"lastUpdate" yaml:"last_update"`
}

// BotSettings 是机器人配置，按顶层字段浅合并。
type BotSettings struct {
	BotActive          bool                 `json:"bot_active" yaml:"bot_active"`
	Killzone           bool                 `json:"killzone" yaml:"killzone"`
	Strategy           string               `json:"strategy" yaml:"strategy"`
	AllStrategies      bool                 `json:"all_strategies" yaml:"all_strategies"`
	SelectedStrategies []string             `json:"selected_strategies" yaml:"selected_strategies"`
	KillzoneMap        map[string]bool      `json:"killzone_map" yaml:"killzone_map"`
	RiskSettings       RiskSettings         `json:"risk_settings" yaml:"risk_settings"`
	TradingSessions    TradingSessions      `json:"trading_sessions" yaml:"trading_sessions"`
	Notifications      NotificationSettings `json:"notifications" yaml:"notifications"`
	NewsFilter         bool                 `json:"news_filter" yaml:"news_filter"`
	VolatilityFilter   bool                 `json:"volatility_filter" yaml:"volatility_filter"`
	TrendFilter        bool                 `json:"trend_filter" yaml:"trend_filter"`
	AdvancedSettings   AdvancedSettings     `json:"advanced_settings" yaml:"advanced_settings"`
}

type RiskSettings struct {
	MaxDailyLoss   float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxDailyProfit float64 `json:"max_daily_profit" yaml:"max_daily_profit"`
	RiskPerTrade   float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	DefaultLotSize float64 `json:"default_lot_size" yaml:"default_lot_size"`
	MaxOpenTrades  int     `json:"max_open_trades" yaml:"max_open_trades"`
	MaxDailyTrades int     `json:"max_daily_trades" yaml:"max_daily_trades"`
	MaxSlippage    float64 `json:"max_slippage" yaml:"max_slippage"`
	MaxSpread      float64 `json:"max_spread" yaml:"max_spread"`
}

type TradingSessions struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	LondonSession  bool `json:"london_session" yaml:"london_session"`
	NewYorkSession bool `json:"new_york_session" yaml:"new_york_session"`
	TokyoSession   bool `json:"tokyo_session" yaml:"tokyo_session"`
	SydneySession  bool `json:"sydney_session" yaml:"sydney_session"`
}

type NotificationSettings struct {
	EmailNotifications    bool `json:"email_notifications" yaml:"email_notifications"`
	TelegramNotifications bool `json:"telegram_notifications" yaml:"telegram_notifications"`
	TradeAlerts           bool `json:"trade_alerts" yaml:"trade_alerts"`
	ErrorAlerts           bool `json:"error_alerts" yaml:"error_alerts"`
	PushNotifications     bool `json:"push_notifications" yaml:"push_notifications"`
}

type AdvancedSettings struct {
	MaxSlippage   float64 `json:"max_slippage" yaml:"max_slippage"`
	MaxSpread     float64 `json:"max_spread" yaml:"max_spread"`
	AutoReconnect bool    `json:"auto_reconnect" yaml:"auto_reconnect"`
	EmergencyStop bool    `json:"emergency_stop" yaml:"emergency_stop"`
}

func cloneSettings(s BotSettings) BotSettings {
	out := s
	if s.SelectedStrategies != nil {
		out.SelectedStrategies = append([]string(nil), s.SelectedStrategies...)
	}
	if s.KillzoneMap != nil {
		out.KillzoneMap = make(map[string]bool, len(s.KillzoneMap))
		for k, v := range s.KillzoneMap {
			out.KillzoneMap[k] = v
		}
	}
	return out
}

func cloneTrades(src []Trade) []Trade {
	out := make([]Trade, len(src))
	for i, t := range src {
		if t.CloseTime != nil {
			ct := *t.CloseTime
			t.CloseTime = &ct
		}
		out[i] = t
	}
	return out
}
