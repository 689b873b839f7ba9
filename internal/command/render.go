package command

import (
	"fmt"
	"strings"

	"sniprx/internal/gateway/notifier"
	"sniprx/internal/pkg/utils"
	"sniprx/internal/state"
)

// NoAccountMessage 在尚无账户时代替 status / balance 的回复。
const NoAccountMessage = "No trading account connected yet."

// recentLimit 是 /trades 每类最多展示的条数。
const recentLimit = 5

func kv(icon, label, value string) string {
	return icon + " " + label + ": " + value
}

// block 渲染 "标题 + 空行 + 正文" 结构。
func block(icon, title string, lines ...string) string {
	return notifier.StructuredMessage{
		Icon:     icon,
		Title:    title,
		Sections: []notifier.MessageSection{{Lines: lines}},
	}.Render()
}

func (d *Dispatcher) renderStart(chatID int64) string {
	return block("🤖", "Welcome to SniprX Trading Bot!",
		"I'm here to keep you updated on your trading activities. Here are the available commands:",
		"📊 /status - Get current trading status",
		"💰 /balance - Check account balance",
		"📈 /trades - View recent trades",
		"📋 /summary - Get trading summary",
		"❓ /help - Show this help message",
		fmt.Sprintf("To receive notifications, please contact the admin to authorize your chat ID: %d", chatID),
	)
}

func (d *Dispatcher) renderHelp(int64) string {
	lines := []string{
		"📊 /status - Get current trading status and bot status",
		"💰 /balance - Check your MT5 account balance and equity",
		"📈 /trades - View recent open and closed trades",
		"📋 /summary - Get trading summary and performance stats",
		"❓ /help - Show this help message",
		"For support, contact your trading administrator.",
	}
	if d.botName != "" {
		lines = append(lines, "Bot: @"+strings.TrimPrefix(d.botName, "@"))
	}
	return block("🤖", "SniprX Trading Bot Commands:", lines...)
}

func (d *Dispatcher) renderStatus(int64) string {
	accounts := d.state.Accounts()
	if len(accounts) == 0 {
		return NoAccountMessage
	}
	acct := accounts[0]
	book := d.state.Trades()
	conn := "🔴 Disconnected"
	if acct.Connected {
		conn = "🟢 Connected"
	}
	return block("📊", "Trading Status",
		kv("🔄", "Connection Status", conn),
		kv("💰", "Balance", utils.FormatUSD(acct.Balance)),
		kv("📈", "Equity", utils.FormatUSD(acct.Equity)),
		kv("📊", "Open Trades", fmt.Sprint(len(book.Open))),
		kv("✅", "Closed Trades", fmt.Sprint(len(book.Closed))),
		kv("🎯", "Win Rate", utils.FormatPercent(acct.WinRate)),
	)
}

func (d *Dispatcher) renderBalance(int64) string {
	accounts := d.state.Accounts()
	if len(accounts) == 0 {
		return NoAccountMessage
	}
	acct := accounts[0]
	return block("💰", "Account Balance",
		kv("🏦", "Balance", utils.FormatUSD(acct.Balance)),
		kv("📊", "Equity", utils.FormatUSD(acct.Equity)),
		kv("💼", "Margin", utils.FormatUSD(acct.Margin)),
		kv("🆓", "Free Margin", utils.FormatUSD(acct.FreeMargin)),
		kv("📈", "Margin Level", utils.FormatPercent(acct.MarginLevel)),
	)
}

func tradeLine(t state.Trade) string {
	return fmt.Sprintf("%s %s %s %s - %s",
		utils.ProfitIcon(t.Profit), t.Symbol, t.Type, utils.FormatVolume(t.Volume), utils.FormatSignedUSD(t.Profit))
}

func (d *Dispatcher) renderTrades(int64) string {
	book := d.state.Trades()
	msg := notifier.StructuredMessage{Icon: "📈", Title: "Recent Trades"}
	if len(book.Open) > 0 {
		sec := notifier.MessageSection{Title: fmt.Sprintf("🔄 Open Trades (%d):", len(book.Open))}
		for _, t := range book.RecentOpen(recentLimit) {
			sec.Lines = append(sec.Lines, tradeLine(t))
		}
		msg.Sections = append(msg.Sections, sec)
	}
	if len(book.Closed) > 0 {
		sec := notifier.MessageSection{Title: fmt.Sprintf("✅ Recent Closed Trades (%d):", len(book.Closed))}
		for _, t := range book.RecentClosed(recentLimit) {
			sec.Lines = append(sec.Lines, tradeLine(t))
		}
		msg.Sections = append(msg.Sections, sec)
	}
	if len(msg.Sections) == 0 {
		msg.Sections = []notifier.MessageSection{{Lines: []string{"No trades yet."}}}
	}
	return msg.Render()
}

func (d *Dispatcher) renderSummary(int64) string {
	book := d.state.Trades()
	s := Summarize(book.Closed)
	total := "$" + s.TotalProfit.StringFixed(2)
	if !s.TotalProfit.IsNegative() {
		total = "+" + total
	}
	return block("📋", "Trading Summary",
		kv("💰", "Total Profit", total),
		kv("📊", "Total Trades", fmt.Sprint(s.TotalTrades)),
		kv("✅", "Winning Trades", fmt.Sprint(s.Wins)),
		kv("❌", "Losing Trades", fmt.Sprint(s.Losses)),
		kv("🎯", "Win Rate", s.WinRate.StringFixed(1)+"%"),
		kv("📈", "Average Win", "$"+s.AvgWin.StringFixed(2)),
		kv("📉", "Average Loss", "$"+s.AvgLoss.StringFixed(2)),
		kv("🔄", "Open Trades", fmt.Sprint(len(book.Open))),
	)
}
