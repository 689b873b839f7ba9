package app

import (
	"fmt"
	"strings"
)

// StartupSummary 在启动时打印一次，方便确认生效的配置。
type StartupSummary struct {
	HTTPAddr        string
	Env             string
	LogLevel        string
	Timezone        string
	SeedSource      string
	Accounts        int
	OpenTrades      int
	ClosedTrades    int
	TelegramEnabled bool
	BotUsername     string
	CommandPolling  bool
	AuthorizedChats int
	GoogleAuth      bool
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	b.WriteString(line + "\n")
	b.WriteString("启动配置摘要 (STARTUP SUMMARY)\n")
	b.WriteString(line + "\n")

	b.WriteString("[服务 (SERVICE)]\n")
	fmt.Fprintf(&b, "  监听地址: %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  环境: %s  日志级别: %s  时区: %s\n", s.Env, s.LogLevel, s.Timezone)
	b.WriteString("\n")

	b.WriteString("[初始数据 (SEED)]\n")
	fmt.Fprintf(&b, "  来源: %s\n", s.SeedSource)
	fmt.Fprintf(&b, "  账户: %d  持仓: %d  已平仓: %d\n", s.Accounts, s.OpenTrades, s.ClosedTrades)
	b.WriteString("\n")

	b.WriteString("[推送 (TELEGRAM)]\n")
	fmt.Fprintf(&b, "  启用: %s  机器人: %s\n", yesNo(s.TelegramEnabled), s.BotUsername)
	fmt.Fprintf(&b, "  命令轮询: %s  已授权 chat: %d\n", yesNo(s.CommandPolling), s.AuthorizedChats)
	b.WriteString("\n")

	b.WriteString("[认证 (AUTH)]\n")
	fmt.Fprintf(&b, "  Google OAuth: %s\n", yesNo(s.GoogleAuth))
	b.WriteString(line)
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Println(s.String())
}

func yesNo(v bool) string {
	if v {
		return "是"
	}
	return "否"
}
