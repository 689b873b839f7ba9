// Package command answers chat commands from the current store contents.
package command

import (
	"context"
	"strings"

	"sniprx/internal/logger"
	"sniprx/internal/state"
)

// Command 是支持的聊天命令。
type Command string

const (
	CmdStart   Command = "start"
	CmdHelp    Command = "help"
	CmdStatus  Command = "status"
	CmdBalance Command = "balance"
	CmdTrades  Command = "trades"
	CmdSummary Command = "summary"
)

// NotAuthorizedMessage 是未授权 chat 调用受保护命令时的固定回复。
const NotAuthorizedMessage = "❌ You are not authorized to use this bot. Please contact the administrator."

// Authorizer 判断 chat 是否在授权集合内。
type Authorizer interface {
	IsAuthorized(chatID int64) bool
}

type renderFunc func(d *Dispatcher, chatID int64) string

type entry struct {
	requiresAuth bool
	render       renderFunc
}

var commandTable = map[Command]entry{
	CmdStart:   {requiresAuth: false, render: (*Dispatcher).renderStart},
	CmdHelp:    {requiresAuth: false, render: (*Dispatcher).renderHelp},
	CmdStatus:  {requiresAuth: true, render: (*Dispatcher).renderStatus},
	CmdBalance: {requiresAuth: true, render: (*Dispatcher).renderBalance},
	CmdTrades:  {requiresAuth: true, render: (*Dispatcher).renderTrades},
	CmdSummary: {requiresAuth: true, render: (*Dispatcher).renderSummary},
}

// RequiresAuth 报告命令是否需要授权。
func RequiresAuth(cmd Command) bool {
	return commandTable[cmd].requiresAuth
}

// Dispatcher 把命令映射到 store 查询与渲染。
type Dispatcher struct {
	state   state.Reader
	auth    Authorizer
	botName string
}

func NewDispatcher(reader state.Reader, auth Authorizer, botName string) *Dispatcher {
	return &Dispatcher{state: reader, auth: auth, botName: strings.TrimSpace(botName)}
}

// ParseCommand 识别 "/status"、"/status@SniprXBot extra" 等形式。
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.Fields(text)[0][1:]
	if idx := strings.Index(word, "@"); idx >= 0 {
		word = word[:idx]
	}
	cmd := Command(strings.ToLower(word))
	if _, ok := commandTable[cmd]; !ok {
		return "", false
	}
	return cmd, true
}

// Handle 返回回复文本；第二个返回值为 false 表示不是已知命令，应忽略。
// 未授权 chat 调用受保护命令时不会读取 store。
func (d *Dispatcher) Handle(ctx context.Context, chatID int64, text string) (string, bool) {
	cmd, ok := ParseCommand(text)
	if !ok {
		return "", false
	}
	if ctx.Err() != nil {
		return "", false
	}
	return d.Execute(chatID, cmd), true
}

// Execute 执行已解析的命令。
func (d *Dispatcher) Execute(chatID int64, cmd Command) string {
	e, ok := commandTable[cmd]
	if !ok {
		return ""
	}
	if e.requiresAuth && !d.auth.IsAuthorized(chatID) {
		logger.Infof("command: /%s rejected chat=%d (not authorized)", cmd, chatID)
		return NotAuthorizedMessage
	}
	logger.Debugf("command: /%s chat=%d", cmd, chatID)
	return e.render(d, chatID)
}
