package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// outbound 是推送消息的独立审计日志，默认关闭。
var (
	outboundMu  sync.Mutex
	outboundLog *log.Logger
)

func SetOutboundWriter(w io.Writer) {
	outboundMu.Lock()
	defer outboundMu.Unlock()
	if w == nil {
		outboundLog = nil
		return
	}
	outboundLog = log.New(w, "", log.LstdFlags)
}

// LogOutbound 记录一次扇出的完整正文与投递结果。
func LogOutbound(kind string, attempted, delivered int, body string) {
	outboundMu.Lock()
	l := outboundLog
	outboundMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[OUTBOUND][%s][%d/%d]\n", kind, delivered, attempted)
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}
