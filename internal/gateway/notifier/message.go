package notifier

import (
	"strings"
	"time"

	"sniprx/internal/pkg/text"
)

// Telegram 单条消息上限 4096 字符，留出余量。
const maxStructuredMessageLen = 3800

// TimestampLayout 是消息底部时间戳格式。
const TimestampLayout = "2006-01-02 15:04:05 MST"

// Field 是一行 "图标 标签: 值"。
type Field struct {
	Icon  string
	Label string
	Value string
}

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的聊天推送。
type StructuredMessage struct {
	Icon      string
	Title     string
	Fields    []Field
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// Render 生成纯文本消息，自动裁剪长度。
func (m StructuredMessage) Render() string {
	var b strings.Builder
	header := strings.TrimSpace(m.Icon + " " + m.Title)
	if header != "" {
		b.WriteString(header + "\n")
	}
	for _, f := range m.Fields {
		if line := renderField(f); line != "" {
			b.WriteString(line + "\n")
		}
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString("\n")
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString("\n" + footer + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("⏰ " + m.Timestamp.Format(TimestampLayout))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxStructuredMessageLen)
}

func renderField(f Field) string {
	label := strings.TrimSpace(f.Label)
	if label == "" {
		return strings.TrimSpace(f.Icon + " " + f.Value)
	}
	return strings.TrimSpace(f.Icon+" "+label) + ": " + f.Value
}

func renderSections(secs []MessageSection) string {
	var blocks []string
	for _, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		title := strings.TrimSpace(sec.Title)
		if len(lines) == 0 && title == "" {
			continue
		}
		var b strings.Builder
		if title != "" {
			b.WriteString(title + "\n")
		}
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
