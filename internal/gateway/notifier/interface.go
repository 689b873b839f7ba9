package notifier

import (
	"context"
	"time"
)

// Sender delivers one rendered message to one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Update 是一条入站聊天消息。
type Update struct {
	UpdateID int64
	ChatID   int64
	Username string
	Text     string
}

// UpdateSource long-polls inbound chat messages.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}
