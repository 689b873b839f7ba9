// Package activity keeps the bounded, newest-first record of notable state changes.
package activity

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity 是日志保留的最大条目数。
const DefaultCapacity = 200

// Entry 一旦写入即不可变。
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Details   string    `json:"details"`
	Tag       string    `json:"tag"`
	Timestamp time.Time `json:"timestamp"`
}

// Log 是进程内的活动日志。
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
}

// New 创建日志；capacity <= 0 时使用 DefaultCapacity。
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, now: time.Now}
}

// SetClock 替换时间源（测试使用）。
func (l *Log) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Append 分配 ID 与服务端时间戳，插入到头部并截断到容量上限。
func (l *Log) Append(e Entry) Entry {
	e.ID = uuid.NewString()
	e.Type = orDefault(e.Type, "bot")
	e.Title = orDefault(e.Title, "Update")
	e.Tag = orDefault(e.Tag, "system")
	e.Details = strings.TrimSpace(e.Details)

	l.mu.Lock()
	defer l.mu.Unlock()
	e.Timestamp = l.now().UTC()
	next := make([]Entry, 0, min(len(l.entries)+1, l.capacity))
	next = append(next, e)
	for _, old := range l.entries {
		if len(next) >= l.capacity {
			break
		}
		next = append(next, old)
	}
	l.entries = next
	return e
}

// List 返回调用时刻的快照，最新在前。
func (l *Log) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
