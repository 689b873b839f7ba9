// Package auth holds the set of chat ids allowed to receive notifications and
// issue privileged commands.
package auth

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"sniprx/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Registry 是订阅者集合，只记录成员关系。
type Registry struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewRegistry(initial ...int64) *Registry {
	r := &Registry{ids: make(map[int64]struct{}, len(initial))}
	for _, id := range initial {
		r.ids[id] = struct{}{}
	}
	return r
}

// Authorize 幂等：重复添加无副作用。
func (r *Registry) Authorize(id int64) {
	r.mu.Lock()
	r.ids[id] = struct{}{}
	r.mu.Unlock()
}

// Deauthorize 幂等：删除不存在的 id 无副作用。
func (r *Registry) Deauthorize(id int64) {
	r.mu.Lock()
	delete(r.ids, id)
	r.mu.Unlock()
}

func (r *Registry) IsAuthorized(id int64) bool {
	r.mu.RLock()
	_, ok := r.ids[id]
	r.mu.RUnlock()
	return ok
}

// List 返回排序后的快照。
func (r *Registry) List() []int64 {
	r.mu.RLock()
	out := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// ParseID 把任意文本/JSON 数字形式的 chat id 归一化为 int64，
// "7"、"007"、"7.0"、7 视为同一个订阅者。
func ParseID(raw string) (int64, error) {
	text := strings.TrimSpace(raw)
	if unq, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unq)
	}
	if text == "" || text == "null" {
		return 0, errs.Missing("id")
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, errs.Invalid("id", "must be numeric")
	}
	if !d.IsInteger() {
		return 0, errs.Invalid("id", "must be an integer")
	}
	if !d.BigInt().IsInt64() {
		return 0, errs.Invalid("id", "out of range")
	}
	return d.IntPart(), nil
}

// ParseRawID 解析 JSON 请求体中的 id 字段（数字或字符串）。
func ParseRawID(raw json.RawMessage) (int64, error) {
	return ParseID(string(raw))
}
