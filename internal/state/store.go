package state

import (
	"strings"
	"sync"
	"time"

	"sniprx/internal/pkg/errs"
)

const (
	defaultAccountName    = "MT5 Account"
	defaultConnectBalance = 10000.00
)

// Reader 是命令处理所需的只读视图。
type Reader interface {
	Accounts() []Account
	Trades() TradeBook
}

// Store 持有进程内的账户、交易、配置与运行状态。所有写操作都经过同一把锁，
// 两次并发的 MergeSettings 不会交错写字段。
type Store struct {
	mu       sync.RWMutex
	accounts []Account
	open     []Trade
	closed   []Trade
	settings BotSettings
	status   BotStatus
	now      func() time.Time
}

// Option 调整 Store 的构造参数。
type Option func(*Store)

// WithClock 替换时间源（测试使用）。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore 以 seed 快照初始化 Store。
func NewStore(seed Seed, opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.accounts = append([]Account(nil), seed.Accounts...)
	s.open = cloneTrades(seed.Trades.Open)
	s.closed = cloneTrades(seed.Trades.Closed)
	s.settings = cloneSettings(seed.Settings)
	s.status = BotStatus{Running: seed.Running, LastUpdate: s.now().UTC()}
	return s
}

func (s *Store) Accounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Account(nil), s.accounts...)
}

// UpsertAccount 新建或整体覆盖同 login 的账户，并把连接标记置为 true。
func (s *Store) UpsertAccount(req LoginRequest) (Account, error) {
	login := strings.TrimSpace(req.Login)
	server := strings.TrimSpace(req.Server)
	switch {
	case login == "":
		return Account{}, errs.Missing("login")
	case strings.TrimSpace(req.Password) == "":
		return Account{}, errs.Missing("password")
	case server == "":
		return Account{}, errs.Missing("server")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultAccountName
	}
	acc := Account{
		Login:      login,
		Server:     server,
		Name:       name,
		Balance:    defaultConnectBalance,
		Equity:     defaultConnectBalance,
		FreeMargin: defaultConnectBalance,
		Connected:  true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].Login == login {
			s.accounts[i] = acc
			return acc, nil
		}
	}
	s.accounts = append(s.accounts, acc)
	return acc, nil
}

func (s *Store) Trades() TradeBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TradeBook{Open: cloneTrades(s.open), Closed: cloneTrades(s.closed)}
}

// OpenTrade 追加一笔持仓。ticket 在持仓与已平仓中都必须唯一。
func (s *Store) OpenTrade(t Trade) (Trade, error) {
	if t.Ticket <= 0 {
		return Trade{}, errs.Missing("ticket")
	}
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if t.Symbol == "" {
		return Trade{}, errs.Missing("symbol")
	}
	side := NormalizeSide(t.Type)
	if side == "" {
		return Trade{}, errs.Invalid("type", "must be BUY or SELL")
	}
	if t.Volume <= 0 {
		return Trade{}, errs.Invalid("volume", "must be positive")
	}
	if t.OpenPrice <= 0 {
		return Trade{}, errs.Invalid("open_price", "must be positive")
	}
	t.Type = side
	t.ClosePrice = 0
	t.CloseTime = nil
	if t.OpenTime.IsZero() {
		t.OpenTime = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasTicketLocked(t.Ticket) {
		return Trade{}, errs.Invalid("ticket", "already exists")
	}
	s.open = append(s.open, t)
	return t, nil
}

// CloseTrade 把一笔持仓移入已平仓序列末尾。
func (s *Store) CloseTrade(req CloseRequest) (Trade, error) {
	if req.Ticket <= 0 {
		return Trade{}, errs.Missing("ticket")
	}
	if req.ClosePrice <= 0 {
		return Trade{}, errs.Invalid("close_price", "must be positive")
	}
	closeAt := req.CloseTime
	if closeAt.IsZero() {
		closeAt = s.now()
	}
	closeAt = closeAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.open {
		if s.open[i].Ticket == req.Ticket {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Trade{}, errs.Invalid("ticket", "no open trade with this ticket")
	}
	t := s.open[idx]
	s.open = append(s.open[:idx:idx], s.open[idx+1:]...)
	t.CurrentPrice = 0
	t.ClosePrice = req.ClosePrice
	if req.Profit != nil {
		t.Profit = *req.Profit
	}
	t.CloseTime = &closeAt
	s.closed = append(s.closed, t)
	out := t
	ct := closeAt
	out.CloseTime = &ct
	return out, nil
}

func (s *Store) hasTicketLocked(ticket int64) bool {
	for _, t := range s.open {
		if t.Ticket == ticket {
			return true
		}
	}
	for _, t := range s.closed {
		if t.Ticket == ticket {
			return true
		}
	}
	return false
}

func (s *Store) Settings() BotSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.settings)
}

// MergeSettings 对 partial 中出现的顶层字段做整体替换，其余字段保持不变。
// 嵌套对象不会深合并：只传部分子字段时，未传的子字段会回到零值。
func (s *Store) MergeSettings(partial map[string]any) (BotSettings, error) {
	patch, err := decodeSettingsPatch(partial)
	if err != nil {
		return BotSettings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	applyShallow(&s.settings, patch, partial)
	return cloneSettings(s.settings), nil
}

func (s *Store) Status() BotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetRunning 设置运行标记并刷新 last_update。
func (s *Store) SetRunning(running bool) BotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = BotStatus{Running: running, LastUpdate: s.now().UTC()}
	return s.status
}
