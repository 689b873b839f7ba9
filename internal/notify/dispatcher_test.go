package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sniprx/internal/auth"
	"sniprx/internal/gateway/notifier"
	"sniprx/internal/pkg/circuit"
	"sniprx/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendText(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

type funcSender func(ctx context.Context, chatID int64, text string) error

func (f funcSender) SendText(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDispatcher(sender notifier.Sender, ids ...int64) *Dispatcher {
	return NewDispatcher(sender, auth.NewRegistry(ids...), WithClock(func() time.Time { return fixedNow }))
}

func TestNotify_OneRecipientFails(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendText", mock.Anything, int64(1), mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, int64(2), mock.Anything).Return(errors.New("forbidden"))
	sender.On("SendText", mock.Anything, int64(3), mock.Anything).Return(nil)

	d := newTestDispatcher(sender, 1, 2, 3)
	res, err := d.Notify(context.Background(), "error", json.RawMessage(`{"error":"disk full"}`))
	require.NoError(t, err)
	assert.Equal(t, Result{Attempted: 3, Delivered: 2, Failed: 1}, res)
	sender.AssertNumberOfCalls(t, "SendText", 3)
}

func TestNotify_UnknownTypeRejectedBeforeDelivery(t *testing.T) {
	sender := new(MockSender)
	d := newTestDispatcher(sender, 1)

	_, err := d.Notify(context.Background(), "weather", json.RawMessage(`{}`))
	assert.True(t, errs.IsValidation(err))
	_, err = d.Notify(context.Background(), "", json.RawMessage(`{}`))
	assert.True(t, errs.IsValidation(err))
	_, err = d.Notify(context.Background(), "trade", json.RawMessage(`{"trade":{}}`))
	assert.True(t, errs.IsValidation(err))
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_NotConfigured(t *testing.T) {
	d := NewDispatcher(nil, auth.NewRegistry(1))
	assert.False(t, d.Configured())
	_, err := d.Notify(context.Background(), "bot_status", json.RawMessage(`{"status":"Bot started"}`))
	assert.True(t, errs.IsConfiguration(err))
}

func TestNotify_NoRecipients(t *testing.T) {
	sender := new(MockSender)
	d := newTestDispatcher(sender)
	res, err := d.Notify(context.Background(), "bot_status", json.RawMessage(`{"status":"Bot stopped"}`))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestBroadcast_TimeoutCountsAsAttempted(t *testing.T) {
	sender := funcSender(func(ctx context.Context, chatID int64, _ string) error {
		if chatID == 2 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	d := NewDispatcher(sender, auth.NewRegistry(1, 2), WithSendTimeout(20*time.Millisecond))
	start := time.Now()
	res := d.Broadcast(context.Background(), "hi")
	assert.Equal(t, Result{Attempted: 2, Delivered: 1, Failed: 1}, res)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBroadcast_FansOutConcurrently(t *testing.T) {
	const n = 5
	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()
	sender := funcSender(func(ctx context.Context, _ int64, _ string) error {
		started.Done()
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	d := NewDispatcher(sender, auth.NewRegistry(1, 2, 3, 4, 5), WithSendTimeout(2*time.Second))
	res := d.Broadcast(context.Background(), "hi")
	assert.Equal(t, n, res.Delivered, "every recipient must be attempted before any completes")
}

func TestBroadcast_PanicIsolated(t *testing.T) {
	sender := funcSender(func(_ context.Context, chatID int64, _ string) error {
		if chatID == 1 {
			panic("boom")
		}
		return nil
	})
	d := NewDispatcher(sender, auth.NewRegistry(1, 2))
	assert.Equal(t, Result{Attempted: 2, Delivered: 1, Failed: 1}, d.Broadcast(context.Background(), "x"))
}

func TestBroadcast_IgnoresCallerCancellation(t *testing.T) {
	var mu sync.Mutex
	var got []int64
	sender := funcSender(func(ctx context.Context, chatID int64, _ string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, chatID)
		mu.Unlock()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDispatcher(sender, auth.NewRegistry(1, 2))
	res := d.Broadcast(ctx, "x")
	assert.Equal(t, 2, res.Delivered)
	assert.ElementsMatch(t, []int64{1, 2}, got)
}

func TestTemplates(t *testing.T) {
	var texts []string
	var mu sync.Mutex
	sender := funcSender(func(_ context.Context, _ int64, text string) error {
		mu.Lock()
		texts = append(texts, text)
		mu.Unlock()
		return nil
	})
	d := newTestDispatcher(sender, 1)
	ts := "⏰ 2025-06-01 12:00:00 UTC"

	cases := []struct {
		typ     string
		payload string
		want    string
	}{
		{"login", `{"userEmail":"a@b.c","userId":42}`, "🔐 User Login\n👤 User: a@b.c\n🆔 ID: 42\n" + ts},
		{"logout", `{"userEmail":"a@b.c","userId":"u-1"}`, "🚪 User Logout\n👤 User: a@b.c\n🆔 ID: u-1\n" + ts},
		{"trade", `{"trade":{"symbol":"EURUSD","type":"BUY","volume":0.1,"profit":45}}`,
			"🟢 TRADE\n📊 Symbol: EURUSD\n📈 Type: BUY\n📊 Volume: 0.1L\n💰 Profit: +$45.00\n" + ts},
		{"trade_closed", `{"trade":{"symbol":"USDJPY","type":"SELL","volume":0.1,"profit":-20}}`,
			"🔴 TRADE\n📊 Symbol: USDJPY\n📈 Type: SELL\n📊 Volume: 0.1L\n💰 Profit: -$20.00\n" + ts},
		{"bot_status", `{"status":"Bot Started","details":"Strategy: mmxm"}`,
			"🟢 Bot Status Update\n🔄 Status: Bot Started\n📝 Details: Strategy: mmxm\n" + ts},
		{"bot_status", `{"status":"Bot Stopped"}`, "🔴 Bot Status Update\n🔄 Status: Bot Stopped\n📝 Details: \n" + ts},
		{"error", `{"error":"disk full"}`, "⚠️ Error Alert\n❌ Error: disk full\n" + ts},
	}
	for _, tc := range cases {
		texts = nil
		_, err := d.Notify(context.Background(), tc.typ, json.RawMessage(tc.payload))
		require.NoError(t, err, tc.typ)
		require.Len(t, texts, 1)
		assert.Equal(t, tc.want, texts[0], tc.typ)
	}
}

func TestBroadcast_RateLimitedChatsDoNotBlockOthers(t *testing.T) {
	const healthy = int64(99)
	var healthyHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			ChatID int64 `json:"chat_id"`
		}
		_ = json.Unmarshal(body, &payload)
		if payload.ChatID == healthy {
			healthyHits.Add(1)
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests: retry after 5"}`))
	}))
	defer srv.Close()

	tg := notifier.NewTelegram("TOKEN", notifier.WithBaseURL(srv.URL), notifier.WithBreaker(5, time.Minute))
	registry := auth.NewRegistry(1, 2, 3, 4, 5)
	d := NewDispatcher(tg, registry, WithClock(func() time.Time { return fixedNow }))

	res := d.Broadcast(context.Background(), "first")
	assert.Equal(t, Result{Attempted: 5, Delivered: 0, Failed: 5}, res)

	registry.Authorize(healthy)
	res = d.Broadcast(context.Background(), "second")
	assert.Equal(t, Result{Attempted: 6, Delivered: 1, Failed: 5}, res)
	assert.Equal(t, int64(1), healthyHits.Load())
	assert.Equal(t, circuit.StateClosed, tg.BreakerState())
}
