package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sniprx/internal/activity"
	"sniprx/internal/auth"
	"sniprx/internal/control"
	"sniprx/internal/identity"
	"sniprx/internal/notify"
	"sniprx/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent map[int64]int
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[int64]int{}
	}
	f.sent[chatID]++
	return nil
}

type fixture struct {
	handler  http.Handler
	store    *state.Store
	registry *auth.Registry
	log      *activity.Log
	sender   *fakeSender
}

func newFixture(t *testing.T, withTelegram bool, ident identity.Provider) *fixture {
	t.Helper()
	seed, err := state.DefaultSeed()
	require.NoError(t, err)
	store := state.NewStore(seed)
	registry := auth.NewRegistry()
	log := activity.New(0)
	sender := &fakeSender{}
	var dispatcher *notify.Dispatcher
	if withTelegram {
		dispatcher = notify.NewDispatcher(sender, registry)
	} else {
		dispatcher = notify.NewDispatcher(nil, registry)
	}
	ctl := control.NewService(store, log, dispatcher)
	if ident == nil {
		ident = identity.NewHeaderProvider(identity.Headers{}, "", "", "")
	}
	router := NewRouter(store, ctl, registry, log, dispatcher, ident, "@SniprXBot")
	srv, err := NewServer(ServerConfig{Router: router})
	require.NoError(t, err)
	return &fixture{handler: srv.Handler(), store: store, registry: registry, log: log, sender: sender}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["telegram_bot"])
	assert.Equal(t, false, body["google_auth"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	f = newFixture(t, true, identity.NewHeaderProvider(identity.Headers{}, "id", "secret", "/oauth2/start"))
	body = decode(t, f.do(t, http.MethodGet, "/api/health", ""))
	assert.Equal(t, true, body["telegram_bot"])
	assert.Equal(t, true, body["google_auth"])
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(t, http.MethodPost, "/login", `{"login":12345678,"password":"pw","server":"ICMarkets-Live01","name":"Main"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])
	accounts := f.store.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Main", accounts[0].Name)
	assert.Equal(t, 10000.0, accounts[0].Balance)

	rec = f.do(t, http.MethodPost, "/login", `{"login":"99","server":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "password")

	rec = f.do(t, http.MethodPost, "/api/mt5/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradesAndSettings(t *testing.T) {
	f := newFixture(t, false, nil)

	body := decode(t, f.do(t, http.MethodGet, "/trades", ""))
	assert.Len(t, body["open_trades"], 2)
	assert.Len(t, body["closed_trades"], 2)

	rec := f.do(t, http.MethodPost, "/settings", `{"strategy":"ict","risk_settings":{"max_daily_loss":100}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	merged := decode(t, rec)
	assert.Equal(t, "ict", merged["strategy"])
	assert.Equal(t, true, merged["killzone"])
	risk := merged["risk_settings"].(map[string]any)
	assert.Equal(t, 100.0, risk["max_daily_loss"])
	assert.Equal(t, 0.0, risk["max_open_trades"], "nested objects are replaced wholesale")

	rec = f.do(t, http.MethodPost, "/settings", `{"unknown_key":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ict", f.store.Settings().Strategy)
}

func TestOpenCloseTrade(t *testing.T) {
	f := newFixture(t, true, nil)
	f.registry.Authorize(5)

	rec := f.do(t, http.MethodPost, "/trades/open", `{"ticket":777,"symbol":"EURUSD","type":"BUY","volume":0.1,"openPrice":1.1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/trades/close", `{"ticket":777,"closePrice":1.2,"profit":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, f.store.Trades().Closed, 3)
	assert.Equal(t, 1, f.sender.sent[5])

	rec = f.do(t, http.MethodPost, "/trades/close", `{"ticket":777,"closePrice":1.2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenTrade_AcceptsTradeShape(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(t, http.MethodPost, "/trades/open",
		`{"ticket":778,"symbol":"EURUSD","type":"BUY","volume":0.1,"openPrice":1.085,"currentPrice":1.0875,"profit":25}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	open := decode(t, rec)["open_trades"].([]any)
	last := open[len(open)-1].(map[string]any)
	assert.Equal(t, 778.0, last["ticket"])
	assert.Equal(t, 1.085, last["openPrice"])
	assert.Equal(t, 1.0875, last["currentPrice"])

	rec = f.do(t, http.MethodPost, "/trades/open", `{"ticket":779,"symbol":"EURUSD","type":"BUY","volume":0.1,"open_price":1.085}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.store.Trades().Open, len(open))
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, true, nil)
	f.registry.Authorize(1)
	f.registry.Authorize(2)

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/start", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Bot started", body["status"])
		assert.Equal(t, true, body["bot_status"].(map[string]any)["running"])
	}
	assert.Equal(t, 2, f.log.Len())
	assert.Equal(t, 2, f.sender.sent[1])
	assert.Equal(t, 2, f.sender.sent[2])

	rec := f.do(t, http.MethodPost, "/api/bot/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.store.Status().Running)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(f.do(t, http.MethodGet, "/activity-log", "").Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "Bot Stopped", entries[0]["title"])
}

func TestStart_WithoutTelegramStillWorks(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(t, http.MethodPost, "/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.store.Status().Running)
}

func TestAuthorizeNormalizesIDs(t *testing.T) {
	f := newFixture(t, false, nil)

	for _, body := range []string{`{"id":"7"}`, `{"id":7}`, `{"chatId":"007"}`, `{"id":"7.0"}`, `{"id":" 7 "}`} {
		rec := f.do(t, http.MethodPost, "/authorize", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
	}
	assert.Equal(t, []int64{7}, f.registry.List())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/authorize", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/authorize", `{"id":"abc"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/authorize", `{"id":7.5}`).Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/telegram/deauthorize", `{"chatId":7}`).Code)
	body := decode(t, f.do(t, http.MethodGet, "/authorized", ""))
	assert.Empty(t, body["chat_ids"])
}

func TestNotify(t *testing.T) {
	f := newFixture(t, true, nil)
	f.registry.Authorize(1)
	f.registry.Authorize(2)

	rec := f.do(t, http.MethodPost, "/notify", `{"type":"error","payload":{"error":"disk full"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 2.0, body["attempted"])
	assert.Equal(t, "Notification sent to 2 users", body["message"])

	rec = f.do(t, http.MethodPost, "/api/telegram/notify", `{"type":"bot_status","data":{"status":"Bot started"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/notify", `{"type":"weather","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Invalid notification type")
}

func TestNotify_NotConfigured(t *testing.T) {
	f := newFixture(t, false, nil)
	rec := f.do(t, http.MethodPost, "/notify", `{"type":"error","payload":{"error":"x"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestAuthEndpoints(t *testing.T) {
	f := newFixture(t, false, nil)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/auth/google", "").Code)

	body := decode(t, f.do(t, http.MethodGet, "/auth/status", ""))
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["user"])

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.Header.Set(identity.DefaultEmailHeader, "a@b.c")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	body = decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "a@b.c", body["user"].(map[string]any)["email"])

	f = newFixture(t, false, identity.NewHeaderProvider(identity.Headers{}, "id", "secret", "/oauth2/start"))
	rec = f.do(t, http.MethodGet, "/auth/google", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/oauth2/start", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	f := newFixture(t, false, nil)
	body := decode(t, f.do(t, http.MethodGet, "/logout", ""))
	assert.Equal(t, true, body["success"])

	req := httptest.NewRequest(http.MethodGet, "/api/logout", nil)
	req.Header.Set(identity.DefaultEmailHeader, "a@b.c")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := f.log.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "User Logout", entries[0].Title)
	assert.Equal(t, "a@b.c", entries[0].Details)
	assert.Equal(t, "anonymous", entries[1].Details)
}

func TestBotInfo(t *testing.T) {
	f := newFixture(t, false, nil)
	body := decode(t, f.do(t, http.MethodGet, "/telegram/bot-info", ""))
	assert.Equal(t, "@SniprXBot", body["bot_info"].(map[string]any)["username"])
}
