// Package apihttp exposes the control plane over HTTP.
package apihttp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sniprx/internal/activity"
	"sniprx/internal/auth"
	"sniprx/internal/control"
	"sniprx/internal/identity"
	"sniprx/internal/logger"
	"sniprx/internal/notify"
	"sniprx/internal/pkg/errs"
	"sniprx/internal/state"

	"github.com/gin-gonic/gin"
)

// Router 持有各 handler 依赖。
type Router struct {
	Store       *state.Store
	Control     *control.Service
	Registry    *auth.Registry
	Activity    *activity.Log
	Notifier    *notify.Dispatcher
	Identity    identity.Provider
	BotUsername string
	now         func() time.Time
}

// NewRouter 构造 router；botUsername 需已带 @ 前缀。
func NewRouter(store *state.Store, ctl *control.Service, registry *auth.Registry, log *activity.Log,
	notifier *notify.Dispatcher, ident identity.Provider, botUsername string) *Router {
	return &Router{
		Store:       store,
		Control:     ctl,
		Registry:    registry,
		Activity:    log,
		Notifier:    notifier,
		Identity:    ident,
		BotUsername: botUsername,
		now:         time.Now,
	}
}

// Register 挂载控制面接口。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/health", r.handleHealth)
	group.GET("/accounts", r.handleAccounts)
	group.POST("/login", r.handleLogin)
	group.GET("/trades", r.handleTrades)
	group.POST("/trades/open", r.handleOpenTrade)
	group.POST("/trades/close", r.handleCloseTrade)
	group.GET("/settings", r.handleSettings)
	group.POST("/settings", r.handleUpdateSettings)
	group.GET("/status", r.handleStatus)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/activity-log", r.handleActivityLog)
	group.POST("/authorize", r.handleAuthorize)
	group.POST("/deauthorize", r.handleDeauthorize)
	group.GET("/authorized", r.handleAuthorized)
	group.POST("/notify", r.handleNotify)
	group.GET("/auth/status", r.handleAuthStatus)
	group.GET("/auth/google", r.handleAuthGoogle)
	group.GET("/logout", r.handleLogout)
	group.GET("/telegram/bot-info", r.handleBotInfo)
	group.POST("/user/google", r.handleGoogleUser)
}

// RegisterCompat 挂载旧版前端使用的路径别名。
func (r *Router) RegisterCompat(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/account", r.handleAccounts)
	group.GET("/mt5/accounts", r.handleAccounts)
	group.POST("/mt5/login", r.handleLogin)
	group.GET("/mt5/trades", r.handleTrades)
	group.GET("/bot/settings", r.handleSettings)
	group.POST("/bot/settings", r.handleUpdateSettings)
	group.GET("/bot/status", r.handleStatus)
	group.POST("/bot/start", r.handleStart)
	group.POST("/bot/stop", r.handleStop)
	group.POST("/telegram/authorize", r.handleAuthorize)
	group.POST("/telegram/deauthorize", r.handleDeauthorize)
	group.POST("/telegram/notify", r.handleNotify)
}

// writeError 按错误类别映射状态码；未知错误只返回通用文案，细节写日志。
func writeError(c *gin.Context, err error) {
	var ve *errs.ValidationError
	var ce *errs.ConfigurationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.As(err, &ce):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ce.Error()})
	default:
		logger.Errorf("[api] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bindError(c *gin.Context, err error) {
	logger.Warnf("[api] %s %s bind failed ip=%s err=%v", c.Request.Method, c.FullPath(), c.ClientIP(), err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Timestamp:   r.now().UTC(),
		TelegramBot: r.Notifier.Configured(),
		GoogleAuth:  r.Identity != nil && r.Identity.Configured(),
	})
}

func (r *Router) handleAccounts(c *gin.Context) {
	accounts := r.Store.Accounts()
	if accounts == nil {
		accounts = []state.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

func (r *Router) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	acct, err := r.Control.Login(c.Request.Context(), state.LoginRequest{
		Login:    rawText(req.Login),
		Password: req.Password,
		Server:   req.Server,
		Name:     req.Name,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Infof("[api] mt5 login=%s server=%s ip=%s", acct.Login, acct.Server, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true, "account": acct})
}

func (r *Router) handleTrades(c *gin.Context) {
	book := r.Store.Trades()
	if book.Open == nil {
		book.Open = []state.Trade{}
	}
	if book.Closed == nil {
		book.Closed = []state.Trade{}
	}
	c.JSON(http.StatusOK, book)
}

func (r *Router) handleOpenTrade(c *gin.Context) {
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	trade, err := r.Control.OpenTrade(c.Request.Context(), state.Trade{
		Ticket:       req.Ticket,
		Symbol:       req.Symbol,
		Type:         req.Type,
		Volume:       req.Volume,
		OpenPrice:    req.OpenPrice,
		CurrentPrice: req.CurrentPrice,
		Profit:       req.Profit,
		Swap:         req.Swap,
		OpenTime:     req.OpenTime,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trade": trade})
}

func (r *Router) handleCloseTrade(c *gin.Context) {
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	trade, err := r.Control.CloseTrade(c.Request.Context(), state.CloseRequest{
		Ticket:     req.Ticket,
		ClosePrice: req.ClosePrice,
		Profit:     req.Profit,
		CloseTime:  req.CloseTime,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trade": trade})
}

func (r *Router) handleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, r.Store.Settings())
}

func (r *Router) handleUpdateSettings(c *gin.Context) {
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		bindError(c, err)
		return
	}
	merged, err := r.Control.UpdateSettings(c.Request.Context(), partial)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.Store.Status())
}

func (r *Router) handleStart(c *gin.Context) {
	st := r.Control.Start(c.Request.Context())
	c.JSON(http.StatusOK, controlResponse{Success: true, Status: "Bot started", BotStatus: st})
}

func (r *Router) handleStop(c *gin.Context) {
	st := r.Control.Stop(c.Request.Context())
	c.JSON(http.StatusOK, controlResponse{Success: true, Status: "Bot stopped", BotStatus: st})
}

func (r *Router) handleActivityLog(c *gin.Context) {
	c.JSON(http.StatusOK, r.Activity.List())
}

func (r *Router) bindChatID(c *gin.Context) (int64, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return 0, false
	}
	id, err := auth.ParseRawID(firstPresent(req.ID, req.ChatID))
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	return id, true
}

func (r *Router) handleAuthorize(c *gin.Context) {
	id, ok := r.bindChatID(c)
	if !ok {
		return
	}
	r.Registry.Authorize(id)
	logger.Infof("[api] chat %d authorized ip=%s", id, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) handleDeauthorize(c *gin.Context) {
	id, ok := r.bindChatID(c)
	if !ok {
		return
	}
	r.Registry.Deauthorize(id)
	logger.Infof("[api] chat %d deauthorized ip=%s", id, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) handleAuthorized(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"chat_ids": r.Registry.List()})
}

func (r *Router) handleNotify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := r.Notifier.Notify(c.Request.Context(), req.Type, firstPresent(req.Payload, req.Data))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"attempted": res.Attempted,
		"delivered": res.Delivered,
		"message":   fmt.Sprintf("Notification sent to %d users", res.Delivered),
	})
}

func (r *Router) handleAuthStatus(c *gin.Context) {
	if r.Identity == nil {
		c.JSON(http.StatusOK, identity.Facts{})
		return
	}
	c.JSON(http.StatusOK, r.Identity.Facts(c.Request))
}

func (r *Router) handleAuthGoogle(c *gin.Context) {
	if r.Identity == nil || !r.Identity.Configured() {
		writeError(c, &errs.ConfigurationError{Component: "google oauth", Hint: "set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET"})
		return
	}
	c.Redirect(http.StatusFound, r.Identity.LoginURL())
}

// handleLogout 会话由上游代理维护，这里只记录活动。
func (r *Router) handleLogout(c *gin.Context) {
	details := "anonymous"
	if r.Identity != nil {
		if facts := r.Identity.Facts(c.Request); facts.User != nil {
			details = facts.User.Email
			if details == "" {
				details = facts.User.ID
			}
		}
	}
	r.Activity.Append(activity.Entry{Type: "auth", Title: "User Logout", Details: details, Tag: "auth"})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (r *Router) handleBotInfo(c *gin.Context) {
	name := strings.TrimSpace(r.BotUsername)
	if name != "" && !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bot_info": gin.H{"username": name}})
}

// handleGoogleUser 接收前端登录成功后的用户信息，只做记录。
func (r *Router) handleGoogleUser(c *gin.Context) {
	var req googleUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(c, errs.Missing("email"))
		return
	}
	logger.Infof("[api] user signed in email=%s name=%s", req.Email, req.Name)
	r.Activity.Append(activity.Entry{Type: "auth", Title: "User Login", Details: req.Email, Tag: "auth"})
	c.JSON(http.StatusOK, gin.H{"success": true})
}
