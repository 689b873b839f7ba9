package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sniprx/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultAddr     = ":8000"
	shutdownTimeout = 5 * time.Second
	requestIDHeader = "X-Request-ID"
)

// Server 承载控制面 HTTP 接口。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr   string
	Router *Router
}

// NewServer 构建 gin engine 并挂载路由。接口同时暴露在根路径与 /api 下。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("api http server requires a router")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	cfg.Router.Register(engine.Group("/"))
	cfg.Router.Register(engine.Group("/api"))
	cfg.Router.RegisterCompat(engine.Group("/api"))
	return &Server{addr: cfg.Addr, router: engine}, nil
}

// requestLogger 给每个请求分配 X-Request-ID（沿用上游传入的值）并记录耗时。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header(requestIDHeader, reqID)
		method := c.Request.Method
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s req=%s", method, path, c.Writer.Status(), c.ClientIP(), time.Since(start), reqID)
	}
}

// Handler 暴露底层 handler（测试使用）。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
