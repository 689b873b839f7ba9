// Package identity exposes the user facts forwarded by the authenticating
// reverse proxy. The control plane itself never verifies credentials.
package identity

import (
	"net/http"
	"strings"
)

const (
	DefaultUserHeader     = "X-Auth-Request-User"
	DefaultEmailHeader    = "X-Auth-Request-Email"
	DefaultUsernameHeader = "X-Auth-Request-Preferred-Username"
)

// User 是上游透传的用户信息。
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Facts 是 /auth/status 的返回体。
type Facts struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}

// Provider 从请求中提取身份事实。
type Provider interface {
	Facts(r *http.Request) Facts
	Configured() bool
	LoginURL() string
}

// Headers 配置上游使用的头名称。
type Headers struct {
	User     string
	Email    string
	Username string
}

// HeaderProvider 读取反向代理注入的请求头。
type HeaderProvider struct {
	headers      Headers
	clientID     string
	clientSecret string
	loginURL     string
}

func NewHeaderProvider(h Headers, clientID, clientSecret, loginURL string) *HeaderProvider {
	if strings.TrimSpace(h.User) == "" {
		h.User = DefaultUserHeader
	}
	if strings.TrimSpace(h.Email) == "" {
		h.Email = DefaultEmailHeader
	}
	if strings.TrimSpace(h.Username) == "" {
		h.Username = DefaultUsernameHeader
	}
	return &HeaderProvider{
		headers:      h,
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		loginURL:     strings.TrimSpace(loginURL),
	}
}

func (p *HeaderProvider) Facts(r *http.Request) Facts {
	u := User{
		ID:       strings.TrimSpace(r.Header.Get(p.headers.User)),
		Email:    strings.TrimSpace(r.Header.Get(p.headers.Email)),
		Username: strings.TrimSpace(r.Header.Get(p.headers.Username)),
	}
	if u.ID == "" && u.Email == "" {
		return Facts{}
	}
	return Facts{Authenticated: true, User: &u}
}

// Configured 在 Google client id 与 secret 都配置时为 true。
func (p *HeaderProvider) Configured() bool {
	return p.clientID != "" && p.clientSecret != ""
}

func (p *HeaderProvider) LoginURL() string { return p.loginURL }
