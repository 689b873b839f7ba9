package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacts_DefaultHeaders(t *testing.T) {
	p := NewHeaderProvider(Headers{}, "", "", "")
	req := httptest.NewRequest("GET", "/auth/status", nil)
	assert.Equal(t, Facts{}, p.Facts(req))

	req.Header.Set(DefaultEmailHeader, "trader@example.com")
	req.Header.Set(DefaultUsernameHeader, "trader")
	facts := p.Facts(req)
	assert.True(t, facts.Authenticated)
	require.NotNil(t, facts.User)
	assert.Equal(t, "trader@example.com", facts.User.Email)
	assert.Equal(t, "trader", facts.User.Username)
}

func TestFacts_CustomHeaders(t *testing.T) {
	p := NewHeaderProvider(Headers{User: "X-Forwarded-User"}, "", "", "")
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(DefaultUserHeader, "ignored")
	assert.False(t, p.Facts(req).Authenticated)

	req.Header.Set("X-Forwarded-User", "42")
	assert.Equal(t, "42", p.Facts(req).User.ID)
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewHeaderProvider(Headers{}, "id", "", "").Configured())
	assert.False(t, NewHeaderProvider(Headers{}, " ", "secret", "").Configured())
	p := NewHeaderProvider(Headers{}, "id", "secret", "/oauth2/start")
	assert.True(t, p.Configured())
	assert.Equal(t, "/oauth2/start", p.LoginURL())
}
