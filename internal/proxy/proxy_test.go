package proxy

import (
	"math/rand"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
)

func TestNextDisabled(t *testing.T) {
	m := NewManager(&config.ProxyConfig{Enabled: false, List: []string{"http://p1:8080"}}, rand.NewSource(1))
	u, err := m.Next()
	require.NoError(t, err)
	require.Nil(t, u)
	require.False(t, m.Enabled())
}

func TestNextWithAuth(t *testing.T) {
	cfg := &config.ProxyConfig{Enabled: true, List: []string{"http://p1:8080"}}
	cfg.Auth.Username = "user"
	cfg.Auth.Password = "pass"

	u, err := NewManager(cfg, rand.NewSource(1)).Next()
	require.NoError(t, err)
	require.Equal(t, "http://user:pass@p1:8080", u.String())
}

func TestProxyFuncRotates(t *testing.T) {
	cfg := &config.ProxyConfig{
		Enabled: true,
		Rotate:  true,
		List:    []string{"http://p1:8080", "http://p2:8080", "http://p3:8080"},
	}
	fn := NewManager(cfg, rand.NewSource(7)).ProxyFunc()

	seen := map[string]bool{}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	for i := 0; i < 50; i++ {
		u, err := fn(req)
		require.NoError(t, err)
		seen[u.Host] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestNextBadURL(t *testing.T) {
	_, err := NewManager(&config.ProxyConfig{Enabled: true, List: []string{"://bad"}}, rand.NewSource(1)).Next()
	require.Error(t, err)
}
