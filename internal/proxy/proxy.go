package proxy

import (
	"math/rand"
	"net/http"
	"net/url"
	"sync"

	"github.com/williampepple1/salvage-yard-monitor/internal/config"
)

// Manager picks outbound proxies for the fetch transport
type Manager struct {
	Config *config.ProxyConfig

	mu   sync.Mutex
	rand *rand.Rand
}

// NewManager creates a new proxy manager
func NewManager(cfg *config.ProxyConfig, src rand.Source) *Manager {
	return &Manager{
		Config: cfg,
		rand:   rand.New(src),
	}
}

// Enabled reports whether any proxy should be used
func (m *Manager) Enabled() bool {
	return m != nil && m.Config != nil && m.Config.Enabled && len(m.Config.List) > 0
}

// Next returns the proxy for the next request, or nil when proxies are disabled
func (m *Manager) Next() (*url.URL, error) {
	if !m.Enabled() {
		return nil, nil
	}

	proxyStr := m.Config.List[0]
	if m.Config.Rotate && len(m.Config.List) > 1 {
		m.mu.Lock()
		proxyStr = m.Config.List[m.rand.Intn(len(m.Config.List))]
		m.mu.Unlock()
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, err
	}
	if m.Config.Auth.Username != "" && m.Config.Auth.Password != "" {
		proxyURL.User = url.UserPassword(m.Config.Auth.Username, m.Config.Auth.Password)
	}
	return proxyURL, nil
}

// ProxyFunc adapts Next for http.Transport.Proxy so rotation happens per request
func (m *Manager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return m.Next()
	}
}
