// Package browser manages the Chrome instance relevel drives pages
// through: connect to a remote instance or launch a local one, open
// tabs with stealth applied, and adapt Rod pages to the dom.Page
// contract the rest of the codebase consumes.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	Remote string

	// ResourceBlocking lists resource types to block on every tab
	// (images, fonts, media, stylesheets). Pages are driven for their
	// text, so heavy resources are dead weight.
	ResourceBlocking []string

	// Stealth applies bot-detection evasion to new tabs.
	Stealth bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start before opening tabs.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start connects to the remote Chrome or launches a local one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil {
		return nil
	}

	var wsURL string
	if m.cfg.Remote != "" {
		wsURL = m.cfg.Remote
	} else {
		m.lnch = launcher.New().Headless(true)
		url, err := m.lnch.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch chrome: %w", err)
		}
		wsURL = url
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect %s: %w", wsURL, err)
	}

	m.browser = b
	m.cfg.Logger.Info("browser: connected", "remote", m.cfg.Remote != "")
	return nil
}

// Browser returns the active Rod browser, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close disconnects and, for a locally launched Chrome, kills it.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Warn("browser: close failed", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
	}
}
