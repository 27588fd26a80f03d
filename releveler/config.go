package releveler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/relevel/dom"
	"github.com/hazyhaar/relevel/releveler/internal/browser"
	"github.com/hazyhaar/relevel/releveler/internal/config"
)

// FileConfig is the YAML configuration shape, re-exported across the
// internal boundary for the CLI.
type FileConfig = config.Config

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*FileConfig, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns the all-defaults configuration.
func DefaultConfig() *FileConfig {
	var c config.Config
	c.ApplyDefaults()
	return &c
}

// BrowserPager opens pages through a managed Chrome instance. It is
// the production Pager.
type BrowserPager struct {
	mgr        *browser.Manager
	navTimeout time.Duration
}

// NewBrowserPager connects to (or launches) Chrome per cfg.Browser.
func NewBrowserPager(ctx context.Context, cfg *FileConfig, logger *slog.Logger) (*BrowserPager, error) {
	mgr := browser.NewManager(browser.Config{
		Remote:           cfg.Browser.Remote,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          cfg.Browser.Stealth,
		Logger:           logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	return &BrowserPager{mgr: mgr, navTimeout: cfg.Browser.NavigateTimeout}, nil
}

// OpenPage opens a tab and navigates it to url.
func (p *BrowserPager) OpenPage(ctx context.Context, url string) (dom.Page, error) {
	return browser.OpenTab(ctx, p.mgr, url, p.navTimeout)
}

// Close shuts the browser down.
func (p *BrowserPager) Close() {
	p.mgr.Close()
}
