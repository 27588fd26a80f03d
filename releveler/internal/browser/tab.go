package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/relevel/dom"
)

// Tab wraps a Rod page and implements dom.Page.
type Tab struct {
	page *rod.Page
	url  string
}

// OpenTab creates a tab, navigates to pageURL, and waits for load.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, navTimeout time.Duration) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{page: page, url: pageURL}, nil
}

// Eval runs a JS function literal in the page and returns its
// JSON-serialised result.
func (t *Tab) Eval(ctx context.Context, fn string, args ...any) (json.RawMessage, error) {
	res, err := t.page.Context(ctx).Eval(fn, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	data, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("browser: serialise eval result: %w", err)
	}
	return data, nil
}

// HTML serialises the complete document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get document html: %w", err)
	}
	return res.Value.Str(), nil
}

// Info returns the tab's current title and URL.
func (t *Tab) Info(ctx context.Context) (dom.Info, error) {
	info, err := t.page.Context(ctx).Info()
	if err != nil {
		return dom.Info{}, fmt.Errorf("browser: page info: %w", err)
	}
	return dom.Info{Title: info.Title, URL: info.URL}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	return t.page.Close()
}
