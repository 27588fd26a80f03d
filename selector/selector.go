// Package selector finds the ordered set of text-bearing elements
// eligible for re-leveling.
//
// The structural work runs inside the page (select.js): a fixed
// allow-list of block tags plus generic containers without block
// descendants, minus invisible elements, navigation/boilerplate
// regions, and interactive elements. Survivors are tagged with a
// data-relevel-id marker so later writes resolve elements without
// holding node references across the boundary. The Go side re-checks
// the length threshold and assigns dense indices.
package selector

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/relevel/dom"
	"github.com/hazyhaar/relevel/session"
)

//go:embed select.js
var selectJS string

// Selector scans live documents.
type Selector struct {
	minChars int
	logger   *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithMinChars overrides the capture threshold. Default:
// session.MinUnitChars.
func WithMinChars(n int) Option {
	return func(s *Selector) { s.minChars = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// New creates a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{
		minChars: session.MinUnitChars,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select scans page and returns the eligible units in document order
// with dense zero-based indices. Idempotent on an unchanged DOM:
// markers written by a previous run are reused, so two consecutive
// calls yield identical sequences.
func (s *Selector) Select(ctx context.Context, page dom.Page) ([]session.TextUnit, error) {
	raw, err := page.Eval(ctx, selectJS, s.minChars)
	if err != nil {
		return nil, fmt.Errorf("selector: scan page: %w", err)
	}

	var found []struct {
		ID     string `json:"id"`
		Tag    string `json:"tag"`
		Text   string `json:"text"`
		Markup string `json:"markup"`
	}
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, fmt.Errorf("selector: parse scan result: %w", err)
	}

	units := make([]session.TextUnit, 0, len(found))
	for _, f := range found {
		// The page already filtered on length; guard again so a
		// misbehaving document cannot smuggle short units in.
		if len(strings.TrimSpace(f.Text)) <= s.minChars {
			continue
		}
		units = append(units, session.TextUnit{
			Index:          len(units),
			ID:             f.ID,
			Tag:            f.Tag,
			OriginalText:   f.Text,
			OriginalMarkup: f.Markup,
		})
	}

	s.logger.Debug("selector: scan complete",
		"candidates", len(found), "units", len(units))
	return units, nil
}
