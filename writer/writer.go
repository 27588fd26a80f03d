// Package writer replaces an element's text while guaranteeing its
// rendered typography is unchanged, and undoes such writes from the
// session's original-markup snapshot.
//
// A write runs in two page-side phases. mask.js captures the visual
// snapshot (computed typography subset, class list, inline style,
// allow-listed attributes) strictly before any mutation and dips
// opacity; after the mask delay, swap.js substitutes the text, restores
// the captured attributes, and forces the captured typography back onto
// the element's inline style. The snapshot round-trips through Go
// between the phases, so it is visible to logs and tests.
package writer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/relevel/dom"
	"github.com/hazyhaar/relevel/session"
)

//go:embed mask.js
var maskJS string

//go:embed swap.js
var swapJS string

//go:embed unmask.js
var unmaskJS string

//go:embed reset.js
var resetJS string

// DefaultMaskDelay is how long the opacity dip covers the swap.
const DefaultMaskDelay = 150 * time.Millisecond

// Writer performs visual-preserving text substitution.
type Writer struct {
	maskDelay time.Duration
	logger    *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithMaskDelay overrides the transition-masking delay. Zero makes
// writes deterministic for tests.
func WithMaskDelay(d time.Duration) Option {
	return func(w *Writer) { w.maskDelay = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// New creates a Writer.
func New(opts ...Option) *Writer {
	w := &Writer{
		maskDelay: DefaultMaskDelay,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

type maskResult struct {
	Gone     bool            `json:"gone"`
	Snapshot json.RawMessage `json:"snapshot"`
}

type swapResult struct {
	Mode string `json:"mode"` // textnode | carrier | wholesale | gone
}

// Apply replaces unit's text with newText. An element that left the
// document between capture and write is a no-op, not an error.
func (w *Writer) Apply(ctx context.Context, page dom.Page, unit session.TextUnit, newText string) error {
	raw, err := page.Eval(ctx, maskJS, unit.ID)
	if err != nil {
		return fmt.Errorf("writer: capture snapshot (unit %d): %w", unit.Index, err)
	}
	var mask maskResult
	if err := json.Unmarshal(raw, &mask); err != nil {
		return fmt.Errorf("writer: parse snapshot (unit %d): %w", unit.Index, err)
	}
	if mask.Gone {
		w.logger.Warn("writer: element gone before write", "unit", unit.Index, "id", unit.ID)
		return nil
	}

	if w.maskDelay > 0 {
		select {
		case <-time.After(w.maskDelay):
		case <-ctx.Done():
			w.unmask(ctx, page, unit, mask.Snapshot)
			return ctx.Err()
		}
	}

	raw, err = page.Eval(ctx, swapJS, unit.ID, newText, mask.Snapshot)
	if err != nil {
		w.unmask(ctx, page, unit, mask.Snapshot)
		return fmt.Errorf("writer: swap text (unit %d): %w", unit.Index, err)
	}
	var swap swapResult
	if err := json.Unmarshal(raw, &swap); err != nil {
		return fmt.Errorf("writer: parse swap result (unit %d): %w", unit.Index, err)
	}
	if swap.Mode == "gone" {
		w.logger.Warn("writer: element gone during write", "unit", unit.Index, "id", unit.ID)
		return nil
	}

	w.logger.Debug("writer: text applied",
		"unit", unit.Index, "mode", swap.Mode, "chars", len(newText))
	return nil
}

// unmask undoes the phase 1 opacity dip when the swap never ran, so a
// failed write leaves the element fully visible with its original
// text. Best effort, on a fresh deadline so a cancelled write context
// cannot strand the element dimmed.
func (w *Writer) unmask(ctx context.Context, page dom.Page, unit session.TextUnit, snapshot json.RawMessage) {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if _, err := page.Eval(uctx, unmaskJS, unit.ID, snapshot); err != nil {
		w.logger.Warn("writer: unmask after failed swap", "unit", unit.Index, "error", err)
	}
}

// Reset restores every unit's serialized markup to the value captured
// at selection time and clears all forced style properties. Unlike the
// forward path, this restores structure, not just appearance.
func (w *Writer) Reset(ctx context.Context, page dom.Page, units []session.TextUnit) error {
	type resetUnit struct {
		ID     string `json:"id"`
		Markup string `json:"markup"`
	}
	payload := make([]resetUnit, len(units))
	for i, u := range units {
		payload[i] = resetUnit{ID: u.ID, Markup: u.OriginalMarkup}
	}

	raw, err := page.Eval(ctx, resetJS, payload)
	if err != nil {
		return fmt.Errorf("writer: reset page: %w", err)
	}
	var restored int
	if err := json.Unmarshal(raw, &restored); err != nil {
		return fmt.Errorf("writer: parse reset result: %w", err)
	}

	w.logger.Info("writer: page reset", "units", len(units), "restored", restored)
	return nil
}
