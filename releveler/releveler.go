// Package releveler orchestrates re-leveling operations over live web
// pages: select the text-bearing elements, rewrite each one at the
// target CEFR level through the upstream model, and write the result
// back into the DOM, or produce a leveled summary artifact instead.
//
// One Releveler holds at most one active session. Operations are
// strictly sequential: a rewrite or summarize invoked while another is
// in flight fails with the busy error instead of queueing. Results
// cross the collaborator boundary as Outcome values, never as Go
// errors, so the CLI, HTTP, and MCP surfaces all render the same
// structure.
package releveler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/relevel/dom"
	"github.com/hazyhaar/relevel/history"
	"github.com/hazyhaar/relevel/idgen"
	"github.com/hazyhaar/relevel/level"
	"github.com/hazyhaar/relevel/releveler/internal/sink"
	"github.com/hazyhaar/relevel/rewrite"
	"github.com/hazyhaar/relevel/selector"
	"github.com/hazyhaar/relevel/session"
	"github.com/hazyhaar/relevel/summary"
	"github.com/hazyhaar/relevel/writer"
)

// ErrSessionBusy is the busy-guard error. An Outcome carrying its text
// means another operation held the slot.
var ErrSessionBusy = session.ErrBusy

// Pager opens live pages for the orchestrator to drive. The production
// implementation sits on the browser manager; tests supply scripted
// pages.
type Pager interface {
	OpenPage(ctx context.Context, url string) (dom.Page, error)
}

// Config assembles a Releveler. Pager is required; everything else has
// working defaults.
type Config struct {
	Pager Pager

	// Upstream configures the model client (base URL, model, caps).
	Upstream rewrite.Config

	// APIKey is the bearer credential forwarded to the upstream
	// service. It is never persisted.
	APIKey string

	// PacingDelay is inserted between per-element upstream calls.
	// Default 150ms; negative means none.
	PacingDelay time.Duration

	// UpstreamTimeout bounds each individual upstream call. Default 60s.
	UpstreamTimeout time.Duration

	// MaskDelay is handed to the writer. Negative means zero.
	MaskDelay time.Duration

	// SummaryFormat selects the artifact rendering (txt or pdf).
	SummaryFormat summary.Format

	// Sink receives progress events and summary artifacts. Nil drops
	// them.
	Sink sink.Sink

	// History, when set, records finished operations.
	History *history.Store

	// IDs generates session identifiers. Default: prefixed UUIDv7.
	IDs idgen.Generator

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.PacingDelay == 0 {
		c.PacingDelay = 150 * time.Millisecond
	}
	if c.PacingDelay < 0 {
		c.PacingDelay = 0
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 60 * time.Second
	}
	if c.SummaryFormat == "" {
		c.SummaryFormat = summary.FormatText
	}
	if c.IDs == nil {
		c.IDs = idgen.Prefixed("rlv_", idgen.UUIDv7())
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Releveler runs re-leveling operations. Create with New; safe for
// concurrent use, but concurrent operations are rejected, not queued.
type Releveler struct {
	cfg      Config
	selector *selector.Selector
	writer   *writer.Writer
	client   *rewrite.Client

	mu    sync.Mutex
	busy  bool
	state State
	page  dom.Page
	sess  *session.Session
	level level.Level
}

// New creates a Releveler.
func New(cfg Config) (*Releveler, error) {
	if cfg.Pager == nil {
		return nil, fmt.Errorf("releveler: Pager is required")
	}
	cfg.defaults()

	maskDelay := cfg.MaskDelay
	if maskDelay < 0 {
		maskDelay = 0
	}
	wopts := []writer.Option{writer.WithLogger(cfg.Logger)}
	if cfg.MaskDelay != 0 {
		wopts = append(wopts, writer.WithMaskDelay(maskDelay))
	}

	if cfg.Upstream.Logger == nil {
		cfg.Upstream.Logger = cfg.Logger
	}

	return &Releveler{
		cfg:      cfg,
		selector: selector.New(selector.WithLogger(cfg.Logger)),
		writer:   writer.New(wopts...),
		client:   rewrite.NewClient(cfg.Upstream),
		state:    StateIdle,
	}, nil
}

// acquire claims the single operation slot.
func (r *Releveler) acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return session.ErrBusy
	}
	r.busy = true
	return nil
}

func (r *Releveler) release(final State) {
	r.mu.Lock()
	r.busy = false
	r.state = final
	r.mu.Unlock()
}

func (r *Releveler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Rewrite re-levels every eligible element of the page at url to lvl.
// Invoking it again while the session for the same url is active reuses
// the captured units, so a level change does not re-scan the document.
func (r *Releveler) Rewrite(ctx context.Context, url string, lvl level.Level) Outcome {
	start := time.Now()
	if err := r.acquire(); err != nil {
		return failure("rewrite", url, err)
	}

	r.setState(StateSelecting)
	sess, page, err := r.ensureSession(ctx, url)
	if err != nil {
		r.release(StateFailed)
		out := failure("rewrite", url, err)
		out.Elapsed = time.Since(start)
		return out
	}

	r.setState(StateProcessing)
	out := Outcome{
		Operation:        "rewrite",
		SessionID:        sess.ID,
		PageURL:          sess.PageURL,
		PageTitle:        sess.PageTitle,
		Level:            lvl.String(),
		ElementsSelected: sess.Len(),
	}

	n := sess.Len()
	for i, unit := range sess.Units {
		r.progress(ctx, sess, "rewrite", 10+i*80/n)

		if !unit.Rewritable() {
			out.ElementsSkipped++
			continue
		}

		newText := r.rewriteUnit(ctx, unit, lvl)
		out.OriginalLength += len(unit.OriginalText)
		out.NewLength += len(newText)

		if err := r.writer.Apply(ctx, page, unit, newText); err != nil {
			r.cfg.Logger.Warn("releveler: unit write failed",
				"session", sess.ID, "unit", unit.Index, "error", err)
			out.ElementsFailed++
		} else {
			out.ElementsRewritten++
		}

		if r.cfg.PacingDelay > 0 && i < n-1 {
			select {
			case <-time.After(r.cfg.PacingDelay):
			case <-ctx.Done():
				out.Error = ctx.Err().Error()
				out.Elapsed = time.Since(start)
				r.release(StateFailed)
				r.record(ctx, out)
				return out
			}
		}
	}

	sess.Active = true
	r.mu.Lock()
	r.level = lvl
	r.mu.Unlock()

	r.progress(ctx, sess, "rewrite", 100)
	out.Success = true
	out.Elapsed = time.Since(start)
	r.release(StateCompleted)
	r.record(ctx, out)

	r.cfg.Logger.Info("releveler: rewrite complete",
		"session", sess.ID, "level", lvl,
		"rewritten", out.ElementsRewritten, "skipped", out.ElementsSkipped,
		"failed", out.ElementsFailed, "elapsed", out.Elapsed)
	return out
}

// rewriteUnit calls upstream under the per-call timeout. The client is
// fail-open, so this always returns usable text.
func (r *Releveler) rewriteUnit(ctx context.Context, unit session.TextUnit, lvl level.Level) string {
	uctx, cancel := context.WithTimeout(ctx, r.cfg.UpstreamTimeout)
	defer cancel()
	return r.client.Rewrite(uctx, r.cfg.APIKey, unit.OriginalText, lvl)
}

// Summarize produces a leveled summary artifact of the page at url.
// Unlike Rewrite this path is fail-closed: an upstream error fails the
// operation.
func (r *Releveler) Summarize(ctx context.Context, url string, lvl level.Level) Outcome {
	start := time.Now()
	if err := r.acquire(); err != nil {
		return failure("summarize", url, err)
	}

	r.setState(StateSelecting)
	sess, page, err := r.ensureSession(ctx, url)
	if err != nil {
		r.release(StateFailed)
		out := failure("summarize", url, err)
		out.Elapsed = time.Since(start)
		return out
	}

	r.setState(StateProcessing)
	out := Outcome{
		Operation: "summarize",
		SessionID: sess.ID,
		PageURL:   sess.PageURL,
		PageTitle: sess.PageTitle,
		Level:     lvl.String(),
	}
	r.progress(ctx, sess, "summarize", 10)

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return r.fail(ctx, out, start, fmt.Errorf("releveler: read page html: %w", err))
	}
	text, err := summary.ExtractText(pageHTML)
	if err != nil {
		return r.fail(ctx, out, start, err)
	}
	if strings.TrimSpace(text) == "" {
		return r.fail(ctx, out, start, session.ErrNoContent)
	}
	r.progress(ctx, sess, "summarize", 30)

	words := summary.WordCount(text)
	target := summary.TargetFor(words)

	uctx, cancel := context.WithTimeout(ctx, r.cfg.UpstreamTimeout)
	body, err := r.client.Summarize(uctx, r.cfg.APIKey, text, lvl, target)
	cancel()
	if err != nil {
		return r.fail(ctx, out, start, err)
	}
	r.progress(ctx, sess, "summarize", 80)

	title := sess.PageTitle
	if title == "" {
		title = summary.PageTitle(pageHTML)
	}
	art, err := summary.BuildArtifact(title, sess.PageURL, lvl, body, r.cfg.SummaryFormat, time.Now())
	if err != nil {
		return r.fail(ctx, out, start, err)
	}
	if r.cfg.Sink != nil {
		if err := r.cfg.Sink.SendArtifact(ctx, art); err != nil {
			r.cfg.Logger.Warn("releveler: artifact delivery failed",
				"session", sess.ID, "filename", art.Filename, "error", err)
		}
	}

	r.progress(ctx, sess, "summarize", 100)
	out.Success = true
	out.SummaryWords = summary.WordCount(body)
	out.ArtifactFilename = art.Filename
	out.Elapsed = time.Since(start)
	r.release(StateCompleted)
	r.record(ctx, out)

	r.cfg.Logger.Info("releveler: summarize complete",
		"session", sess.ID, "level", lvl,
		"source_words", words, "summary_words", out.SummaryWords,
		"artifact", art.Filename)
	return out
}

// Reset restores every captured element to its original markup and ends
// the session. With no session it is a successful no-op.
func (r *Releveler) Reset(ctx context.Context) Outcome {
	start := time.Now()
	if err := r.acquire(); err != nil {
		return failure("reset", "", err)
	}

	r.mu.Lock()
	sess, page := r.sess, r.page
	r.mu.Unlock()

	out := Outcome{Operation: "reset"}
	if sess == nil {
		out.Success = true
		out.Elapsed = time.Since(start)
		r.release(StateIdle)
		return out
	}

	out.SessionID = sess.ID
	out.PageURL = sess.PageURL
	if err := r.writer.Reset(ctx, page, sess.Units); err != nil {
		return r.fail(ctx, out, start, err)
	}
	out.ElementsRestored = sess.Len()

	r.mu.Lock()
	r.sess = nil
	r.mu.Unlock()

	r.progress(ctx, sess, "reset", 100)
	out.Success = true
	out.Elapsed = time.Since(start)
	r.release(StateIdle)
	r.record(ctx, out)

	r.cfg.Logger.Info("releveler: page reset", "session", sess.ID, "units", out.ElementsRestored)
	return out
}

// Status reports the current state without claiming the operation slot.
func (r *Releveler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{State: r.state, Busy: r.busy}
	if r.sess != nil {
		st.SessionID = r.sess.ID
		st.PageURL = r.sess.PageURL
		st.PageTitle = r.sess.PageTitle
		st.Units = r.sess.Len()
	}
	if r.level != "" {
		st.Level = r.level.String()
	}
	return st
}

// Close releases the current page. The browser and sinks are owned by
// the caller.
func (r *Releveler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closePageLocked()
}

// ensureSession returns the active session for url, selecting a fresh
// one when the url changed or nothing is captured yet.
func (r *Releveler) ensureSession(ctx context.Context, url string) (*session.Session, dom.Page, error) {
	r.mu.Lock()
	if r.sess != nil && r.sess.PageURL == url && r.page != nil {
		sess, page := r.sess, r.page
		r.mu.Unlock()
		r.cfg.Logger.Debug("releveler: reusing session", "session", sess.ID, "units", sess.Len())
		return sess, page, nil
	}
	r.closePageLocked()
	r.sess = nil
	r.mu.Unlock()

	page, err := r.cfg.Pager.OpenPage(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("releveler: open page: %w", err)
	}

	units, err := r.selector.Select(ctx, page)
	if err != nil {
		return nil, nil, err
	}
	if len(units) == 0 {
		return nil, nil, session.ErrNoContent
	}

	info, err := page.Info(ctx)
	if err != nil {
		r.cfg.Logger.Warn("releveler: page info unavailable", "url", url, "error", err)
		info = dom.Info{URL: url}
	}

	sess := session.New(r.cfg.IDs(), url, info.Title, units)
	r.mu.Lock()
	r.sess = sess
	r.page = page
	r.mu.Unlock()

	r.cfg.Logger.Info("releveler: session started",
		"session", sess.ID, "url", url, "units", sess.Len())
	return sess, page, nil
}

func (r *Releveler) closePageLocked() {
	if c, ok := r.page.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			r.cfg.Logger.Warn("releveler: close page failed", "error", err)
		}
	}
	r.page = nil
}

func (r *Releveler) progress(ctx context.Context, sess *session.Session, op string, percent int) {
	if r.cfg.Sink == nil {
		return
	}
	ev := sink.ProgressEvent{
		SessionID: sess.ID,
		Operation: op,
		PageURL:   sess.PageURL,
		Percent:   percent,
	}
	if err := r.cfg.Sink.SendProgress(ctx, ev); err != nil {
		r.cfg.Logger.Debug("releveler: progress delivery failed", "percent", percent, "error", err)
	}
}

func (r *Releveler) fail(ctx context.Context, out Outcome, start time.Time, err error) Outcome {
	out.Error = err.Error()
	out.Elapsed = time.Since(start)
	r.release(StateFailed)
	r.record(ctx, out)
	r.cfg.Logger.Error("releveler: operation failed",
		"operation", out.Operation, "session", out.SessionID, "error", err)
	return out
}

func (r *Releveler) record(ctx context.Context, out Outcome) {
	if r.cfg.History == nil {
		return
	}
	if err := r.cfg.History.Record(ctx, history.Entry{
		SessionID:         out.SessionID,
		Operation:         out.Operation,
		PageURL:           out.PageURL,
		PageTitle:         out.PageTitle,
		Level:             out.Level,
		Success:           out.Success,
		Error:             out.Error,
		ElementsSelected:  out.ElementsSelected,
		ElementsRewritten: out.ElementsRewritten,
		SummaryWords:      out.SummaryWords,
		Elapsed:           out.Elapsed,
	}); err != nil {
		r.cfg.Logger.Warn("releveler: history record failed", "error", err)
	}
}
