// Package domtest provides a scripted dom.Page for tests. No browser
// is involved: each Eval is routed to a handler function supplied by
// the test, and every call is recorded for inspection.
package domtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hazyhaar/relevel/dom"
)

// Call records one Eval invocation.
type Call struct {
	Fn   string
	Args []any
}

// Page is a scripted dom.Page.
type Page struct {
	// PageInfo is returned by Info.
	PageInfo dom.Info

	// Document is returned by HTML.
	Document string

	// Handler services Eval calls. The returned value is JSON-encoded
	// back to the caller. A nil Handler answers every call with null.
	Handler func(fn string, args []any) (any, error)

	mu    sync.Mutex
	calls []Call
}

func (p *Page) Eval(_ context.Context, fn string, args ...any) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Fn: fn, Args: args})
	p.mu.Unlock()

	if p.Handler == nil {
		return json.RawMessage("null"), nil
	}
	res, err := p.Handler(fn, args)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Page) HTML(context.Context) (string, error) {
	return p.Document, nil
}

func (p *Page) Info(context.Context) (dom.Info, error) {
	return p.PageInfo, nil
}

// Calls returns a copy of the recorded Eval calls.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}
