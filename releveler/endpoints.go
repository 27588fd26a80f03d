package releveler

import (
	"context"
	"fmt"

	"github.com/hazyhaar/relevel/history"
	"github.com/hazyhaar/relevel/kit"
	"github.com/hazyhaar/relevel/level"
)

// OperationRequest is the shared request shape of the rewrite and
// summarize surfaces.
type OperationRequest struct {
	URL   string `json:"url"`
	Level string `json:"level"`
}

// HistoryRequest asks for the newest recorded operations.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (r *Releveler) rewriteEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		op, lvl, err := operationArgs(req)
		if err != nil {
			return nil, err
		}
		return r.Rewrite(ctx, op.URL, lvl), nil
	}
}

func (r *Releveler) summarizeEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		op, lvl, err := operationArgs(req)
		if err != nil {
			return nil, err
		}
		return r.Summarize(ctx, op.URL, lvl), nil
	}
}

func (r *Releveler) resetEndpoint() kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		return r.Reset(ctx), nil
	}
}

func (r *Releveler) statusEndpoint() kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return r.Status(), nil
	}
}

func (r *Releveler) historyEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		if r.cfg.History == nil {
			return []history.Entry{}, nil
		}
		limit := 0
		if hr, ok := req.(*HistoryRequest); ok {
			limit = hr.Limit
		}
		return r.cfg.History.Recent(ctx, limit)
	}
}

func operationArgs(req any) (*OperationRequest, level.Level, error) {
	op, ok := req.(*OperationRequest)
	if !ok {
		return nil, "", fmt.Errorf("releveler: unexpected request type %T", req)
	}
	if op.URL == "" {
		return nil, "", fmt.Errorf("releveler: url is required")
	}
	lvl, err := level.Parse(op.Level)
	if err != nil {
		return nil, "", err
	}
	return op, lvl, nil
}
