// Package sink defines output backends for re-leveling progress and
// summary artifacts. Implementations deliver to stdout, webhooks, or
// in-process callbacks; the Router fans out to all of them.
package sink

import (
	"context"

	"github.com/hazyhaar/relevel/summary"
)

// ProgressEvent reports how far an operation has advanced. Percent is
// an integer 0-100 and is monotonically non-decreasing within one
// session.
type ProgressEvent struct {
	SessionID string `json:"session_id"`
	Operation string `json:"operation"` // rewrite | summarize | reset
	PageURL   string `json:"page_url"`
	Percent   int    `json:"percent"`
}

// Sink is the output interface.
type Sink interface {
	SendProgress(ctx context.Context, ev ProgressEvent) error
	SendArtifact(ctx context.Context, art summary.Artifact) error
	Close() error
}

// envelope wraps payloads for serialising sinks.
type envelope struct {
	Type string `json:"type"` // progress | artifact
	Data any    `json:"data"`
}
