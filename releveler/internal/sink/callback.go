package sink

import (
	"context"

	"github.com/hazyhaar/relevel/summary"
)

// ProgressFunc is called for each progress event.
type ProgressFunc func(ctx context.Context, ev ProgressEvent) error

// ArtifactFunc is called for each artifact.
type ArtifactFunc func(ctx context.Context, art summary.Artifact) error

// Callback delivers events via Go function calls, the in-process path
// with zero serialisation. Any handler may be nil.
type Callback struct {
	onProgress ProgressFunc
	onArtifact ArtifactFunc
}

// NewCallback creates a Callback sink.
func NewCallback(onProgress ProgressFunc, onArtifact ArtifactFunc) *Callback {
	return &Callback{onProgress: onProgress, onArtifact: onArtifact}
}

func (c *Callback) SendProgress(ctx context.Context, ev ProgressEvent) error {
	if c.onProgress != nil {
		return c.onProgress(ctx, ev)
	}
	return nil
}

func (c *Callback) SendArtifact(ctx context.Context, art summary.Artifact) error {
	if c.onArtifact != nil {
		return c.onArtifact(ctx, art)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
