package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/relevel/summary"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
// Artifact data is emitted base64-encoded by encoding/json's default
// []byte handling.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) SendProgress(_ context.Context, ev ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "progress", Data: ev})
}

func (s *Stdout) SendArtifact(_ context.Context, art summary.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "artifact", Data: art})
}

func (s *Stdout) Close() error { return nil }
