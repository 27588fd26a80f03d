package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/relevel/summary"
)

// File saves summary artifacts into a directory, using each artifact's
// own filename. Progress events are ignored. This is the CLI's
// download collaborator.
type File struct {
	dir    string
	logger *slog.Logger
}

// NewFile creates a File sink writing into dir (created on demand).
func NewFile(dir string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{dir: dir, logger: logger}
}

func (f *File) SendProgress(context.Context, ProgressEvent) error { return nil }

func (f *File) SendArtifact(_ context.Context, art summary.Artifact) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("file sink: mkdir: %w", err)
	}
	path := filepath.Join(f.dir, art.Filename)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("file sink: write artifact: %w", err)
	}
	f.logger.Info("file sink: artifact saved", "path", path, "bytes", len(art.Data))
	return nil
}

func (f *File) Close() error { return nil }
