package releveler

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/relevel/releveler/internal/config"
	"github.com/hazyhaar/relevel/releveler/internal/sink"
)

// Re-exports so callers outside the internal boundary can assemble
// sinks.
type (
	Sink          = sink.Sink
	ProgressEvent = sink.ProgressEvent
	ProgressFunc  = sink.ProgressFunc
	ArtifactFunc  = sink.ArtifactFunc
)

// Sink constructors.
var (
	NewStdoutSink   = sink.NewStdout
	NewCallbackSink = sink.NewCallback
	NewFileSink     = sink.NewFile
)

// NewWebhookSink posts progress and artifacts to url.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewSinkRouter fans out to all given sinks.
func NewSinkRouter(logger *slog.Logger, sinks ...Sink) Sink {
	return sink.NewRouter(logger, sinks...)
}

// BuildSinks assembles the sink router described by the config's sinks
// list, plus a file sink when an artifact directory is configured.
func BuildSinks(cfg *config.Config, logger *slog.Logger) (Sink, error) {
	var sinks []Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(nil))
		case "webhook":
			if sc.URL == "" {
				return nil, fmt.Errorf("releveler: webhook sink needs a url")
			}
			sinks = append(sinks, sink.NewWebhook(sc.URL, sink.WithWebhookLogger(logger)))
		case "file":
			if sc.Dir == "" {
				return nil, fmt.Errorf("releveler: file sink needs a dir")
			}
			sinks = append(sinks, sink.NewFile(sc.Dir, logger))
		default:
			return nil, fmt.Errorf("releveler: unknown sink type %q", sc.Type)
		}
	}
	if cfg.Summary.ArtifactDir != "" {
		sinks = append(sinks, sink.NewFile(cfg.Summary.ArtifactDir, logger))
	}
	return sink.NewRouter(logger, sinks...), nil
}
