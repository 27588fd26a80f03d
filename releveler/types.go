package releveler

import "time"

// State is the orchestrator's coarse position in the operation
// lifecycle, exposed through Status.
type State string

const (
	StateIdle       State = "idle"
	StateSelecting  State = "selecting"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Outcome is what every operation returns to its caller. Failures are
// data, not Go errors: collaborators (CLI, HTTP, MCP) render the same
// structure regardless of transport.
type Outcome struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Operation string `json:"operation"`
	SessionID string `json:"session_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	PageTitle string `json:"page_title,omitempty"`
	Level     string `json:"level,omitempty"`

	// Rewrite counters.
	ElementsSelected  int `json:"elements_selected,omitempty"`
	ElementsRewritten int `json:"elements_rewritten,omitempty"`
	ElementsSkipped   int `json:"elements_skipped,omitempty"`
	ElementsFailed    int `json:"elements_failed,omitempty"`
	OriginalLength    int `json:"original_length,omitempty"`
	NewLength         int `json:"new_length,omitempty"`

	// Summarize results.
	SummaryWords     int    `json:"summary_words,omitempty"`
	ArtifactFilename string `json:"artifact_filename,omitempty"`

	// Reset counters.
	ElementsRestored int `json:"elements_restored,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
}

// Status is a point-in-time snapshot of the orchestrator.
type Status struct {
	State     State  `json:"state"`
	Busy      bool   `json:"busy"`
	SessionID string `json:"session_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	PageTitle string `json:"page_title,omitempty"`
	Units     int    `json:"units"`
	Level     string `json:"level,omitempty"`
}

func failure(op, url string, err error) Outcome {
	return Outcome{Operation: op, PageURL: url, Error: err.Error()}
}
