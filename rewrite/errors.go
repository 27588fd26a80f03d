package rewrite

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse signals that the upstream returned a completion that
// was blank after trimming.
var ErrEmptyResponse = errors.New("rewrite: empty completion from upstream")

// APIError is a non-success HTTP response from the rewriting service,
// carrying the upstream-provided message when one could be parsed.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rewrite: upstream status %d", e.Status)
	}
	return fmt.Sprintf("rewrite: upstream status %d: %s", e.Status, e.Message)
}
