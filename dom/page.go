// Package dom defines the narrow contract relevel needs from a live
// page. The production implementation is a Rod tab
// (releveler/internal/browser); tests use scripted fakes.
//
// Element handles never cross this boundary. Selection tags eligible
// elements with a data attribute inside the page, and every later
// operation resolves elements by that marker. An element removed from
// the document between selection and write simply fails to resolve.
package dom

import (
	"context"
	"encoding/json"
)

// Page evaluates JavaScript in a live document.
type Page interface {
	// Eval runs a JS function literal with the given arguments and
	// returns its JSON-serialised result.
	Eval(ctx context.Context, fn string, args ...any) (json.RawMessage, error)

	// HTML returns the document's serialised outer HTML.
	HTML(ctx context.Context) (string, error)

	// Info returns the page's current title and URL.
	Info(ctx context.Context) (Info, error)
}

// Info identifies the document a session operates on.
type Info struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
