// Package session holds the mutable state of one re-leveling session:
// the ordered set of selected text units and the original text/markup
// snapshot the reset path restores from.
//
// The session is an explicit object owned by the orchestrator, never
// package-level state. Exactly one session may be in flight per
// orchestrator; a second invocation is rejected with ErrBusy.
package session

import (
	"errors"
	"strings"
	"time"
)

// MinUnitChars is the capture threshold: an element whose trimmed text
// is not longer than this never becomes a unit.
const MinUnitChars = 25

var (
	// ErrBusy is returned when a rewrite or summarize is invoked while
	// another one is still in flight.
	ErrBusy = errors.New("session: operation already in progress")

	// ErrNoContent is returned when selection finds no eligible text.
	ErrNoContent = errors.New("session: no extractable text on page")
)

// TextUnit is one rewrite candidate: a block-level element captured at
// selection time.
type TextUnit struct {
	// Index is dense and zero-based; insertion order is document order.
	Index int `json:"index"`

	// ID is the data-relevel-id marker written into the page. It is a
	// non-owning handle: the unit does not control the element's
	// lifetime, and the element may be gone by write time.
	ID string `json:"id"`

	// OriginalText is the element's flattened text at capture time.
	OriginalText string `json:"original_text"`

	// OriginalMarkup is the element's serialised child markup at
	// capture time. Used only by reset.
	OriginalMarkup string `json:"original_markup"`

	// Tag is the element's tag name, kept for logging and history.
	Tag string `json:"tag,omitempty"`
}

// Rewritable reports whether the unit's text is long enough to be sent
// upstream during per-element rewriting (threshold 10, distinct from
// the capture threshold).
func (u TextUnit) Rewritable() bool {
	return len(strings.TrimSpace(u.OriginalText)) > 10
}

// Session is the per-page state between first selection and reset.
type Session struct {
	ID        string     `json:"id"`
	PageURL   string     `json:"page_url"`
	PageTitle string     `json:"page_title"`
	Units     []TextUnit `json:"units"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"started_at"`

	byID map[string]int
}

// New creates a session over the given units. Units must already be in
// document order with dense indices; sub-threshold units are dropped
// here as a final guard.
func New(id, pageURL, pageTitle string, units []TextUnit) *Session {
	kept := make([]TextUnit, 0, len(units))
	for _, u := range units {
		if len(strings.TrimSpace(u.OriginalText)) <= MinUnitChars {
			continue
		}
		u.Index = len(kept)
		kept = append(kept, u)
	}
	s := &Session{
		ID:        id,
		PageURL:   pageURL,
		PageTitle: pageTitle,
		Units:     kept,
		StartedAt: time.Now(),
	}
	s.reindex()
	return s
}

func (s *Session) reindex() {
	s.byID = make(map[string]int, len(s.Units))
	for i, u := range s.Units {
		s.byID[u.ID] = i
	}
}

// Unit returns the unit with the given marker ID.
func (s *Session) Unit(id string) (TextUnit, bool) {
	i, ok := s.byID[id]
	if !ok {
		return TextUnit{}, false
	}
	return s.Units[i], true
}

// Len returns the number of captured units.
func (s *Session) Len() int { return len(s.Units) }
