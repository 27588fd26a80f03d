// Package summary implements the whole-page summarization path: it
// flattens the live document into model-ready text, picks the target
// summary length, and packages the result into a downloadable artifact.
package summary

import (
	"strings"

	"github.com/hazyhaar/relevel/rewrite"
)

// longFormThreshold is the source word count above which a long-form
// summary is requested.
const longFormThreshold = 500

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// TargetFor picks the summary length for a source of the given word
// count: at most 100 words for short pages, 500-600 words long-form.
func TargetFor(sourceWords int) rewrite.SummaryTarget {
	if sourceWords > longFormThreshold {
		return rewrite.SummaryTarget{MinWords: 500, MaxWords: 600}
	}
	return rewrite.SummaryTarget{MaxWords: 100}
}
