package rewrite

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/relevel/level"
)

// SummaryTarget bounds the requested summary length in words.
type SummaryTarget struct {
	MinWords int
	MaxWords int
}

func (t SummaryTarget) String() string {
	if t.MinWords <= 0 {
		return fmt.Sprintf("at most %d words", t.MaxWords)
	}
	return fmt.Sprintf("between %d and %d words", t.MinWords, t.MaxWords)
}

func rewriteSystemPrompt() string {
	return strings.Join([]string{
		"You rewrite text to a target CEFR difficulty level.",
		"Output only the rewritten text with no preamble and no echo of the input.",
		"Preserve proper names, locations, quoted spans, brackets, and parentheses verbatim.",
		"Keep the tone of the original text.",
	}, " ")
}

func rewriteUserPrompt(lvl level.Level, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the following text at CEFR level %s.\n", lvl)
	fmt.Fprintf(&b, "Style guideline: %s\n", level.Guideline(lvl))
	b.WriteString("\nText:\n")
	b.WriteString(text)
	return b.String()
}

func summarySystemPrompt() string {
	return strings.Join([]string{
		"You summarise web page content at a target CEFR difficulty level.",
		"Output only the summary with no preamble.",
		"Preserve names, addresses, and quoted spans verbatim.",
	}, " ")
}

func summaryUserPrompt(lvl level.Level, target SummaryTarget, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarise the following page content at CEFR level %s, %s.\n", lvl, target)
	fmt.Fprintf(&b, "Style guideline: %s\n", level.Guideline(lvl))
	b.WriteString("\nContent:\n")
	b.WriteString(text)
	return b.String()
}
