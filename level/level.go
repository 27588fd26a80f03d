// Package level defines CEFR proficiency levels and the style guideline
// each one maps to. The guideline strings are embedded verbatim into
// rewrite and summary prompts.
package level

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level, A1 (lowest) through C2 (highest).
type Level string

const (
	A1 Level = "A1"
	A2 Level = "A2"
	B1 Level = "B1"
	B2 Level = "B2"
	C1 Level = "C1"
	C2 Level = "C2"
)

// All lists the levels in ascending proficiency order.
var All = []Level{A1, A2, B1, B2, C1, C2}

// guidelines maps each level to the single style directive the model is
// asked to follow. One string per level, no composition.
var guidelines = map[Level]string{
	A1: "Use very simple, short sentences. Use only the most common everyday words. Avoid idioms, phrasal verbs, and subordinate clauses. Prefer present tense.",
	A2: "Use simple sentences with basic connectors (and, but, because). Use common vocabulary and simple past and future tenses. Avoid rare words and complex grammar.",
	B1: "Use clear sentences of moderate length. Everyday vocabulary with some abstract words is fine. Simple subordinate clauses are allowed. Avoid specialised jargon.",
	B2: "Use varied sentence structures and a broad general vocabulary. Some idiomatic language is acceptable. Keep arguments explicit and well signposted.",
	C1: "Use sophisticated structures, precise vocabulary, and natural idiomatic language. Implicit connections between ideas are acceptable.",
	C2: "Use fully natural, nuanced language with no simplification. Rich vocabulary, complex syntax, and subtle rhetorical devices are all appropriate.",
}

// Guideline returns the style directive for l. Unknown levels fall back
// to the B1 directive, the mid-scale default.
func Guideline(l Level) string {
	if g, ok := guidelines[l]; ok {
		return g
	}
	return guidelines[B1]
}

// Parse normalises and validates a level string ("b1", " B1 " → B1).
func Parse(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := guidelines[l]; !ok {
		return "", fmt.Errorf("level: unknown CEFR level %q", s)
	}
	return l, nil
}

// Valid reports whether l is one of the six CEFR levels.
func Valid(l Level) bool {
	_, ok := guidelines[l]
	return ok
}

func (l Level) String() string { return string(l) }
