package rewrite

import (
	"strings"
	"unicode/utf8"
)

// Anti-echo thresholds. The model sometimes appends or repeats its
// input after the rewrite; these drive the best-effort cleanup that
// strips such repetitions.
const (
	// minEchoLen: inputs this short are never treated as echoes —
	// short phrases legitimately survive a rewrite unchanged.
	minEchoLen = 15

	// tailOverlapRatio: minimum character agreement between the
	// output's tail and a prefix of the input for the tail to be cut.
	tailOverlapRatio = 0.80
)

// stripEcho removes an accidental repetition of cleanInput from output.
// Best-effort: it never empties the output, and it never touches an
// output whose length equals the input's (a rewrite that degenerated
// to a pure echo is returned as-is).
func stripEcho(output, cleanInput string) string {
	if len(cleanInput) <= minEchoLen {
		return output
	}
	if len(output) == len(cleanInput) {
		return output
	}

	cleaned := output

	// Verbatim embedded copy: drop the first occurrence.
	if len(cleaned) > len(cleanInput) {
		if i := strings.Index(cleaned, cleanInput); i >= 0 {
			cleaned = strings.TrimSpace(cleaned[:i] + cleaned[i+len(cleanInput):])
		}
	}

	// Approximate tail echo: the output ends with something close to a
	// large prefix of the input.
	if cut := tailEchoStart(cleaned, cleanInput); cut >= 0 {
		cleaned = strings.TrimSpace(cleaned[:cut])
	}

	if cleaned == "" {
		return strings.TrimSpace(output)
	}
	return cleaned
}

// tailEchoStart returns the earliest index in output where the
// remaining tail matches a prefix of input at >= tailOverlapRatio
// character agreement, or -1. Only tails longer than minEchoLen are
// considered, so a short coincidental match never truncates.
func tailEchoStart(output, input string) int {
	for i := 0; i < len(output)-minEchoLen; i++ {
		tail := output[i:]
		n := len(tail)
		if n > len(input) {
			continue
		}
		match := 0
		for j := 0; j < n; j++ {
			if tail[j] == input[j] {
				match++
			}
		}
		if float64(match)/float64(n) >= tailOverlapRatio {
			return i
		}
	}
	return -1
}

// normalize produces the "clean text" used both for the prompt and for
// echo comparison: internal whitespace runs collapsed to single spaces,
// trimmed, capped at maxChars.
func normalize(text string, maxChars int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if maxChars > 0 && len(clean) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(clean[cut]) {
			cut--
		}
		clean = strings.TrimSpace(clean[:cut])
	}
	return clean
}
