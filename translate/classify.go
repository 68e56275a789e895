package translate

import (
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Untranslated classifier
// ---------------------------------------------------------------------------

// failureMarkers are explicit tokens a previous run or tool may have left
// in place of a translation.
var failureMarkers = []string{"[UNTRANSLATED]", "[TRANSLATION_FAILED]"}

// Classifier decides, post-hoc, whether a block's current text counts as
// successfully translated. It is a best-effort heuristic: the ratio and
// length cutoffs are tunable defaults with no deeper justification, and
// misclassification of unusual strings is a known limitation rather than a
// defect.
type Classifier struct {
	// ASCIIRatio is the fraction of alphabetic characters that may be
	// single-byte ASCII before text looks like untouched source prose.
	// Zero means the default of 0.7.
	ASCIIRatio float64
	// MinAlpha is the minimum alphabetic character count for the ratio
	// test to apply; shorter strings (acronyms, names) pass as translated.
	// Zero means the default of 8.
	MinAlpha int
}

func (c Classifier) ratio() float64 {
	if c.ASCIIRatio > 0 {
		return c.ASCIIRatio
	}
	return 0.7
}

func (c Classifier) minAlpha() int {
	if c.MinAlpha > 0 {
		return c.MinAlpha
	}
	return 8
}

// IsUntranslated reports whether text still needs translation.
// Decision order: empty text and failure markers are untranslated; any CJK
// ideograph means translated, even mixed with Latin substrings (proper
// nouns are expected to stay in the source script); otherwise mostly-ASCII
// prose of sufficient length is untranslated.
func (c Classifier) IsUntranslated(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	for _, marker := range failureMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return false
		}
	}

	alpha, ascii := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		alpha++
		if r < 128 {
			ascii++
		}
	}
	if alpha == 0 {
		return false
	}
	return float64(ascii)/float64(alpha) > c.ratio() && alpha >= c.minAlpha()
}
