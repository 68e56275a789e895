package translate

import (
	"fmt"
	"strings"

	"github.com/furunxungpt/autosub/srtfile"
)

// ---------------------------------------------------------------------------
// Prompt rendering
// ---------------------------------------------------------------------------

// Translation styles. Purely textual: the style is embedded into the
// prompt and causes no behavioral branching in the engine.
const (
	StyleCasual = "casual"
	StyleFormal = "formal"
	StyleEdgy   = "edgy"
)

// ValidStyle reports whether s is a recognized style name.
func ValidStyle(s string) bool {
	switch s {
	case StyleCasual, StyleFormal, StyleEdgy:
		return true
	}
	return false
}

var styleHints = map[string]string{
	StyleCasual: `- "casual": natural, spoken Chinese; contractions and fillers are fine.`,
	StyleFormal: `- "formal": precise, written register; accurate terminology.`,
	StyleEdgy:   `- "edgy": short, punchy, impactful phrasing.`,
}

// PromptConfig holds the static pieces of the translation prompt. The
// snippet fields are optional guidance extracted from the user's style
// guide; empty snippets fall back to one-line defaults.
type PromptConfig struct {
	Style      string
	Verbalizer string
	Humanizer  string
	Knowledge  string
	// Override, when set, replaces the whole template; the rendered
	// "[index] text" input block is appended after it.
	Override string
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

// renderInput flattens a chunk into the "[index] text" line protocol the
// output parser expects back.
func renderInput(blocks []*srtfile.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", b.Index, b.Text()))
	}
	return sb.String()
}

// BuildPrompt renders the oracle prompt for one chunk.
func BuildPrompt(blocks []*srtfile.Block, cfg PromptConfig) string {
	input := renderInput(blocks)

	if cfg.Override != "" {
		return cfg.Override + "\n\nINPUT BLOCK:\n" + input +
			"\nOUTPUT FORMAT (STRICT — one line per segment, no extra text):\n[ID] Translated Text\n...\n"
	}

	style := cfg.Style
	if !ValidStyle(style) {
		style = StyleCasual
	}

	return fmt.Sprintf(`You are an expert subtitle translator and editor.
Translate the following English subtitles into Simplified Chinese.

### STEP 1: VERBALIZATION (Tone & Persona)
%s
TARGET STYLE: %s
%s

### STEP 2: DOMAIN KNOWLEDGE & ASR CORRECTION
%s

### STEP 3: HUMANIZATION (De-AI)
%s

### STEP 4: CONTEXT AWARENESS
- Use surrounding lines to understand meaning, but translate each line for its own time slot.
- If a sentence is split across lines, translate the partial meaning naturally.

INPUT BLOCK:
%s
OUTPUT FORMAT (STRICT — one line per segment, no extra text):
[ID] Translated Text
...
`,
		orDefault(cfg.Verbalizer, "Translate naturally."),
		style,
		styleHints[style],
		orDefault(cfg.Knowledge, "Keep product and proper names in their original script."),
		orDefault(cfg.Humanizer, "Do not sound robotic. No translationese."),
		input)
}
