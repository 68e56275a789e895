package translate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/furunxungpt/autosub/srtfile"
)

// ---------------------------------------------------------------------------
// Oracle reply parsing
// ---------------------------------------------------------------------------

// The expected reply shape is one line per block: "[<index>] translated
// text". Models routinely add commentary, blank lines or markdown fencing
// around the payload, so anything that does not match is silently ignored.
var translatedLine = regexp.MustCompile(`^\[(\d+)\]\s*(.*)$`)

// parseTranslations scans raw reply text into an index → translation map.
// Lines with an empty remainder after the identifier are dropped: an empty
// "translation" must never overwrite existing content.
func parseTranslations(raw string) map[int]string {
	out := make(map[int]string)
	for _, line := range strings.Split(raw, "\n") {
		m := translatedLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		content := strings.TrimSpace(m[2])
		if content == "" {
			continue
		}
		out[idx] = content
	}
	return out
}

// applyTranslations writes parsed translations back onto their blocks,
// keyed by block index. Blocks without a parsed entry keep their previous
// lines, so a model answering only part of a chunk loses nothing.
// Returns the number of blocks updated.
func applyTranslations(blocks []*srtfile.Block, translations map[int]string) int {
	applied := 0
	for _, b := range blocks {
		if text, ok := translations[b.Index]; ok {
			b.Lines = []string{text}
			applied++
		}
	}
	return applied
}
