// Package srtfile implements parsing and serialization of SubRip (.srt)
// subtitle files. The parser is deliberately tolerant: a BOM, CRLF line
// endings, missing sequence numbers and stray blank lines are all accepted,
// since real-world SRT files (especially machine-transcribed ones) are
// rarely pristine.
package srtfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Block is a single subtitle cue. Index is assigned once at parse time and
// is the stable identifier used throughout the translation pipeline; only
// Lines may change afterwards.
type Block struct {
	// Index is the cue number (stable identifier).
	Index int
	// Start is the start timestamp, e.g. "00:01:02,345".
	Start string
	// End is the end timestamp.
	End string
	// Lines is the cue text, one element per display line.
	Lines []string
}

// Text returns the cue text flattened to a single line.
func (b *Block) Text() string {
	return strings.TrimSpace(strings.Join(b.Lines, " "))
}

var timingLine = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})`)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse reads SRT content from r and returns the cues in file order.
// Cues without a parseable sequence number are numbered by position
// (1-based), matching what most players do.
func Parse(r io.Reader) ([]*Block, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []*Block
	var cur *Block
	seen := 0

	flush := func() {
		if cur != nil && len(cur.Lines) > 0 {
			blocks = append(blocks, cur)
		}
		cur = nil
	}

	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimRight(line, "\r")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if m := timingLine.FindStringSubmatch(trimmed); m != nil {
			if cur == nil {
				seen++
				cur = &Block{Index: seen}
			}
			cur.Start = m[1]
			cur.End = m[2]
			continue
		}

		if cur == nil {
			// Expect a sequence number before the timing line; tolerate
			// anything else by numbering positionally.
			seen++
			cur = &Block{Index: seen}
			if n, err := strconv.Atoi(trimmed); err == nil {
				cur.Index = n
				continue
			}
			// Not a number: treat as text of an unnumbered cue.
			cur.Lines = append(cur.Lines, trimmed)
			continue
		}

		cur.Lines = append(cur.Lines, trimmed)
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading srt: %w", err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no subtitle blocks found")
	}
	return blocks, nil
}

// ParseFile parses the SRT file at path.
func ParseFile(path string) ([]*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	blocks, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return blocks, nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Write serializes blocks to w in standard SRT form.
func Write(w io.Writer, blocks []*Block) error {
	bw := bufio.NewWriter(w)
	for i, b := range blocks {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "%d\n", b.Index)
		fmt.Fprintf(bw, "%s --> %s\n", b.Start, b.End)
		for _, line := range b.Lines {
			fmt.Fprintln(bw, line)
		}
	}
	return bw.Flush()
}

// WriteFile serializes blocks to the file at path.
func WriteFile(path string, blocks []*Block) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, blocks); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
