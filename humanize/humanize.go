// Package humanize applies the final text-rewrite pass to translated
// subtitles: user-configured regex rules from a style guide, a small fixed
// set of de-AI substitutions, punctuation normalization to Chinese
// full-width forms, and whitespace collapsing. It is a pure transform with
// no network calls; the only failure mode is a malformed configured rule,
// which is skipped and reported, never fatal.
package humanize

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

// Rule is one pattern → replacement rewrite loaded from the style guide.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Rules is an ordered rewrite table plus the built-in cleanup steps.
type Rules struct {
	rules []Rule
}

// Len returns the number of configured rules.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// builtinReplacements removes the most common AI-flavored connectors.
// Applied after the configured rules so user rules can preempt them.
var builtinReplacements = [][2]string{
	{"此外，", "另外，"},
	{"总而言之，", "简单说，"},
	{"不可或缺", "很重要"},
	{"意味着", "说明"},
}

// punctuation maps ASCII marks to their full-width Chinese equivalents.
var punctuation = [][2]string{
	{",", "，"},
	{"?", "？"},
	{"!", "！"},
}

var spaceRun = regexp.MustCompile(`\s+`)

// Apply rewrites one line of text through the full pipeline. Safe to call
// on a nil *Rules (built-in steps still run).
func (r *Rules) Apply(text string) string {
	if r != nil {
		for _, rule := range r.rules {
			text = rule.Pattern.ReplaceAllString(text, rule.Replace)
		}
	}
	for _, rep := range builtinReplacements {
		text = strings.ReplaceAll(text, rep[0], rep[1])
	}
	for _, rep := range punctuation {
		text = strings.ReplaceAll(text, rep[0], rep[1])
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// ---------------------------------------------------------------------------
// Style guide loading
// ---------------------------------------------------------------------------

// LoadStyleGuide reads rewrite rules from a style-guide markdown file.
// Rules live in table rows of the form:
//
//	| name | `pattern` | `replacement` |
//
// Pattern and replacement use Go regexp syntax ($1 for group references);
// pipes inside either cell are escaped as \|. Header and separator rows
// are skipped. A missing file yields an empty rule set. Malformed patterns
// are skipped and reported through warn (may be nil).
func LoadStyleGuide(path string, warn func(format string, args ...any)) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}
		return nil, fmt.Errorf("opening style guide %s: %w", path, err)
	}
	defer f.Close()

	rules, err := parseStyleGuide(f, warn)
	if err != nil {
		return nil, fmt.Errorf("reading style guide %s: %w", path, err)
	}
	return &Rules{rules: rules}, nil
}

func parseStyleGuide(r io.Reader, warn func(format string, args ...any)) ([]Rule, error) {
	var rules []Rule
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "|") || isTableChrome(line) {
			continue
		}

		cells := splitCells(line)
		if len(cells) < 2 {
			continue
		}

		name := cells[0]
		pattern := unescapeCell(cells[1])
		replace := ""
		if len(cells) > 2 {
			replace = unescapeCell(cells[2])
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			if warn != nil {
				warn("Skipping style-guide rule %q: bad pattern %q: %v", name, pattern, err)
			}
			continue
		}
		rules = append(rules, Rule{Name: name, Pattern: re, Replace: replace})
	}
	return rules, sc.Err()
}

// isTableChrome reports whether a table row is a header or separator.
func isTableChrome(line string) bool {
	if strings.HasPrefix(line, "|---") || strings.HasPrefix(line, "| ---") {
		return true
	}
	low := strings.ToLower(line)
	return strings.HasPrefix(low, "| rule") || strings.HasPrefix(low, "| name") ||
		strings.HasPrefix(low, "| description")
}

// splitCells splits a markdown table row on pipes not escaped with a
// backslash, trimming each cell and dropping empties at the edges.
func splitCells(line string) []string {
	var cells []string
	var cur strings.Builder
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	cells = append(cells, cur.String())

	var out []string
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// unescapeCell strips markdown code ticks and restores escaped pipes.
func unescapeCell(cell string) string {
	cell = strings.Trim(cell, "`")
	return strings.ReplaceAll(cell, `\|`, "|")
}
