package translate

import (
	"testing"

	"github.com/furunxungpt/autosub/srtfile"
)

func TestParseTranslations(t *testing.T) {
	raw := "Sure! Here are the translations:\n" +
		"[1] 你好。\n" +
		"  [2]   世界。  \n" +
		"\n" +
		"[3]\n" +
		"[4] \n" +
		"not a translation line\n" +
		"[x] also not one\n" +
		"[5] 再见。\n" +
		"```\n"

	got := parseTranslations(raw)
	want := map[int]string{1: "你好。", 2: "世界。", 5: "再见。"}
	if len(got) != len(want) {
		t.Fatalf("parsed %d entries, want %d: %v", len(got), len(want), got)
	}
	for idx, text := range want {
		if got[idx] != text {
			t.Errorf("entry %d = %q, want %q", idx, got[idx], text)
		}
	}
}

func TestParseTranslationsEmptyReply(t *testing.T) {
	if got := parseTranslations(""); len(got) != 0 {
		t.Errorf("empty reply parsed to %v", got)
	}
	if got := parseTranslations("I cannot translate this."); len(got) != 0 {
		t.Errorf("refusal parsed to %v", got)
	}
}

func TestApplyTranslations(t *testing.T) {
	blocks := []*srtfile.Block{
		{Index: 6, Lines: []string{"Hello."}},
		{Index: 7, Lines: []string{"How are", "you?"}},
		{Index: 8, Lines: []string{"Goodbye."}},
	}

	// The model answered only part of the chunk; block 7 must keep its
	// original lines.
	applied := applyTranslations(blocks, map[int]string{6: "你好。", 8: "再见。", 99: "多余的"})
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
	if blocks[0].Text() != "你好。" {
		t.Errorf("block 6 = %q", blocks[0].Text())
	}
	if blocks[1].Text() != "How are you?" {
		t.Errorf("block 7 should be untouched, got %q", blocks[1].Text())
	}
	if len(blocks[1].Lines) != 2 {
		t.Errorf("block 7 line structure changed: %v", blocks[1].Lines)
	}
	if blocks[2].Text() != "再见。" {
		t.Errorf("block 8 = %q", blocks[2].Text())
	}
}
