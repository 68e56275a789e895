package srtfile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:06,000
How are you
doing today?

3
00:00:07,250 --> 00:00:09,000
Goodbye.
`

func TestParseBasic(t *testing.T) {
	blocks, err := Parse(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	b := blocks[1]
	if b.Index != 2 {
		t.Errorf("expected index 2, got %d", b.Index)
	}
	if b.Start != "00:00:04,000" || b.End != "00:00:06,000" {
		t.Errorf("unexpected timing: %s --> %s", b.Start, b.End)
	}
	if len(b.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(b.Lines))
	}
	if got := b.Text(); got != "How are you doing today?" {
		t.Errorf("Text() = %q", got)
	}
}

func TestParseTolerant(t *testing.T) {
	t.Run("bom and crlf", func(t *testing.T) {
		input := "\uFEFF1\r\n00:00:01,000 --> 00:00:02,000\r\nHello.\r\n\r\n"
		blocks, err := Parse(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(blocks) != 1 || blocks[0].Text() != "Hello." {
			t.Errorf("unexpected result: %+v", blocks)
		}
	})

	t.Run("missing sequence numbers", func(t *testing.T) {
		input := "00:00:01,000 --> 00:00:02,000\nFirst.\n\n00:00:03,000 --> 00:00:04,000\nSecond.\n"
		blocks, err := Parse(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if blocks[0].Index != 1 || blocks[1].Index != 2 {
			t.Errorf("positional numbering failed: %d, %d", blocks[0].Index, blocks[1].Index)
		}
	})

	t.Run("dot millisecond separator", func(t *testing.T) {
		input := "1\n00:00:01.000 --> 00:00:02.000\nHi.\n"
		blocks, err := Parse(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if blocks[0].Start != "00:00:01.000" {
			t.Errorf("Start = %q", blocks[0].Start)
		}
	})

	t.Run("extra blank lines", func(t *testing.T) {
		input := "\n\n1\n00:00:01,000 --> 00:00:02,000\nHi.\n\n\n\n2\n00:00:03,000 --> 00:00:04,000\nBye.\n\n"
		blocks, err := Parse(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(blocks) != 2 {
			t.Errorf("expected 2 blocks, got %d", len(blocks))
		}
	})
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Error("expected an error for empty input")
	}
	if _, err := Parse(strings.NewReader("just some prose\nwithout timings")); err == nil {
		t.Error("expected an error for input without timing lines")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	blocks, err := Parse(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, blocks); err != nil {
		t.Fatalf("Write: %v", err)
	}

	again, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if len(again) != len(blocks) {
		t.Fatalf("round trip changed block count: %d != %d", len(again), len(blocks))
	}
	for i := range blocks {
		if again[i].Index != blocks[i].Index ||
			again[i].Start != blocks[i].Start ||
			again[i].End != blocks[i].End ||
			again[i].Text() != blocks[i].Text() {
			t.Errorf("block %d changed in round trip: %+v != %+v", i, again[i], blocks[i])
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.srt")

	blocks := []*Block{
		{Index: 1, Start: "00:00:01,000", End: "00:00:02,000", Lines: []string{"你好。"}},
		{Index: 2, Start: "00:00:03,000", End: "00:00:04,000", Lines: []string{"再见。"}},
	}
	if err := WriteFile(path, blocks); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(got) != 2 || got[0].Text() != "你好。" || got[1].Text() != "再见。" {
		t.Errorf("unexpected content: %+v", got)
	}
}
