package translate

import "testing"

func TestIsUntranslated(t *testing.T) {
	var c Classifier
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \t ", true},
		{"failure marker", "[UNTRANSLATED]", true},
		{"failure marker embedded", "something [TRANSLATION_FAILED] here", true},
		{"pure chinese", "你好，世界。", false},
		{"chinese with proper noun", "我们用 Kubernetes 部署服务。", false},
		{"chinese with long english tail", "这个是 continuous integration pipeline 的配置。", false},
		{"english sentence", "This is a subtitle line.", true},
		{"short ascii", "OK!", false},
		{"acronym", "GPU", false},
		{"short name", "Robert!", false},
		{"ten ascii letters", "Goodbye now", true},
		{"numbers and punctuation only", "42 -- 17:30!", false},
		{"accented latin prose flagged", "Très bien, merci beaucoup mon ami.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsUntranslated(tt.text); got != tt.want {
				t.Errorf("IsUntranslated(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifierOverrides(t *testing.T) {
	// A stricter minimum length lets shortish English through.
	c := Classifier{MinAlpha: 20}
	if c.IsUntranslated("This is English.") {
		t.Error("13 letters should pass with MinAlpha=20")
	}
	if !c.IsUntranslated("This sentence has well over twenty letters in it.") {
		t.Error("long English prose should still be flagged")
	}

	// A higher ratio tolerates more ASCII mixed into non-CJK text.
	c = Classifier{ASCIIRatio: 0.99}
	if c.IsUntranslated("mostly ascii with one accent é here") {
		t.Error("ratio below 0.99 should pass")
	}
}

func TestClassifierDefaults(t *testing.T) {
	var c Classifier
	if c.ratio() != 0.7 {
		t.Errorf("default ratio = %v", c.ratio())
	}
	if c.minAlpha() != 8 {
		t.Errorf("default minAlpha = %d", c.minAlpha())
	}
}
