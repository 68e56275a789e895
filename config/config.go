// Package config reads the optional .autosub.yaml configuration file.
//
// When an .autosub.yaml file exists next to the input subtitle (or in the
// directory given with --root), it supplies defaults for the translation
// run. Command-line flags always override file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".autosub.yaml"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .autosub.yaml structure.
type File struct {
	// Model is the LLM model identifier (selects the provider too).
	Model string `yaml:"model,omitempty"`
	// Style is the translation style: casual, formal or edgy.
	Style string `yaml:"style,omitempty"`
	// ChunkSize is the number of subtitle blocks per request.
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// Tier is the provider service tier: free, tier1 or other.
	// It selects the requests-per-minute budget and worker pool size.
	Tier string `yaml:"tier,omitempty"`
	// MaxPasses bounds the untranslated-retry loop.
	MaxPasses int `yaml:"max_passes,omitempty"`
	// StyleGuide is the path (relative to the config file) of the
	// markdown style guide holding humanizer rewrite rules.
	StyleGuide string `yaml:"style_guide,omitempty"`
	// ASCIIRatio overrides the classifier's ASCII-alpha ratio threshold.
	ASCIIRatio float64 `yaml:"ascii_ratio,omitempty"`
	// MinAlpha overrides the classifier's minimum alphabetic length.
	MinAlpha int `yaml:"min_alpha,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads and validates .autosub.yaml from the given directory.
// Returns nil if no config file exists.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f.Style = strings.ToLower(f.Style)
	f.Tier = strings.ToLower(f.Tier)
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if f.StyleGuide != "" && !filepath.IsAbs(f.StyleGuide) {
		f.StyleGuide = filepath.Join(rootDir, f.StyleGuide)
	}

	return &f, nil
}

func (f *File) validate() error {
	if f.Style != "" {
		switch strings.ToLower(f.Style) {
		case "casual", "formal", "edgy":
		default:
			return fmt.Errorf("invalid style %q (want casual, formal or edgy)", f.Style)
		}
	}
	if f.Tier != "" {
		switch strings.ToLower(f.Tier) {
		case "free", "tier1", "other":
		default:
			return fmt.Errorf("invalid tier %q (want free, tier1 or other)", f.Tier)
		}
	}
	if f.ChunkSize < 0 {
		return fmt.Errorf("invalid chunk_size %d", f.ChunkSize)
	}
	if f.MaxPasses < 0 {
		return fmt.Errorf("invalid max_passes %d", f.MaxPasses)
	}
	if f.ASCIIRatio < 0 || f.ASCIIRatio > 1 {
		return fmt.Errorf("invalid ascii_ratio %v (want 0..1)", f.ASCIIRatio)
	}
	if f.MinAlpha < 0 {
		return fmt.Errorf("invalid min_alpha %d", f.MinAlpha)
	}
	return nil
}
