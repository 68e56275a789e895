// Package lockfile implements autosub.lock, a cache file that tracks MD5
// checksums of source subtitle text together with the translation produced
// for it. This enables incremental runs: re-translating the same file (or a
// re-cut with mostly identical cues) only sends new or changed blocks to
// the LLM provider, saving tokens and time.
//
// The lock file is stored alongside the input subtitle as autosub.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "autosub.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Entry caches one translated block.
type Entry struct {
	// Source is the MD5 hex digest of the source text.
	Source string `yaml:"source"`
	// Text is the translated text produced for that source.
	Text string `yaml:"text"`
}

// LockFile represents the autosub.lock file structure. Entries are keyed
// by target (the subtitle file, slash-separated) and then by block key.
type LockFile struct {
	Version int                         `yaml:"version"`
	Entries map[string]map[string]Entry `yaml:"entries"`

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version: Version,
		Entries: make(map[string]map[string]Entry),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Entries == nil {
		lf.Entries = make(map[string]map[string]Entry)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Cache operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// TargetKey builds a unique key for a target subtitle file.
func TargetKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// BlockKey builds a lock file key for a subtitle block.
func BlockKey(index int) string {
	return fmt.Sprintf("%d", index)
}

// Lookup returns the cached translation for a block whose source text is
// unchanged since the last run, and whether one exists.
func (lf *LockFile) Lookup(target, key, sourceContent string) (string, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Entries[target]
	if !ok {
		return "", false
	}
	entry, ok := keys[key]
	if !ok || entry.Source != Hash(sourceContent) || entry.Text == "" {
		return "", false
	}
	return entry.Text, true
}

// Store records a translation for a block after a successful run.
func (lf *LockFile) Store(target, key, sourceContent, translated string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Entries[target] == nil {
		lf.Entries[target] = make(map[string]Entry)
	}
	lf.Entries[target][key] = Entry{Source: Hash(sourceContent), Text: translated}
}

// Clean removes entries for blocks no longer present in the current file,
// preventing stale entries from accumulating.
func (lf *LockFile) Clean(target string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Entries[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveTarget removes all cached entries for a target.
func (lf *LockFile) RemoveTarget(target string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Entries, target)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total cached blocks.
func (lf *LockFile) Stats() (targets, blocks int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Entries)
	for _, m := range lf.Entries {
		blocks += len(m)
	}
	return
}

// Targets returns the sorted list of target keys.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Entries))
	for t := range lf.Entries {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, blocks := lf.Stats()
	if targets == 0 {
		return "empty"
	}
	return fmt.Sprintf("%d target(s), %d cached block(s)", targets, blocks)
}
