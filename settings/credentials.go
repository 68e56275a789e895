// Package settings provides persistent storage for autosub user settings:
// API keys for LLM providers that the user prefers not to keep in the
// environment.
//
// All settings are stored in the XDG data directory:
//
//	$XDG_DATA_HOME/autosub/  (default: ~/.local/share/autosub/)
//
// The auth.json file is a JSON object keyed by provider ID. File
// permissions are 0600 (owner read/write only).
//
// Lookup order for API keys (implemented by the provider package):
//  1. Provider-specific environment variables (highest priority)
//  2. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "autosub"
	fileName    = "auth.json"
)

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Info is the credential entry stored per provider in auth.json.
type Info struct {
	// Key is the API key.
	Key string `json:"key"`
	// BaseURL optionally overrides the provider's API base URL
	// (for OpenAI-compatible self-hosted endpoints).
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// APIKey returns the stored key for a provider, or "".
func (s Store) APIKey(providerID string) string {
	if info := s[providerID]; info != nil {
		return info.Key
	}
	return ""
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for autosub.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return make(Store)
	}

	if store == nil {
		return make(Store)
	}

	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the auth entry for a provider, or nil if not found.
func Get(providerID string) *Info {
	store := Load()
	return store[providerID]
}

// SetAPIKey stores an API key for a provider (upsert, preserving any
// stored base URL).
func SetAPIKey(providerID, key string) error {
	store := Load()

	info := &Info{Key: key}
	if existing := store[providerID]; existing != nil {
		info.BaseURL = existing.BaseURL
	}

	store[providerID] = info
	return Save(store)
}

// SetAPIKeyWithBaseURL stores an API key and custom base URL.
func SetAPIKeyWithBaseURL(providerID, key, baseURL string) error {
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL}
	return Save(store)
}

// Remove deletes credentials for a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil // Nothing to delete
	}
	delete(store, providerID)
	return Save(store)
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
