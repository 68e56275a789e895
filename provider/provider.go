// Package provider maps model identifiers to LLM API providers and their
// HTTP dialects, and resolves API credentials.
//
// Routing is data-driven: a declarative table of (substring, provider ID)
// pairs is scanned in order and the first match wins. Adding a provider
// means one entry in the table and one in Defaults().
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/furunxungpt/autosub/settings"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderMoonshot    = "moonshot"
	ProviderDashScope   = "dashscope"
	ProviderZhipu       = "zhipu"
	ProviderDeepSeek    = "deepseek"
	ProviderSiliconFlow = "siliconflow"
)

// ---------------------------------------------------------------------------
// Dialects
// ---------------------------------------------------------------------------

// Dialect identifies the HTTP request/response shape a provider speaks.
type Dialect int

const (
	// DialectOpenAI: POST {base}/chat/completions with Bearer auth;
	// reply text at choices[0].message.content.
	DialectOpenAI Dialect = iota
	// DialectGemini: POST {base}/v1beta/models/{model}:generateContent with
	// x-goog-api-key; reply text at candidates[0].content.parts[0].text.
	DialectGemini
)

// ---------------------------------------------------------------------------
// Provider records
// ---------------------------------------------------------------------------

// Provider holds the static configuration for one LLM API provider.
type Provider struct {
	// ID is the provider identifier (gemini, openai, moonshot, ...).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// Dialect is the HTTP API shape.
	Dialect Dialect
	// KeyEnvs are the environment variables checked for the API key,
	// in priority order.
	KeyEnvs []string
	// BaseEnv optionally names an environment variable overriding BaseURL.
	BaseEnv string
}

// Defaults returns the built-in provider definitions.
func Defaults() map[string]Provider {
	return map[string]Provider{
		ProviderGemini: {
			ID:      ProviderGemini,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Dialect: DialectGemini,
			KeyEnvs: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		},
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Dialect: DialectOpenAI,
			KeyEnvs: []string{"OPENAI_API_KEY"},
			BaseEnv: "OPENAI_API_BASE",
		},
		ProviderMoonshot: {
			ID:      ProviderMoonshot,
			Name:    "Moonshot (Kimi)",
			BaseURL: "https://api.moonshot.cn/v1",
			Dialect: DialectOpenAI,
			KeyEnvs: []string{"MOONSHOT_API_KEY"},
		},
		ProviderDashScope: {
			ID:      ProviderDashScope,
			Name:    "Alibaba DashScope (Qwen)",
			BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Dialect: DialectOpenAI,
			KeyEnvs: []string{"DASHSCOPE_API_KEY"},
		},
		ProviderZhipu: {
			ID:      ProviderZhipu,
			Name:    "Zhipu (GLM)",
			BaseURL: "https://open.bigmodel.cn/api/paas/v4",
			Dialect: DialectOpenAI,
			KeyEnvs: []string{"ZHIPUAI_API_KEY", "ZHIPU_API_KEY"},
		},
		ProviderDeepSeek: {
			ID:      ProviderDeepSeek,
			Name:    "DeepSeek",
			BaseURL: "https://api.deepseek.com",
			Dialect: DialectOpenAI,
			KeyEnvs: []string{"DEEPSEEK_API_KEY"},
		},
		ProviderSiliconFlow: {
			ID:      ProviderSiliconFlow,
			Name:    "SiliconFlow",
			BaseURL: "https://api.siliconflow.cn/v1",
			Dialect: DialectOpenAI,
			KeyEnvs: []string{"SILICONFLOW_API_KEY"},
		},
	}
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

type route struct {
	substr string
	id     string
}

// routes is scanned in order; first substring match decides the provider.
// Vendor-qualified IDs ("deepseek-ai/...", "qwen/...") are SiliconFlow's
// catalog style and must match before the bare family names below them.
var routes = []route{
	{"deepseek-ai/", ProviderSiliconFlow},
	{"qwen/", ProviderSiliconFlow},
	{"siliconflow", ProviderSiliconFlow},
	{"gpt", ProviderOpenAI},
	{"moonshot", ProviderMoonshot},
	{"kimi", ProviderMoonshot},
	{"qwen", ProviderDashScope},
	{"glm", ProviderZhipu},
	{"deepseek", ProviderDeepSeek},
}

// Resolve maps a model identifier to its provider. Unrecognized models
// default to Gemini, matching the tool's primary backend.
func Resolve(model string) Provider {
	defs := Defaults()
	m := strings.ToLower(model)
	for _, r := range routes {
		if strings.Contains(m, r.substr) {
			return defs[r.id]
		}
	}
	return defs[ProviderGemini]
}

// ---------------------------------------------------------------------------
// Credentials and base URL resolution
// ---------------------------------------------------------------------------

// APIKey returns the API key for p, or "" if none is configured.
// Lookup order: environment variables, then the settings store.
func (p Provider) APIKey() string {
	for _, env := range p.KeyEnvs {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return settings.Load().APIKey(p.ID)
}

// ResolvedBaseURL returns the effective base URL, honoring the provider's
// environment override, then a base URL from the settings store, and
// stripping any trailing slash.
func (p Provider) ResolvedBaseURL() string {
	base := p.BaseURL
	if info := settings.Get(p.ID); info != nil && info.BaseURL != "" {
		base = info.BaseURL
	}
	if p.BaseEnv != "" {
		if v := os.Getenv(p.BaseEnv); v != "" {
			base = v
		}
	}
	return strings.TrimRight(base, "/")
}

// ---------------------------------------------------------------------------
// Model discovery
// ---------------------------------------------------------------------------

// fallbackModels is the curated per-provider list used when live discovery
// fails or returns nothing.
var fallbackModels = map[string][]string{
	ProviderGemini:      {"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"},
	ProviderOpenAI:      {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo"},
	ProviderMoonshot:    {"moonshot-v1-8k", "moonshot-v1-32k"},
	ProviderDashScope:   {"qwen-turbo", "qwen-max", "qwen-plus"},
	ProviderZhipu:       {"glm-4-flash", "glm-4", "glm-4-air"},
	ProviderDeepSeek:    {"deepseek-chat", "deepseek-reasoner"},
	ProviderSiliconFlow: {"deepseek-ai/DeepSeek-V3", "deepseek-ai/DeepSeek-R1"},
}

// ignoredModelMarkers filters non-chat models out of discovery results.
var ignoredModelMarkers = []string{
	"embedding", "vector", "search", "text-moderation", "whisper", "dall-e", "tts",
}

// ListModels queries {base}/models on an OpenAI-dialect provider and returns
// the chat-capable model IDs, primary-brand models first. For the Gemini
// dialect and on any error it returns the curated fallback list. Providers
// with no configured key return an empty list.
func ListModels(ctx context.Context, p Provider) []string {
	key := p.APIKey()
	if key == "" {
		return nil
	}
	if p.Dialect != DialectOpenAI {
		return fallbackModels[p.ID]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ResolvedBaseURL()+"/models", nil)
	if err != nil {
		return fallbackModels[p.ID]
	}
	req.Header.Set("Authorization", "Bearer "+key)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fallbackModels[p.ID]
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallbackModels[p.ID]
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallbackModels[p.ID]
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return fallbackModels[p.ID]
	}

	var models []string
	for _, m := range listing.Data {
		if m.ID == "" || isIgnoredModel(m.ID) {
			continue
		}
		models = append(models, m.ID)
	}
	if len(models) == 0 {
		return fallbackModels[p.ID]
	}

	sortModels(models, brandFor(p.ID))
	return models
}

func isIgnoredModel(id string) bool {
	low := strings.ToLower(id)
	for _, marker := range ignoredModelMarkers {
		if strings.Contains(low, marker) {
			return true
		}
	}
	return false
}

// brandFor returns the primary model-family marker for a provider, used to
// float a provider's own models above third-party rehosts in listings.
func brandFor(id string) string {
	switch id {
	case ProviderDashScope:
		return "qwen"
	case ProviderZhipu:
		return "glm"
	case ProviderMoonshot:
		return "moonshot"
	case ProviderDeepSeek:
		return "deepseek"
	}
	return ""
}

func sortModels(models []string, brand string) {
	rank := func(name string) int {
		low := strings.ToLower(name)
		if brand != "" && strings.HasPrefix(low, brand) {
			return 0
		}
		if brand != "" && strings.Contains(low, brand) {
			return 1
		}
		return 2
	}
	sort.SliceStable(models, func(i, j int) bool {
		ri, rj := rank(models[i]), rank(models[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(models[i]) < strings.ToLower(models[j])
	})
}

// IDs returns all provider IDs in stable order.
func IDs() []string {
	defs := Defaults()
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// String implements fmt.Stringer for diagnostics.
func (d Dialect) String() string {
	switch d {
	case DialectGemini:
		return "gemini"
	case DialectOpenAI:
		return "openai"
	}
	return fmt.Sprintf("dialect(%d)", int(d))
}
