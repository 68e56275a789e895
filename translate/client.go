package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/furunxungpt/autosub/provider"
)

// ---------------------------------------------------------------------------
// Oracle boundary
// ---------------------------------------------------------------------------

// Oracle is the translation backend: prompt in, raw reply text out.
// Implementations must be safe for concurrent use. A non-nil error means
// the reply is unusable and the chunk becomes a retry candidate; errors
// never abort the batch.
type Oracle interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, prompt, model string) (string, error)

// Generate implements Oracle.
func (f OracleFunc) Generate(ctx context.Context, prompt, model string) (string, error) {
	return f(ctx, prompt, model)
}

// ErrNoCredential is returned when no API key is configured for the
// provider a model resolves to. It is a configuration error: the request's
// chunk is retried like any other failure, but the condition is surfaced in
// logs so the user can fix it before the next run.
var ErrNoCredential = errors.New("no API key configured")

// ---------------------------------------------------------------------------
// Service tiers
// ---------------------------------------------------------------------------

// Tier names for TierLimits.
const (
	TierFree  = "free"
	Tier1     = "tier1"
	TierOther = "other"
)

// TierLimits couples the request budget with the worker pool size.
type TierLimits struct {
	RPM     int
	Workers int
}

// LimitsForTier maps a coarse service-tier name to its limits.
// Unknown tiers get the paid-tier defaults.
func LimitsForTier(tier string) TierLimits {
	switch strings.ToLower(tier) {
	case TierFree:
		return TierLimits{RPM: 10, Workers: 1}
	case Tier1:
		return TierLimits{RPM: 100, Workers: 10}
	default:
		return TierLimits{RPM: 500, Workers: 20}
	}
}

// ---------------------------------------------------------------------------
// HTTP client (request executor)
// ---------------------------------------------------------------------------

const requestTimeout = 60 * time.Second

// Client issues one HTTP translation request per Generate call, spaced by
// the shared rate limiter. Construct it once at startup and pass it by
// handle into the engine; credentials are resolved at construction and
// read-only afterwards.
type Client struct {
	limiter *Limiter
	httpc   *http.Client
	keys    map[string]string
	temp    float64
}

// NewClient builds a client for the given request-per-minute budget.
// Proxy settings are honored from the standard environment variables.
func NewClient(rpm int) *Client {
	keys := make(map[string]string)
	for id, p := range provider.Defaults() {
		keys[id] = p.APIKey()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment

	return &Client{
		limiter: NewLimiter(rpm),
		httpc: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		keys: keys,
		temp: 0.3,
	}
}

// Generate resolves the model's provider, waits for a rate-limit slot and
// issues exactly one HTTP request. Transport errors, non-2xx statuses and
// malformed bodies all come back as errors, never panics; the engine's
// retry loop owns recovery, so there is no internal retry or backoff here.
func (c *Client) Generate(ctx context.Context, prompt, model string) (string, error) {
	prov := provider.Resolve(model)
	key := c.keys[prov.ID]
	if key == "" {
		return "", fmt.Errorf("%s (%s): %w", prov.Name, strings.Join(prov.KeyEnvs, " or "), ErrNoCredential)
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	endpoint, headers, body, err := buildRequest(prov, model, prompt, key, c.temp)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", prov.ID, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return "", fmt.Errorf("%s reading response: %w", prov.ID, readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d: %s", prov.ID, resp.StatusCode, truncate(string(respBody), 300))
	}

	text, err := extractText(prov.Dialect, respBody)
	if err != nil {
		return "", fmt.Errorf("%s: %w", prov.ID, err)
	}
	return strings.TrimSpace(text), nil
}

// Limiter exposes the shared limiter (used by the CLI for diagnostics).
func (c *Client) Limiter() *Limiter { return c.limiter }

// ---------------------------------------------------------------------------
// Request builders per dialect
// ---------------------------------------------------------------------------

func buildRequest(prov provider.Provider, model, prompt, key string, temp float64) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	var endpoint string
	var body []byte
	var err error

	switch prov.Dialect {
	case provider.DialectGemini:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			prov.ResolvedBaseURL(), url.PathEscape(model))
		headers["x-goog-api-key"] = key
		body, err = buildGeminiBody(prompt, temp)

	default: // provider.DialectOpenAI
		endpoint = prov.ResolvedBaseURL() + "/chat/completions"
		headers["Authorization"] = "Bearer " + key
		body, err = buildChatBody(model, prompt, temp)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

func buildChatBody(model, prompt string, temp float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
	}{
		Model:       model,
		Messages:    []msg{{Role: "user", Content: prompt}},
		Temperature: temp,
	}
	return json.Marshal(req)
}

func buildGeminiBody(prompt string, temp float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents         []content `json:"contents"`
		GenerationConfig genConfig `json:"generationConfig"`
	}{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: genConfig{Temperature: temp},
	}
	return json.Marshal(req)
}

// ---------------------------------------------------------------------------
// Response extraction per dialect
// ---------------------------------------------------------------------------

func extractText(d provider.Dialect, body []byte) (string, error) {
	switch d {
	case provider.DialectGemini:
		var resp struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("invalid JSON response: %w", err)
		}
		if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("empty response: %s", truncate(string(body), 300))
		}
		return resp.Candidates[0].Content.Parts[0].Text, nil

	default: // provider.DialectOpenAI
		var resp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("invalid JSON response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response: %s", truncate(string(body), 300))
		}
		return resp.Choices[0].Message.Content, nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
