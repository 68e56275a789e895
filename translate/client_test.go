package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/furunxungpt/autosub/provider"
)

func TestLimitsForTier(t *testing.T) {
	tests := []struct {
		tier string
		want TierLimits
	}{
		{"free", TierLimits{RPM: 10, Workers: 1}},
		{"FREE", TierLimits{RPM: 10, Workers: 1}},
		{"tier1", TierLimits{RPM: 100, Workers: 10}},
		{"other", TierLimits{RPM: 500, Workers: 20}},
		{"tier9", TierLimits{RPM: 500, Workers: 20}},
		{"", TierLimits{RPM: 500, Workers: 20}},
	}
	for _, tt := range tests {
		if got := LimitsForTier(tt.tier); got != tt.want {
			t.Errorf("LimitsForTier(%q) = %+v, want %+v", tt.tier, got, tt.want)
		}
	}
}

func TestBuildRequestOpenAI(t *testing.T) {
	prov := provider.Defaults()[provider.ProviderDeepSeek]
	endpoint, headers, body, err := buildRequest(prov, "deepseek-chat", "translate this", "sk-123", 0.3)
	if err != nil {
		t.Fatal(err)
	}

	if endpoint != "https://api.deepseek.com/chat/completions" {
		t.Errorf("endpoint = %q", endpoint)
	}
	if headers["Authorization"] != "Bearer sk-123" {
		t.Errorf("Authorization = %q", headers["Authorization"])
	}
	if headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", headers["Content-Type"])
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatal(err)
	}
	if req.Model != "deepseek-chat" || req.Temperature != 0.3 {
		t.Errorf("body = %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "translate this" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestBuildRequestGemini(t *testing.T) {
	prov := provider.Defaults()[provider.ProviderGemini]
	endpoint, headers, body, err := buildRequest(prov, "gemini-1.5-flash", "hello", "g-key", 0.3)
	if err != nil {
		t.Fatal(err)
	}

	if endpoint != "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("endpoint = %q", endpoint)
	}
	if headers["x-goog-api-key"] != "g-key" {
		t.Errorf("x-goog-api-key = %q", headers["x-goog-api-key"])
	}
	if _, ok := headers["Authorization"]; ok {
		t.Error("gemini dialect must not send a Bearer header")
	}

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			Temperature float64 `json:"temperature"`
		} `json:"generationConfig"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatal(err)
	}
	if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("contents = %+v", req.Contents)
	}
	if req.GenerationConfig.Temperature != 0.3 {
		t.Errorf("temperature = %v", req.GenerationConfig.Temperature)
	}
}

func TestExtractText(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		body := `{"choices":[{"message":{"role":"assistant","content":"[1] 你好"}}]}`
		text, err := extractText(provider.DialectOpenAI, []byte(body))
		if err != nil || text != "[1] 你好" {
			t.Errorf("got %q, %v", text, err)
		}
	})

	t.Run("gemini", func(t *testing.T) {
		body := `{"candidates":[{"content":{"parts":[{"text":"[1] 你好"}]}}]}`
		text, err := extractText(provider.DialectGemini, []byte(body))
		if err != nil || text != "[1] 你好" {
			t.Errorf("got %q, %v", text, err)
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		if _, err := extractText(provider.DialectOpenAI, []byte(`{"choices":[]}`)); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		if _, err := extractText(provider.DialectGemini, []byte(`{"candidates":[]}`)); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := extractText(provider.DialectOpenAI, []byte("<html>gateway error</html>")); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  [1] 译文\n"}}]}`))
	}))
	defer srv.Close()

	// Point the OpenAI provider at the test server.
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", srv.URL)

	c := NewClient(0)
	text, err := c.Generate(context.Background(), "prompt", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "[1] 译文" {
		t.Errorf("text = %q (reply should be trimmed)", text)
	}
}

func TestClientGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", srv.URL)

	c := NewClient(0)
	_, err := c.Generate(context.Background(), "prompt", "gpt-4o-mini")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestClientGenerateNoCredential(t *testing.T) {
	// Blank every credential source for the provider under test.
	t.Setenv("MOONSHOT_API_KEY", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	c := NewClient(0)
	_, err := c.Generate(context.Background(), "prompt", "moonshot-v1-8k")
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("err = %v, want ErrNoCredential", err)
	}
	if !strings.Contains(err.Error(), "MOONSHOT_API_KEY") {
		t.Errorf("error should name the credential variable: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789abcdef", 10); got != "0123456789..." {
		t.Errorf("truncate = %q", got)
	}
}
