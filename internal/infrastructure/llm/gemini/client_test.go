package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/plateplanner/internal/infrastructure/llm"
)

func TestModelCallsGenerateContent(t *testing.T) {
	var got generateRequest
	var key, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Lentils "},{"text":"are filling."}]}}]}`))
	}))
	defer server.Close()

	model := NewModel(New(server.URL, "g-key"), "gemini-2.5-flash")
	text, err := model.Generate(context.Background(), "why lentils?", "persona", 0.7)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Lentils are filling." {
		t.Fatalf("unexpected text %q", text)
	}
	if path != "/v1beta/models/gemini-2.5-flash:generateContent" || key != "g-key" {
		t.Fatalf("unexpected request path=%s key=%s", path, key)
	}
	prompt := got.Contents[0].Parts[0].Text
	if !strings.HasPrefix(prompt, "persona\n\n") || !strings.HasSuffix(prompt, "why lentils?") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if got.GenerationConfig.MaxOutputTokens != maxOutputTokens || got.GenerationConfig.Temperature != 0.7 {
		t.Fatalf("unexpected generation config: %+v", got.GenerationConfig)
	}
}

func TestModelQuotaErrorIsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewModel(New(server.URL, "k"), "gemini-2.5-flash").Generate(context.Background(), "p", "", 0.7)
	if !llm.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestModelsDeduplicatesConfiguredModel(t *testing.T) {
	got := Models("gemini-2.5-flash")
	if strings.Join(got, ",") != "gemini-2.5-flash,gemini-2.0-flash-lite" {
		t.Fatalf("unexpected models: %v", got)
	}
	got = Models("gemini-2.0-flash")
	if strings.Join(got, ",") != "gemini-2.5-flash,gemini-2.0-flash,gemini-2.0-flash-lite" {
		t.Fatalf("unexpected models: %v", got)
	}
}
