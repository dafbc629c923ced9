package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/plateplanner/internal/infrastructure/llm"
)

const (
	providerName    = "google"
	DefaultBaseURL  = "https://generativelanguage.googleapis.com"
	maxOutputTokens = 1024
)

// DefaultModels is the built-in fallback order; the configured model is
// inserted after the first entry.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.0-flash-lite"}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Models returns the fallback order for a configured model name.
func Models(configured string) []string {
	return llm.ModelChain([]string{DefaultModels[0], configured, DefaultModels[1]}, nil)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type Model struct {
	client *Client
	name   string
}

func NewModel(client *Client, name string) *Model {
	return &Model{client: client, name: name}
}

func (m *Model) Name() string {
	return providerName + "." + m.name
}

// Generate sends the system prompt inline ahead of the user prompt.
func (m *Model) Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	full := prompt
	if strings.TrimSpace(systemPrompt) != "" {
		full = systemPrompt + "\n\n" + prompt
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", m.client.baseURL, url.PathEscape(m.name))
	request := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: full}}}},
		GenerationConfig: generationConfig{Temperature: temperature, MaxOutputTokens: maxOutputTokens},
	}

	var response generateResponse
	err := llm.PostJSON(ctx, m.client.httpClient, endpoint,
		map[string]string{"x-goog-api-key": m.client.apiKey},
		request, &response, providerName, "generate")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(response.Candidates) > 0 {
		for _, p := range response.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini %s: %w", m.name, llm.ErrEmptyCompletion)
	}
	return text, nil
}
