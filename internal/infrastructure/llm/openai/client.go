package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/plateplanner/internal/infrastructure/llm"
)

const (
	providerName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	maxTokens      = 1024
)

// Client talks to an OpenAI-compatible chat completions API.
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Model is the chain strategy for one chat model.
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

func (m *Model) Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	var response chatResponse
	err := llm.PostJSON(ctx, m.client.httpClient, m.client.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + m.client.apiKey},
		chatRequest{Model: m.name, Messages: messages, Temperature: temperature, MaxTokens: maxTokens},
		&response, providerName, "chat")
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai %s: %w", m.name, llm.ErrEmptyCompletion)
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
