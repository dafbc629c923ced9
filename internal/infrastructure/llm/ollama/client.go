package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/plateplanner/internal/infrastructure/llm"
	"github.com/kirillkom/plateplanner/internal/infrastructure/resilience"
)

const providerName = "ollama"

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithExecutor(baseURL, genModel, embedModel, nil)
}

func NewWithExecutor(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	call := func(ctx context.Context) error {
		return llm.PostJSON(ctx, c.httpClient, c.baseURL+path, nil, payload, out, providerName, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, llm.ClassifyTransportError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("ollama "+operation, err)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator is the chain strategy for a local model. Retries are left to
// the chain so the executor is bypassed here.
type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	if strings.TrimSpace(model) == "" {
		model = client.genModel
	}
	return &Generator{client: client, model: model}
}

func (g *Generator) Name() string {
	return providerName + "." + g.model
}

func (g *Generator) Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	request := map[string]any{
		"model":  g.model,
		"prompt": prompt,
		"system": systemPrompt,
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	err := llm.PostJSON(ctx, g.client.httpClient, g.client.baseURL+"/api/generate", nil, request, &response, providerName, "generate")
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", fmt.Errorf("ollama %s: %w", g.model, llm.ErrEmptyCompletion)
	}
	return text, nil
}
