package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/infrastructure/resilience"
)

// Strategy is one model on one provider.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error)
}

type GenerationRecorder interface {
	RecordLLMGeneration(provider, status string)
}

// Chain tries strategies in order. Rate-limit failures are retried by the
// executor and then fall through to the next strategy; any other failure
// ends the chain.
type Chain struct {
	provider   string
	strategies []Strategy
	executor   *resilience.Executor
	recorder   GenerationRecorder
}

func NewChain(provider string, strategies []Strategy, executor *resilience.Executor, recorder GenerationRecorder) *Chain {
	return &Chain{
		provider:   provider,
		strategies: strategies,
		executor:   executor,
		recorder:   recorder,
	}
}

func (c *Chain) Provider() string {
	return c.provider
}

func (c *Chain) Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	if len(c.strategies) == 0 {
		c.record("unconfigured")
		return "", domain.WrapError(domain.ErrNoLLMBackend, "llm generate", fmt.Errorf("provider %q has no usable models", c.provider))
	}

	var lastErr error
	for idx, strategy := range c.strategies {
		text, err := c.try(ctx, strategy, prompt, systemPrompt, temperature)
		if err == nil {
			c.record("success")
			return text, nil
		}
		lastErr = err

		if isCanceled(err) {
			c.record("canceled")
			return "", err
		}
		if !IsRateLimit(err) && !resilience.IsCircuitOpen(err) {
			c.record("error")
			return "", fmt.Errorf("llm %s: %w", strategy.Name(), err)
		}
		if idx < len(c.strategies)-1 {
			slog.Warn("llm_model_fallback",
				"provider", c.provider,
				"from", strategy.Name(),
				"to", c.strategies[idx+1].Name(),
				"error", err,
			)
		}
	}

	c.record("rate_limited")
	return "", domain.WrapError(domain.ErrRateLimited, "llm generate", fmt.Errorf("all %d models exhausted: %w", len(c.strategies), lastErr))
}

func (c *Chain) try(ctx context.Context, strategy Strategy, prompt, systemPrompt string, temperature float64) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		out, err := strategy.Generate(ctx, prompt, systemPrompt, temperature)
		if err != nil {
			return err
		}
		text = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "llm."+strategy.Name(), call, classifyGenerationError)
	} else {
		err = call(ctx)
	}
	return text, err
}

func (c *Chain) record(status string) {
	if c.recorder != nil {
		c.recorder.RecordLLMGeneration(c.provider, status)
	}
}

const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ResolveProvider picks the backend: explicit setting first, then whichever
// credential is present, then the local model server.
func ResolveProvider(explicit, googleAPIKey, openAIAPIKey string) string {
	if p := strings.ToLower(strings.TrimSpace(explicit)); p != "" {
		return p
	}
	if strings.TrimSpace(googleAPIKey) != "" {
		return ProviderGoogle
	}
	if strings.TrimSpace(openAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}

// ModelChain returns the ordered, de-duplicated model list for a provider.
func ModelChain(primary []string, fallbacks []string) []string {
	seen := make(map[string]struct{}, len(primary)+len(fallbacks))
	out := make([]string, 0, len(primary)+len(fallbacks))
	for _, group := range [][]string{primary, fallbacks} {
		for _, name := range group {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// ErrEmptyCompletion is returned by strategies when the provider replied
// without any text.
var ErrEmptyCompletion = errors.New("empty completion")
