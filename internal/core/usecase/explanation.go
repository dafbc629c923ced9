package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

const (
	assistantSystemPrompt = `You are PlatePlanner AI, a knowledgeable cooking assistant.
You help users adapt recipes, find ingredient substitutions, and plan meals.
Be concise, practical, and encouraging. Always consider food safety.
When suggesting substitutions, explain WHY they work (flavor, texture, function).
Format your responses with clear headers and bullet points when appropriate.`

	explanationTemperature = 0.7
	explanationCachePrefix = "explain:"

	DefaultExplanationTimeout = 20 * time.Second
)

// Explainer asks the language model why the top candidate fits the user.
// It always returns displayable text.
type Explainer struct {
	generator ports.TextGenerator
	cache     ports.ExplanationCache
	cacheTTL  time.Duration
	timeout   time.Duration
}

// NewExplainer bounds each generation call by timeout. Non-positive values
// fall back to DefaultExplanationTimeout.
func NewExplainer(generator ports.TextGenerator, cache ports.ExplanationCache, cacheTTL, timeout time.Duration) *Explainer {
	if timeout <= 0 {
		timeout = DefaultExplanationTimeout
	}
	return &Explainer{
		generator: generator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
	}
}

func (e *Explainer) Explain(ctx context.Context, top domain.ScoredCandidate, user domain.UserContext) string {
	if e.generator == nil {
		return domain.ExplanationUnavailable
	}

	key := explanationCacheKey(top, user)
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("explanation_cache_get_failed", "error", err)
		} else if ok {
			return cached
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	text, err := e.generator.Generate(genCtx, buildExplanationPrompt(top, user), assistantSystemPrompt, explanationTemperature)
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			slog.Warn("llm_generation_timeout", "provider", e.generator.Provider(), "timeout", e.timeout.String())
			return domain.ExplanationUnavailable
		}
		return unavailableText(e.generator.Provider(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ExplanationUnavailable
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, text, e.cacheTTL); err != nil {
			slog.Warn("explanation_cache_set_failed", "error", err)
		}
	}
	return text
}

// unavailableText maps generator failures to user-facing fallback text.
func unavailableText(provider string, err error) string {
	if domain.IsKind(err, domain.ErrNoLLMBackend) {
		slog.Warn("llm_backend_missing", "provider", provider)
		return noBackendMessage
	}
	slog.Error("llm_generation_failed", "provider", provider, "error", err)
	return domain.ExplanationUnavailable
}

const noBackendMessage = "I'd love to help with that, but no LLM backend is currently configured. " +
	"Set one of these environment variables to enable AI features:\n" +
	"  - OPENAI_API_KEY (for OpenAI)\n" +
	"  - GOOGLE_API_KEY (for Gemini)\n" +
	"  - Or run Ollama locally: ollama serve && ollama pull llama3"

func buildExplanationPrompt(top domain.ScoredCandidate, user domain.UserContext) string {
	parts := []string{
		"Selected Recipe: " + top.Title,
		"Ingredients used: " + strings.Join(top.Ingredients, ", "),
		fmt.Sprintf("Fitness Score (Math fit): %.2f", top.Fitness()),
	}
	if goals := formatGoals(user.Goals); goals != "" {
		parts = append(parts, "User Goals: "+goals)
	}
	if len(user.Restrictions) > 0 {
		parts = append(parts, "Hard Dietary Restrictions avoided: "+strings.Join(user.Restrictions, ", "))
	}

	return strings.Join(parts, "\n") + "\n\n" +
		"Write a friendly 2-3 sentence explanation to the user about why this recipe " +
		"was selected for them as the perfect fit. Highlight how it respects their " +
		"hard dietary restrictions and aligns nicely with their fitness/macro goals."
}

func formatGoals(goals domain.UserGoals) string {
	if len(goals) == 0 {
		return ""
	}
	keys := make([]string, 0, len(goals))
	for k := range goals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %g", k, goals[k]))
	}
	return strings.Join(out, ", ")
}

func explanationCacheKey(top domain.ScoredCandidate, user domain.UserContext) string {
	restrictions := normalizeRestrictions(user.Restrictions)
	sort.Strings(restrictions)

	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s", top.RecipeID, formatGoals(user.Goals), strings.Join(restrictions, ","))
	return explanationCachePrefix + hex.EncodeToString(h.Sum(nil))
}
