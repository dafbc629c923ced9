package ports

import (
	"context"
	"time"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

// Embedder builds query vectors with the same model the index was built with.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RecipeIndex performs approximate nearest-neighbour search over recipe embeddings.
type RecipeIndex interface {
	Search(ctx context.Context, queryVector []float32, k int) ([]domain.IndexHit, error)
	Ready(ctx context.Context) error
}

// RecipeMetadataStore reads recipe rows by id.
type RecipeMetadataStore interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.RecipeMetadata, error)
}

// IngredientGraph returns the lower-cased ingredient names linked to each recipe.
// Recipes absent from the graph are absent from the result.
type IngredientGraph interface {
	IngredientsOf(ctx context.Context, ids []int64) (map[int64][]string, error)
}

// SubstituteGraph returns substitution and similarity edges leaving an
// ingredient. A non-empty usage restricts direct edges to that context.
type SubstituteGraph interface {
	SubstitutesOf(ctx context.Context, ingredient, usage string, limit int) ([]domain.SubstituteEdge, error)
}

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error)
	Provider() string
}

// ExplanationCache stores generated explanations.
type ExplanationCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RecommendationEventPublisher emits pipeline outcomes.
type RecommendationEventPublisher interface {
	PublishRecommendation(ctx context.Context, event domain.RecommendationEvent) error
}

// RecommendationEventSubscriber consumes pipeline outcomes.
type RecommendationEventSubscriber interface {
	SubscribeRecommendations(ctx context.Context, handler func(context.Context, domain.RecommendationEvent) error) error
}

// RecommendationEventStore persists pipeline outcomes.
type RecommendationEventStore interface {
	SaveEvent(ctx context.Context, event domain.RecommendationEvent) error
}
