package ports

import (
	"context"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

// Recommender is the inbound contract for the hybrid recommendation pipeline.
type Recommender interface {
	Recommend(ctx context.Context, req domain.RecommendRequest) (*domain.PipelineResult, error)
}

// RetrievalHealth reports whether semantic retrieval backends loaded.
type RetrievalHealth interface {
	Ready() bool
}

// RecipeAssistant is the inbound contract for free-form recipe help.
type RecipeAssistant interface {
	AdaptRecipe(ctx context.Context, req domain.AdaptRecipeRequest) (domain.AssistantResponse, error)
	ExplainSubstitution(ctx context.Context, req domain.SubstitutionRequest) (domain.AssistantResponse, error)
	SuggestMealPlan(ctx context.Context, req domain.MealPlanRequest) (domain.AssistantResponse, error)
	CookingTips(ctx context.Context, recipeTitle, skillLevel string) (domain.AssistantResponse, error)
}

// IngredientSubstitutions finds graph-backed ingredient replacements.
type IngredientSubstitutions interface {
	Substitutes(ctx context.Context, query domain.SubstituteQuery) (domain.SubstituteResult, error)
	PantryCoverage(ctx context.Context, req domain.PantryRequest) (domain.PantryCoverage, error)
}

// DietaryClassifier tags an ingredient list with dietary labels and allergens.
type DietaryClassifier interface {
	Classify(ingredients []string) domain.DietaryProfile
}

// RecommendationRecorder is the inbound contract for the event worker.
type RecommendationRecorder interface {
	Record(ctx context.Context, event domain.RecommendationEvent) error
}
