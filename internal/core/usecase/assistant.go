package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

const (
	maxDirectionsInPrompt = 500
	defaultMealPlanDays   = 3
	defaultMealsPerDay    = 2
	defaultSkillLevel     = "intermediate"
)

type AssistantUseCase struct {
	generator ports.TextGenerator
}

func NewAssistantUseCase(generator ports.TextGenerator) *AssistantUseCase {
	return &AssistantUseCase{generator: generator}
}

func (uc *AssistantUseCase) AdaptRecipe(ctx context.Context, req domain.AdaptRecipeRequest) (domain.AssistantResponse, error) {
	if strings.TrimSpace(req.RecipeTitle) == "" {
		return domain.AssistantResponse{}, domain.WrapError(domain.ErrInvalidInput, "adapt recipe", errors.New("recipe_title is required"))
	}

	directions := req.RecipeDirections
	if len(directions) > maxDirectionsInPrompt {
		directions = directions[:maxDirectionsInPrompt]
	}
	parts := []string{
		"Recipe: " + req.RecipeTitle,
		"Ingredients: " + strings.Join(req.RecipeIngredients, ", "),
		"Directions: " + directions,
	}
	if len(req.Pantry) > 0 {
		parts = append(parts, "User has: "+strings.Join(req.Pantry, ", "))
	}
	if len(req.MissingIngredients) > 0 {
		parts = append(parts, "Missing: "+strings.Join(req.MissingIngredients, ", "))
	}
	recipeContext := strings.Join(parts, "\n")

	var prompt string
	switch {
	case strings.TrimSpace(req.Dietary) != "":
		prompt = fmt.Sprintf("%s\n\nPlease adapt this recipe to be %s. "+
			"Explain what changes to make and why each substitution works.", recipeContext, req.Dietary)
	case len(req.MissingIngredients) > 0:
		prompt = recipeContext + "\n\nThe user is missing some ingredients. Suggest how to adapt the recipe " +
			"using what they have, or recommend the best substitutions. " +
			"Explain how each change affects the final dish."
	default:
		prompt = recipeContext + "\n\nProvide cooking tips and suggestions for this recipe."
	}
	return uc.generate(ctx, prompt, 0.7), nil
}

func (uc *AssistantUseCase) ExplainSubstitution(ctx context.Context, req domain.SubstitutionRequest) (domain.AssistantResponse, error) {
	if strings.TrimSpace(req.Original) == "" || strings.TrimSpace(req.Substitute) == "" {
		return domain.AssistantResponse{}, domain.WrapError(domain.ErrInvalidInput, "explain substitution", errors.New("original and substitute are required"))
	}

	prompt := fmt.Sprintf("Explain why '%s' can be used as a substitute for '%s'", req.Substitute, req.Original)
	if strings.TrimSpace(req.RecipeContext) != "" {
		prompt += " in the context of making " + req.RecipeContext
	}
	prompt += ". Cover: flavor impact, texture impact, any ratio adjustments needed, and potential pitfalls."
	return uc.generate(ctx, prompt, 0.5), nil
}

func (uc *AssistantUseCase) SuggestMealPlan(ctx context.Context, req domain.MealPlanRequest) (domain.AssistantResponse, error) {
	if len(req.Pantry) == 0 {
		return domain.AssistantResponse{}, domain.WrapError(domain.ErrInvalidInput, "suggest meal plan", errors.New("pantry is required"))
	}
	days := req.Days
	if days <= 0 {
		days = defaultMealPlanDays
	}
	meals := req.MealsPerDay
	if meals <= 0 {
		meals = defaultMealsPerDay
	}

	parts := []string{
		"Available ingredients: " + strings.Join(req.Pantry, ", "),
		fmt.Sprintf("Plan for: %d days, %d meals per day", days, meals),
	}
	if len(req.DietaryPreferences) > 0 {
		parts = append(parts, "Dietary needs: "+strings.Join(req.DietaryPreferences, ", "))
	}
	prompt := strings.Join(parts, "\n") + "\n\n" +
		"Create a practical meal plan. For each meal, suggest a recipe " +
		"that uses the available ingredients. Note any additional items " +
		"the user would need to buy. Keep it realistic and varied."
	return uc.generate(ctx, prompt, 0.7), nil
}

func (uc *AssistantUseCase) CookingTips(ctx context.Context, recipeTitle, skillLevel string) (domain.AssistantResponse, error) {
	if strings.TrimSpace(recipeTitle) == "" {
		return domain.AssistantResponse{}, domain.WrapError(domain.ErrInvalidInput, "cooking tips", errors.New("recipe is required"))
	}
	if strings.TrimSpace(skillLevel) == "" {
		skillLevel = defaultSkillLevel
	}

	prompt := fmt.Sprintf("Provide 3-5 practical cooking tips for making %s. "+
		"Target a %s cook. Include timing tips, common mistakes, "+
		"and one 'pro tip' that elevates the dish.", recipeTitle, skillLevel)
	return uc.generate(ctx, prompt, 0.6), nil
}

func (uc *AssistantUseCase) generate(ctx context.Context, prompt string, temperature float64) domain.AssistantResponse {
	if uc.generator == nil {
		return domain.AssistantResponse{Response: noBackendMessage, Provider: "none"}
	}
	provider := uc.generator.Provider()
	text, err := uc.generator.Generate(ctx, prompt, assistantSystemPrompt, temperature)
	if err != nil {
		return domain.AssistantResponse{Response: unavailableText(provider, err), Provider: provider}
	}
	return domain.AssistantResponse{Response: strings.TrimSpace(text), Provider: provider}
}
