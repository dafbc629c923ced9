package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

func TestAdaptRecipePromptVariants(t *testing.T) {
	cases := map[string]struct {
		req  domain.AdaptRecipeRequest
		want string
	}{
		"dietary": {
			req:  domain.AdaptRecipeRequest{RecipeTitle: "Lasagna", Dietary: "vegan"},
			want: "Please adapt this recipe to be vegan.",
		},
		"missing": {
			req:  domain.AdaptRecipeRequest{RecipeTitle: "Lasagna", MissingIngredients: []string{"ricotta"}},
			want: "The user is missing some ingredients.",
		},
		"tips": {
			req:  domain.AdaptRecipeRequest{RecipeTitle: "Lasagna"},
			want: "Provide cooking tips and suggestions for this recipe.",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &generatorFake{text: "adapted", provider: "ollama"}
			uc := NewAssistantUseCase(gen)

			resp, err := uc.AdaptRecipe(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("AdaptRecipe() error = %v", err)
			}
			if resp.Response != "adapted" || resp.Provider != "ollama" {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if !strings.Contains(gen.prompts[0], tc.want) {
				t.Fatalf("prompt missing %q:\n%s", tc.want, gen.prompts[0])
			}
			if gen.temperature != 0.7 {
				t.Fatalf("expected temperature 0.7, got %f", gen.temperature)
			}
		})
	}
}

func TestAdaptRecipeTruncatesDirections(t *testing.T) {
	gen := &generatorFake{text: "ok"}
	uc := NewAssistantUseCase(gen)

	_, err := uc.AdaptRecipe(context.Background(), domain.AdaptRecipeRequest{
		RecipeTitle:      "Bread",
		RecipeDirections: strings.Repeat("a", 800) + "TAIL",
	})
	if err != nil {
		t.Fatalf("AdaptRecipe() error = %v", err)
	}
	if strings.Contains(gen.prompts[0], "TAIL") || !strings.Contains(gen.prompts[0], strings.Repeat("a", maxDirectionsInPrompt)) {
		t.Fatalf("expected directions truncated to %d chars", maxDirectionsInPrompt)
	}
}

func TestAssistantValidatesInput(t *testing.T) {
	uc := NewAssistantUseCase(&generatorFake{text: "ok"})
	ctx := context.Background()

	checks := map[string]func() error{
		"adapt": func() error {
			_, err := uc.AdaptRecipe(ctx, domain.AdaptRecipeRequest{})
			return err
		},
		"substitution": func() error {
			_, err := uc.ExplainSubstitution(ctx, domain.SubstitutionRequest{Original: "butter"})
			return err
		},
		"meal plan": func() error {
			_, err := uc.SuggestMealPlan(ctx, domain.MealPlanRequest{})
			return err
		},
		"tips": func() error {
			_, err := uc.CookingTips(ctx, " ", "")
			return err
		},
	}
	for name, call := range checks {
		if err := call(); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestExplainSubstitutionPrompt(t *testing.T) {
	gen := &generatorFake{text: "works"}
	uc := NewAssistantUseCase(gen)

	if _, err := uc.ExplainSubstitution(context.Background(), domain.SubstitutionRequest{
		Original:      "butter",
		Substitute:    "olive oil",
		RecipeContext: "cookies",
	}); err != nil {
		t.Fatalf("ExplainSubstitution() error = %v", err)
	}
	if !strings.Contains(gen.prompts[0], "'olive oil' can be used as a substitute for 'butter' in the context of making cookies") {
		t.Fatalf("unexpected prompt: %s", gen.prompts[0])
	}
	if gen.temperature != 0.5 {
		t.Fatalf("expected temperature 0.5, got %f", gen.temperature)
	}
}

func TestSuggestMealPlanDefaults(t *testing.T) {
	gen := &generatorFake{text: "plan"}
	uc := NewAssistantUseCase(gen)

	if _, err := uc.SuggestMealPlan(context.Background(), domain.MealPlanRequest{
		Pantry:             []string{"rice", "eggs"},
		DietaryPreferences: []string{"vegetarian"},
	}); err != nil {
		t.Fatalf("SuggestMealPlan() error = %v", err)
	}
	for _, want := range []string{"Available ingredients: rice, eggs", "Plan for: 3 days, 2 meals per day", "Dietary needs: vegetarian"} {
		if !strings.Contains(gen.prompts[0], want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.prompts[0])
		}
	}
}

func TestCookingTipsDefaultSkillLevel(t *testing.T) {
	gen := &generatorFake{text: "tips"}
	uc := NewAssistantUseCase(gen)

	if _, err := uc.CookingTips(context.Background(), "Risotto", ""); err != nil {
		t.Fatalf("CookingTips() error = %v", err)
	}
	if !strings.Contains(gen.prompts[0], "Target a intermediate cook") {
		t.Fatalf("unexpected prompt: %s", gen.prompts[0])
	}
	if gen.temperature != 0.6 {
		t.Fatalf("expected temperature 0.6, got %f", gen.temperature)
	}
}

func TestAssistantDegradesOnGeneratorFailure(t *testing.T) {
	uc := NewAssistantUseCase(&generatorFake{err: errors.New("timeout"), provider: "openai"})

	resp, err := uc.CookingTips(context.Background(), "Risotto", "beginner")
	if err != nil {
		t.Fatalf("CookingTips() error = %v", err)
	}
	if resp.Response != domain.ExplanationUnavailable || resp.Provider != "openai" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAssistantWithoutGenerator(t *testing.T) {
	uc := NewAssistantUseCase(nil)

	resp, err := uc.CookingTips(context.Background(), "Risotto", "")
	if err != nil {
		t.Fatalf("CookingTips() error = %v", err)
	}
	if resp.Provider != "none" || !strings.Contains(resp.Response, "OPENAI_API_KEY") {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
