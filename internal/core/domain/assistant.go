package domain

type AdaptRecipeRequest struct {
	RecipeTitle        string   `json:"recipe_title"`
	RecipeIngredients  []string `json:"recipe_ingredients"`
	RecipeDirections   string   `json:"recipe_directions"`
	Dietary            string   `json:"dietary,omitempty"`
	Pantry             []string `json:"pantry,omitempty"`
	MissingIngredients []string `json:"missing_ingredients,omitempty"`
}

type SubstitutionRequest struct {
	Original      string `json:"original"`
	Substitute    string `json:"substitute"`
	RecipeContext string `json:"recipe_context,omitempty"`
}

type MealPlanRequest struct {
	Pantry             []string `json:"pantry"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	Days               int      `json:"days"`
	MealsPerDay        int      `json:"meals_per_day"`
}

type AssistantResponse struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
}
