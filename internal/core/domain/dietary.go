package domain

type DietaryRequest struct {
	Ingredients []string `json:"ingredients"`
}

// DietaryProfile is the keyword classification of an ingredient list.
type DietaryProfile struct {
	IsVegetarian    bool     `json:"is_vegetarian"`
	IsVegan         bool     `json:"is_vegan"`
	IsGlutenFree    bool     `json:"is_gluten_free"`
	IsDairyFree     bool     `json:"is_dairy_free"`
	Allergens       []string `json:"allergens"`
	IngredientCount int      `json:"ingredient_count"`
}
