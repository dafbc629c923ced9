package domain

// Substitute sources.
const (
	SubstituteSourceDirect  = "direct"
	SubstituteSourceSimilar = "similar"
	SubstituteSourceHybrid  = "hybrid"
)

// SubstituteEdge is one scored graph edge from an ingredient to a
// replacement. Kind is SubstituteSourceDirect for curated substitution edges
// and SubstituteSourceSimilar for embedding similarity edges.
type SubstituteEdge struct {
	Name    string
	Score   float64
	Kind    string
	Context string
}

type Substitute struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Context string  `json:"context,omitempty"`
}

type SubstituteQuery struct {
	Ingredient string `json:"ingredient"`
	Context    string `json:"context,omitempty"`
	Hybrid     bool   `json:"hybrid"`
	TopK       int    `json:"top_k,omitempty"`
}

type SubstituteResult struct {
	Ingredient  string       `json:"ingredient"`
	Context     string       `json:"context,omitempty"`
	Hybrid      bool         `json:"hybrid"`
	Substitutes []Substitute `json:"substitutes"`
}

// PantryRequest names recipe ingredients directly or through RecipeID.
type PantryRequest struct {
	RecipeID          int64    `json:"recipe_id,omitempty"`
	RecipeIngredients []string `json:"recipe_ingredients,omitempty"`
	Pantry            []string `json:"pantry"`
	TopK              int      `json:"top_k,omitempty"`
}

type PantryMatch struct {
	Ingredient string `json:"ingredient"`
	MatchedAs  string `json:"matched_as"`
}

type MissingIngredient struct {
	Ingredient        string       `json:"ingredient"`
	PantrySubstitutes []Substitute `json:"pantry_substitutes"`
	OtherSubstitutes  []Substitute `json:"other_substitutes"`
}

// PantryCoverage splits a recipe's ingredients into those the pantry covers
// and those missing, with substitutes for the missing ones.
type PantryCoverage struct {
	TotalIngredients int                 `json:"total_ingredients"`
	HaveCount        int                 `json:"have_count"`
	MissingCount     int                 `json:"missing_count"`
	Coverage         float64             `json:"coverage"`
	Have             []PantryMatch       `json:"have"`
	Missing          []MissingIngredient `json:"missing"`
}
