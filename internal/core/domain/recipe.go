package domain

// RecipeMetadata is the persisted recipe row joined against index hits.
type RecipeMetadata struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Ingredients        []string `json:"ingredients"`
	Directions         string   `json:"directions"`
	CaloriesPerServing *float64 `json:"calories_per_serving,omitempty"`
}

// IndexHit is a single approximate-nearest-neighbour match.
type IndexHit struct {
	RecipeID   int64
	Similarity float64
}

// Candidate is a recipe under consideration for a single request.
type Candidate struct {
	RecipeID           int64    `json:"recipe_id"`
	Title              string   `json:"title"`
	Ingredients        []string `json:"ingredients"`
	Directions         string   `json:"directions"`
	SemanticScore      float64  `json:"semantic_score"`
	CaloriesPerServing *float64 `json:"calories_per_serving,omitempty"`
}

// ScoredCandidate is a safe candidate annotated by the nutrient scorer.
// FitnessScore and CalorieDistance stay nil when no numeric goal was given.
type ScoredCandidate struct {
	Candidate
	FitnessScore    *float64 `json:"fitness_score,omitempty"`
	CalorieDistance *float64 `json:"calorie_distance,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
}

func (c ScoredCandidate) Fitness() float64 {
	if c.FitnessScore == nil {
		return 0
	}
	return *c.FitnessScore
}
