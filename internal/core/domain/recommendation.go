package domain

import "time"

const GoalTargetCalories = "target_calories"

type PipelineStatus string

const (
	PipelineStatusSuccess PipelineStatus = "success"
	PipelineStatusError   PipelineStatus = "error"
)

const (
	MessageNoRecipesFound  = "No recipes found for the query."
	MessageNoSafeRecipes   = "No recipes passed the strict dietary constraints."
	MessageRankingFailed   = "Failed to rank recipes by nutrition."
	ExplanationUnavailable = "AI Assistant endpoints not available."
)

// UserGoals maps nutrition target names to numeric values. A missing key
// means no constraint on that dimension.
type UserGoals map[string]float64

func (g UserGoals) Get(name string) (float64, bool) {
	if g == nil {
		return 0, false
	}
	v, ok := g[name]
	return v, ok
}

type RecommendRequest struct {
	Query        string    `json:"query"`
	Goals        UserGoals `json:"goals"`
	Restrictions []string  `json:"restrictions"`
}

type UserContext struct {
	Goals        UserGoals `json:"goals"`
	Restrictions []string  `json:"restrictions"`
}

type PipelineResult struct {
	Status             PipelineStatus    `json:"status"`
	Message            string            `json:"message,omitempty"`
	TopRecommendations []ScoredCandidate `json:"top_recommendations,omitempty"`
	PrimaryExplanation string            `json:"primary_explanation,omitempty"`
}

func PipelineError(message string) *PipelineResult {
	return &PipelineResult{Status: PipelineStatusError, Message: message}
}

// RecommendationEvent is the audit record emitted after every pipeline run.
type RecommendationEvent struct {
	ID           string         `json:"id"`
	Query        string         `json:"query"`
	Goals        UserGoals      `json:"goals"`
	Restrictions []string       `json:"restrictions"`
	Status       PipelineStatus `json:"status"`
	Message      string         `json:"message,omitempty"`
	RecipeIDs    []int64        `json:"recipe_ids"`
	CreatedAt    time.Time      `json:"created_at"`
}
