package usecase

import (
	"math"
	"sort"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

const (
	DefaultCaloriesPerServing = 600.0
	CalorieDistanceScale      = 500.0
	CaloriePenaltyWeight      = 0.5
)

// NutrientScorer re-ranks safe candidates by closeness to numeric goals.
// The weighting is a fixed linear combination.
type NutrientScorer struct{}

func NewNutrientScorer() *NutrientScorer {
	return &NutrientScorer{}
}

func (s *NutrientScorer) Rank(candidates []domain.Candidate, goals domain.UserGoals) []domain.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	out := make([]domain.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = domain.ScoredCandidate{Candidate: c}
	}

	target, ok := goals.Get(domain.GoalTargetCalories)
	if !ok || target <= 0 {
		return out
	}

	for i := range out {
		calories := DefaultCaloriesPerServing
		if c := out[i].CaloriesPerServing; c != nil && *c > 0 {
			calories = *c
		}
		distance := math.Abs(calories - target)
		penalty := math.Min(distance/CalorieDistanceScale, 1.0)
		fitness := out[i].SemanticScore - CaloriePenaltyWeight*penalty

		out[i].FitnessScore = &fitness
		out[i].CalorieDistance = &distance
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Fitness() > out[j].Fitness()
	})
	return out
}
