package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

// OntologyFilter drops candidates whose graph-linked ingredients match a
// restricted term. Graph failures fail closed.
type OntologyFilter struct {
	graph ports.IngredientGraph
}

func NewOntologyFilter(graph ports.IngredientGraph) *OntologyFilter {
	return &OntologyFilter{graph: graph}
}

func (f *OntologyFilter) Filter(ctx context.Context, candidates []domain.Candidate, restrictions []string) []domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	terms := normalizeRestrictions(restrictions)
	if len(terms) == 0 {
		return candidates
	}
	if f.graph == nil {
		slog.Error("ontology_filter_failed", "error", domain.ErrBackendUnavailable)
		return nil
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.RecipeID)
	}

	ingredients, err := f.graph.IngredientsOf(ctx, ids)
	if err != nil {
		slog.Error("ontology_filter_failed", "candidates", len(candidates), "error", err)
		return nil
	}

	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		names, ok := ingredients[c.RecipeID]
		if !ok {
			continue
		}
		if containsRestricted(names, terms) {
			continue
		}
		out = append(out, c)
	}

	slog.Info("ontology_filter", "candidates", len(candidates), "safe", len(out), "restrictions", terms)
	return out
}

func normalizeRestrictions(restrictions []string) []string {
	out := make([]string, 0, len(restrictions))
	for _, r := range restrictions {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsRestricted(ingredients, terms []string) bool {
	for _, ing := range ingredients {
		ing = strings.ToLower(ing)
		for _, term := range terms {
			if strings.Contains(ing, term) {
				return true
			}
		}
	}
	return false
}
