package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

const (
	defaultSubstituteTopK = 5
	maxSubstituteTopK     = 25
	defaultPantryTopK     = 3

	// hybridAlpha weights curated substitution edges against similarity edges.
	hybridAlpha = 0.9
	// substituteFanout over-fetches edges so ranking and pantry splits have
	// enough to choose from.
	substituteFanout = 3
)

// SubstitutionService answers ingredient substitution lookups from the graph.
type SubstitutionService struct {
	graph   ports.SubstituteGraph
	recipes ports.IngredientGraph
}

func NewSubstitutionService(graph ports.SubstituteGraph, recipes ports.IngredientGraph) *SubstitutionService {
	return &SubstitutionService{graph: graph, recipes: recipes}
}

func (s *SubstitutionService) Substitutes(ctx context.Context, query domain.SubstituteQuery) (domain.SubstituteResult, error) {
	ingredient := normalizeIngredient(query.Ingredient)
	if ingredient == "" {
		return domain.SubstituteResult{}, domain.WrapError(domain.ErrInvalidInput, "substitutes", errors.New("ingredient is required"))
	}
	if s.graph == nil {
		return domain.SubstituteResult{}, domain.WrapError(domain.ErrBackendUnavailable, "substitutes", errors.New("substitution graph not configured"))
	}
	topK := clampTopK(query.TopK, defaultSubstituteTopK, maxSubstituteTopK)
	usage := strings.TrimSpace(query.Context)

	edges, err := s.graph.SubstitutesOf(ctx, ingredient, usage, topK*substituteFanout)
	if err != nil {
		return domain.SubstituteResult{}, domain.WrapError(domain.ErrBackendUnavailable, "substitutes", err)
	}

	subs := rankSubstitutes(ingredient, edges, query.Hybrid)
	if len(subs) > topK {
		subs = subs[:topK]
	}
	return domain.SubstituteResult{
		Ingredient:  query.Ingredient,
		Context:     usage,
		Hybrid:      query.Hybrid,
		Substitutes: subs,
	}, nil
}

// PantryCoverage reports which recipe ingredients the pantry already covers.
// Substitute lookups for missing ingredients degrade to empty lists when the
// graph fails.
func (s *SubstitutionService) PantryCoverage(ctx context.Context, req domain.PantryRequest) (domain.PantryCoverage, error) {
	ingredients, err := s.recipeIngredients(ctx, req)
	if err != nil {
		return domain.PantryCoverage{}, err
	}
	topK := clampTopK(req.TopK, defaultPantryTopK, maxSubstituteTopK)
	pantry := newPantryMatcher(req.Pantry)

	out := domain.PantryCoverage{
		TotalIngredients: len(ingredients),
		Have:             []domain.PantryMatch{},
		Missing:          []domain.MissingIngredient{},
	}
	for _, ingredient := range ingredients {
		if item, ok := pantry.match(ingredient); ok {
			out.Have = append(out.Have, domain.PantryMatch{Ingredient: ingredient, MatchedAs: item})
			continue
		}
		out.Missing = append(out.Missing, s.missingIngredient(ctx, ingredient, pantry, topK))
	}

	out.HaveCount = len(out.Have)
	out.MissingCount = out.TotalIngredients - out.HaveCount
	out.Coverage = roundTo(float64(out.HaveCount)/float64(max(out.TotalIngredients, 1)), 2)
	return out, nil
}

func (s *SubstitutionService) recipeIngredients(ctx context.Context, req domain.PantryRequest) ([]string, error) {
	ingredients := req.RecipeIngredients
	if len(ingredients) == 0 && req.RecipeID > 0 {
		if s.recipes == nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "pantry coverage", errors.New("ingredient graph not configured"))
		}
		byID, err := s.recipes.IngredientsOf(ctx, []int64{req.RecipeID})
		if err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "pantry coverage", err)
		}
		names, ok := byID[req.RecipeID]
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "pantry coverage", errors.New("recipe not found"))
		}
		ingredients = names
	}

	out := make([]string, 0, len(ingredients))
	seen := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		norm := normalizeIngredient(ing)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "pantry coverage", errors.New("recipe_ingredients or recipe_id is required"))
	}
	return out, nil
}

func (s *SubstitutionService) missingIngredient(ctx context.Context, ingredient string, pantry pantryMatcher, topK int) domain.MissingIngredient {
	entry := domain.MissingIngredient{
		Ingredient:        ingredient,
		PantrySubstitutes: []domain.Substitute{},
		OtherSubstitutes:  []domain.Substitute{},
	}
	if s.graph == nil {
		return entry
	}

	edges, err := s.graph.SubstitutesOf(ctx, ingredient, "", topK*substituteFanout)
	if err != nil {
		slog.Warn("pantry_substitutes_failed", "ingredient", ingredient, "error", err)
		return entry
	}
	for _, sub := range rankSubstitutes(ingredient, edges, true) {
		if _, ok := pantry.match(sub.Name); ok {
			if len(entry.PantrySubstitutes) < topK {
				entry.PantrySubstitutes = append(entry.PantrySubstitutes, sub)
			}
			continue
		}
		if len(entry.OtherSubstitutes) < topK {
			entry.OtherSubstitutes = append(entry.OtherSubstitutes, sub)
		}
	}
	return entry
}

// rankSubstitutes merges edges per substitute name. Without hybrid only
// curated edges count. With hybrid the score is
// hybridAlpha*direct + (1-hybridAlpha)*similar and the source names which
// edge kinds contributed.
func rankSubstitutes(ingredient string, edges []domain.SubstituteEdge, hybrid bool) []domain.Substitute {
	type scores struct {
		direct, similar       float64
		hasDirect, hasSimilar bool
		context               string
	}
	byName := make(map[string]*scores, len(edges))
	order := make([]string, 0, len(edges))
	for _, edge := range edges {
		name := normalizeIngredient(edge.Name)
		if name == "" || name == ingredient {
			continue
		}
		sc, ok := byName[name]
		if !ok {
			sc = &scores{}
			byName[name] = sc
			order = append(order, name)
		}
		switch edge.Kind {
		case domain.SubstituteSourceDirect:
			if !sc.hasDirect || edge.Score > sc.direct {
				sc.direct = edge.Score
				sc.context = edge.Context
			}
			sc.hasDirect = true
		case domain.SubstituteSourceSimilar:
			if !sc.hasSimilar || edge.Score > sc.similar {
				sc.similar = edge.Score
			}
			sc.hasSimilar = true
		}
	}

	out := make([]domain.Substitute, 0, len(order))
	for _, name := range order {
		sc := byName[name]
		sub := domain.Substitute{Name: name, Context: sc.context}
		switch {
		case !hybrid:
			if !sc.hasDirect {
				continue
			}
			sub.Score = sc.direct
			sub.Source = domain.SubstituteSourceDirect
		case sc.hasDirect && sc.hasSimilar:
			sub.Score = hybridAlpha*sc.direct + (1-hybridAlpha)*sc.similar
			sub.Source = domain.SubstituteSourceHybrid
		case sc.hasDirect:
			sub.Score = hybridAlpha * sc.direct
			sub.Source = domain.SubstituteSourceDirect
		case sc.hasSimilar:
			sub.Score = (1 - hybridAlpha) * sc.similar
			sub.Source = domain.SubstituteSourceSimilar
		default:
			continue
		}
		sub.Score = roundTo(sub.Score, 4)
		out = append(out, sub)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// pantryMatcher matches ingredients against pantry items on word
// boundaries, so "onion" covers "green onion" but "corn" does not cover
// "popcorn". A trailing "s" or "es" on the ingredient is accepted.
type pantryMatcher struct {
	items    []string
	patterns []*regexp.Regexp
}

func newPantryMatcher(pantry []string) pantryMatcher {
	m := pantryMatcher{}
	seen := make(map[string]struct{}, len(pantry))
	for _, item := range pantry {
		item = normalizeIngredient(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		m.items = append(m.items, item)
		m.patterns = append(m.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(item)+`(s|es)?\b`))
	}
	return m
}

func (m pantryMatcher) match(ingredient string) (string, bool) {
	ingredient = normalizeIngredient(ingredient)
	for i, item := range m.items {
		if item == ingredient || m.patterns[i].MatchString(ingredient) {
			return item, true
		}
	}
	return "", false
}

func normalizeIngredient(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func clampTopK(k, fallback, limit int) int {
	if k <= 0 {
		return fallback
	}
	return min(k, limit)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
