package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/infrastructure/resilience"
)

// ingredientsQuery matches recipe ids stored either as integers or strings.
// Recipes without ingredient edges still return a row with an empty list.
const ingredientsQuery = `
UNWIND $recipe_ids AS rid
MATCH (r:Recipe)
WHERE r.recipe_id = toInteger(rid) OR r.recipe_id = toString(rid)
OPTIONAL MATCH (r)-[:HAS_INGREDIENT]->(i:Ingredient)
RETURN r.recipe_id AS recipe_id, collect(toLower(i.name)) AS ingredients`

// substitutesQuery returns curated substitution edges, optionally scoped to a
// usage context, followed by embedding similarity edges in either direction.
const substitutesQuery = `
MATCH (i:Ingredient)-[r:SUBSTITUTES_WITH]->(s:Ingredient)
WHERE toLower(i.name) = $ingredient
  AND ($context = '' OR r.context IS NULL OR toLower(r.context) = toLower($context))
RETURN s.name AS name, coalesce(r.score, 1.0) AS score, 'direct' AS kind, coalesce(r.context, '') AS context
ORDER BY score DESC
LIMIT $limit
UNION ALL
MATCH (i:Ingredient)-[r:SIMILAR_TO]-(s:Ingredient)
WHERE toLower(i.name) = $ingredient
RETURN s.name AS name, coalesce(r.score, 0.0) AS score, 'similar' AS kind, '' AS context
ORDER BY score DESC
LIMIT $limit`

type queryFunc func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)

// IngredientGraph reads recipe-ingredient edges for the dietary filter and
// ingredient-ingredient edges for substitution lookups.
type IngredientGraph struct {
	driver   neo4j.DriverWithContext
	query    queryFunc
	executor *resilience.Executor
}

const verifyTimeout = 5 * time.Second

// Connect creates the driver and checks connectivity once. An unreachable
// server is logged, not returned: the driver dials lazily and queries fail
// through the executor until the graph comes back.
func Connect(ctx context.Context, uri, user, password, database string, executor *resilience.Executor) (*IngredientGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		slog.Warn("neo4j_unreachable", "uri", uri, "error", err)
	}

	g := &IngredientGraph{driver: driver, executor: executor}
	g.query = func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
		if strings.TrimSpace(database) != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(database))
		}
		result, err := neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		return result.Records, nil
	}
	return g, nil
}

func (g *IngredientGraph) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

func (g *IngredientGraph) IngredientsOf(ctx context.Context, ids []int64) (map[int64][]string, error) {
	if len(ids) == 0 {
		return map[int64][]string{}, nil
	}

	params := map[string]any{"recipe_ids": ids}
	var records []*neo4j.Record
	call := func(ctx context.Context) error {
		out, err := g.query(ctx, ingredientsQuery, params)
		if err != nil {
			return fmt.Errorf("neo4j ingredients query: %w", err)
		}
		records = out
		return nil
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "neo4j.ingredients", call, classifyNeo4jError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]string, len(records))
	for _, record := range records {
		rawID, _ := record.Get("recipe_id")
		id, ok := toInt64(rawID)
		if !ok {
			continue
		}
		rawNames, _ := record.Get("ingredients")
		out[id] = append(out[id], toStrings(rawNames)...)
	}
	return out, nil
}

func (g *IngredientGraph) SubstitutesOf(ctx context.Context, ingredient, usage string, limit int) ([]domain.SubstituteEdge, error) {
	ingredient = strings.ToLower(strings.TrimSpace(ingredient))
	if ingredient == "" || limit <= 0 {
		return nil, nil
	}

	params := map[string]any{
		"ingredient": ingredient,
		"context":    strings.TrimSpace(usage),
		"limit":      int64(limit),
	}
	var records []*neo4j.Record
	call := func(ctx context.Context) error {
		out, err := g.query(ctx, substitutesQuery, params)
		if err != nil {
			return fmt.Errorf("neo4j substitutes query: %w", err)
		}
		records = out
		return nil
	}

	var err error
	if g.executor != nil {
		err = g.executor.Execute(ctx, "neo4j.substitutes", call, classifyNeo4jError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.SubstituteEdge, 0, len(records))
	for _, record := range records {
		rawName, _ := record.Get("name")
		name, _ := rawName.(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		rawScore, _ := record.Get("score")
		rawKind, _ := record.Get("kind")
		rawContext, _ := record.Get("context")
		kind, _ := rawKind.(string)
		usageContext, _ := rawContext.(string)
		out = append(out, domain.SubstituteEdge{
			Name:    strings.ToLower(strings.TrimSpace(name)),
			Score:   toFloat64(rawScore),
			Kind:    kind,
			Context: usageContext,
		})
	}
	return out, nil
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	if neo4j.IsRetryable(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	default:
		return 0
	}
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
