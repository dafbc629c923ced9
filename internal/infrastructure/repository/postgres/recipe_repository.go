package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

// RecipeRepository reads recipe metadata produced by the offline import.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.RecipeMetadata, error) {
	if len(ids) == 0 {
		return map[int64]domain.RecipeMetadata{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, ingredients, directions, ner, calories_per_serving
FROM recipes
WHERE id IN (`+strings.Join(placeholders, ",")+`)
`, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.RecipeMetadata, len(ids))
	for rows.Next() {
		var (
			meta        domain.RecipeMetadata
			ingredients sql.NullString
			directions  sql.NullString
			ner         sql.NullString
			calories    sql.NullFloat64
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &ingredients, &directions, &ner, &calories); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}

		raw := ner.String
		if strings.TrimSpace(raw) == "" {
			raw = ingredients.String
		}
		meta.Ingredients = parseList(raw)
		meta.Directions = joinDirections(directions.String)
		if calories.Valid {
			v := calories.Float64
			meta.CaloriesPerServing = &v
		}
		out[meta.ID] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return out, nil
}

// parseList accepts a JSON array, a Python-style list literal with single
// quotes, or a comma-separated string.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return trimAll(items)
		}
		if items, ok := parseQuotedList(raw); ok {
			return trimAll(items)
		}
	}
	return trimAll(strings.Split(raw, ","))
}

func parseQuotedList(raw string) ([]string, bool) {
	inner := strings.TrimSpace(raw[1:])
	if !strings.HasSuffix(inner, "]") {
		return nil, false
	}
	inner = inner[:len(inner)-1]

	var (
		items   []string
		current strings.Builder
		quote   rune
		escaped bool
	)
	for _, ch := range inner {
		switch {
		case quote == 0:
			if ch == '\'' || ch == '"' {
				quote = ch
				current.Reset()
			} else if ch != ',' && ch != ' ' && ch != '\t' && ch != '\n' {
				return nil, false
			}
		case escaped:
			current.WriteRune(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == quote:
			items = append(items, current.String())
			quote = 0
		default:
			current.WriteRune(ch)
		}
	}
	if quote != 0 {
		return nil, false
	}
	return items, true
}

func joinDirections(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return raw
	}
	var steps []string
	if err := json.Unmarshal([]byte(trimmed), &steps); err == nil {
		return strings.Join(steps, "\n")
	}
	if steps, ok := parseQuotedList(trimmed); ok {
		return strings.Join(steps, "\n")
	}
	return raw
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
