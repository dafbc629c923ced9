package pgvector

import (
	"context"
	"database/sql"
	"fmt"

	pgv "github.com/pgvector/pgvector-go"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

// Index searches recipe embeddings stored in Postgres with the pgvector
// extension. Vectors are unit length, so negative inner product ordering
// matches cosine similarity.
type Index struct {
	db *sql.DB
}

func New(db *sql.DB) *Index {
	return &Index{db: db}
}

const searchQuery = `
SELECT recipe_id, -(embedding <#> $1) AS similarity
FROM recipe_embeddings
ORDER BY embedding <#> $1
LIMIT $2`

func (i *Index) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.IndexHit, error) {
	if len(queryVector) == 0 || limit <= 0 {
		return nil, nil
	}

	rows, err := i.db.QueryContext(ctx, searchQuery, pgv.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.IndexHit, 0, limit)
	for rows.Next() {
		var hit domain.IndexHit
		if err := rows.Scan(&hit.RecipeID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan pgvector hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pgvector hits: %w", err)
	}
	return out, nil
}

func (i *Index) Ready(ctx context.Context) error {
	var populated bool
	err := i.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM recipe_embeddings)`).Scan(&populated)
	if err != nil {
		return fmt.Errorf("pgvector readiness: %w", err)
	}
	if !populated {
		return fmt.Errorf("pgvector table recipe_embeddings is empty")
	}
	return nil
}
