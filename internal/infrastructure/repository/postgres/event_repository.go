package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// SaveEvent is idempotent on event id so redelivered messages are harmless.
func (r *EventRepository) SaveEvent(ctx context.Context, event domain.RecommendationEvent) error {
	goalsJSON, err := json.Marshal(event.Goals)
	if err != nil {
		return fmt.Errorf("marshal goals: %w", err)
	}
	restrictionsJSON, err := json.Marshal(event.Restrictions)
	if err != nil {
		return fmt.Errorf("marshal restrictions: %w", err)
	}
	idsJSON, err := json.Marshal(event.RecipeIDs)
	if err != nil {
		return fmt.Errorf("marshal recipe ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO recommendation_events (
	id, query, goals, restrictions, status, message, recipe_ids, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`,
		event.ID, event.Query, goalsJSON, restrictionsJSON, string(event.Status), nullableString(event.Message), idsJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recommendation event: %w", err)
	}
	return nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

