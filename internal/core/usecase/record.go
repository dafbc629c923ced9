package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

// RecordRecommendationUseCase persists pipeline outcomes consumed by the worker.
type RecordRecommendationUseCase struct {
	store ports.RecommendationEventStore
}

func NewRecordRecommendationUseCase(store ports.RecommendationEventStore) *RecordRecommendationUseCase {
	return &RecordRecommendationUseCase{store: store}
}

func (uc *RecordRecommendationUseCase) Record(ctx context.Context, event domain.RecommendationEvent) error {
	if strings.TrimSpace(event.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record recommendation", errors.New("event id is required"))
	}
	if event.Status != domain.PipelineStatusSuccess && event.Status != domain.PipelineStatusError {
		return domain.WrapError(domain.ErrInvalidInput, "record recommendation", fmt.Errorf("unknown status %q", event.Status))
	}
	if event.Goals == nil {
		event.Goals = domain.UserGoals{}
	}
	if event.Restrictions == nil {
		event.Restrictions = []string{}
	}
	if event.RecipeIDs == nil {
		event.RecipeIDs = []int64{}
	}

	if err := uc.store.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("save recommendation event: %w", err)
	}
	return nil
}
