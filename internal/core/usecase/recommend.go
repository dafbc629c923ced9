package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

const (
	defaultTopN = 5
	maxTopN     = 5
)

type RecommendOptions struct {
	CandidateCount int
	TopN           int
}

// RecommendUseCase sequences retrieval, ontology filtering, nutrient scoring
// and explanation. Empty stage output short-circuits with an error result.
type RecommendUseCase struct {
	retrieval *RetrievalService
	filter    *OntologyFilter
	scorer    *NutrientScorer
	explainer *Explainer
	publisher ports.RecommendationEventPublisher

	candidateCount int
	topN           int
	now            func() time.Time
}

func NewRecommendUseCase(
	retrieval *RetrievalService,
	filter *OntologyFilter,
	scorer *NutrientScorer,
	explainer *Explainer,
	publisher ports.RecommendationEventPublisher,
	opts RecommendOptions,
) *RecommendUseCase {
	if opts.CandidateCount <= 0 {
		opts.CandidateCount = defaultCandidateCount
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	opts.TopN = min(opts.TopN, maxTopN)
	return &RecommendUseCase{
		retrieval:      retrieval,
		filter:         filter,
		scorer:         scorer,
		explainer:      explainer,
		publisher:      publisher,
		candidateCount: opts.CandidateCount,
		topN:           opts.TopN,
		now:            time.Now,
	}
}

func (uc *RecommendUseCase) Recommend(ctx context.Context, req domain.RecommendRequest) (*domain.PipelineResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recommend", errors.New("query is required"))
	}

	result, err := uc.run(ctx, query, req)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, req, result)
	return result, nil
}

func (uc *RecommendUseCase) run(ctx context.Context, query string, req domain.RecommendRequest) (*domain.PipelineResult, error) {
	slog.Info("pipeline_start", "query", query, "restrictions", len(req.Restrictions), "goals", len(req.Goals))

	candidates := uc.retrieval.Candidates(ctx, query, uc.candidateCount)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		slog.Warn("pipeline_stage", "stage", "retrieval", "kept", 0)
		return domain.PipelineError(domain.MessageNoRecipesFound), nil
	}
	slog.Info("pipeline_stage", "stage", "retrieval", "kept", len(candidates))

	safe := uc.filter.Filter(ctx, candidates, req.Restrictions)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(safe) == 0 {
		slog.Warn("pipeline_stage", "stage", "ontology", "kept", 0, "restrictions", req.Restrictions)
		return domain.PipelineError(domain.MessageNoSafeRecipes), nil
	}
	slog.Info("pipeline_stage", "stage", "ontology", "kept", len(safe))

	ranked := uc.scorer.Rank(safe, req.Goals)
	if len(ranked) == 0 {
		return domain.PipelineError(domain.MessageRankingFailed), nil
	}
	slog.Info("pipeline_stage", "stage", "nutrient", "kept", len(ranked))

	explanation := uc.explainer.Explain(ctx, ranked[0], domain.UserContext{
		Goals:        req.Goals,
		Restrictions: req.Restrictions,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranked[0].Explanation = explanation
	slog.Info("pipeline_stage", "stage", "explanation", "recipe_id", ranked[0].RecipeID)

	top := ranked
	if len(top) > uc.topN {
		top = top[:uc.topN]
	}
	return &domain.PipelineResult{
		Status:             domain.PipelineStatusSuccess,
		TopRecommendations: top,
		PrimaryExplanation: explanation,
	}, nil
}

func (uc *RecommendUseCase) publish(ctx context.Context, req domain.RecommendRequest, result *domain.PipelineResult) {
	if uc.publisher == nil || result == nil {
		return
	}

	ids := make([]int64, 0, len(result.TopRecommendations))
	for _, r := range result.TopRecommendations {
		ids = append(ids, r.RecipeID)
	}
	event := domain.RecommendationEvent{
		ID:           uuid.NewString(),
		Query:        req.Query,
		Goals:        req.Goals,
		Restrictions: req.Restrictions,
		Status:       result.Status,
		Message:      result.Message,
		RecipeIDs:    ids,
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.publisher.PublishRecommendation(ctx, event); err != nil {
		slog.Warn("recommendation_event_publish_failed", "event_id", event.ID, "error", err)
	}
}
