package usecase

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

const defaultCandidateCount = 100

// RetrievalService turns a free-text query into semantically ranked candidates.
// It never returns an error: backend failures degrade to an empty list.
type RetrievalService struct {
	embedder ports.Embedder
	index    ports.RecipeIndex
	store    ports.RecipeMetadataStore

	ready atomic.Bool
}

func NewRetrievalService(
	embedder ports.Embedder,
	index ports.RecipeIndex,
	store ports.RecipeMetadataStore,
) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		store:    store,
	}
}

// Warmup checks the embedding model and the vector index once. When either
// fails the service stays unavailable for the process lifetime.
func (s *RetrievalService) Warmup(ctx context.Context) error {
	if s.embedder == nil || s.index == nil || s.store == nil {
		s.ready.Store(false)
		return domain.ErrBackendUnavailable
	}
	if _, err := s.embedder.EmbedQuery(ctx, "warmup"); err != nil {
		s.ready.Store(false)
		slog.Error("retrieval_warmup_failed", "component", "embedder", "error", err)
		return domain.WrapError(domain.ErrBackendUnavailable, "warmup embedder", err)
	}
	if err := s.index.Ready(ctx); err != nil {
		s.ready.Store(false)
		slog.Error("retrieval_warmup_failed", "component", "index", "error", err)
		return domain.WrapError(domain.ErrBackendUnavailable, "warmup index", err)
	}
	s.ready.Store(true)
	return nil
}

func (s *RetrievalService) Ready() bool {
	return s.ready.Load()
}

func (s *RetrievalService) Candidates(ctx context.Context, query string, k int) []domain.Candidate {
	if !s.Ready() {
		return nil
	}
	if k <= 0 {
		k = defaultCandidateCount
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Error("retrieval_embed_failed", "error", err)
		return nil
	}
	normalizeL2(vector)

	hits, err := s.index.Search(ctx, vector, k)
	if err != nil {
		slog.Error("retrieval_search_failed", "k", k, "error", err)
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.RecipeID)
	}
	rows, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		slog.Error("retrieval_metadata_failed", "ids", len(ids), "error", err)
		return nil
	}

	out := make([]domain.Candidate, 0, len(hits))
	for _, hit := range hits {
		row, ok := rows[hit.RecipeID]
		if !ok {
			continue
		}
		out = append(out, domain.Candidate{
			RecipeID:           row.ID,
			Title:              row.Title,
			Ingredients:        dedupeStrings(row.Ingredients),
			Directions:         row.Directions,
			SemanticScore:      hit.Similarity,
			CaloriesPerServing: row.CaloriesPerServing,
		})
	}
	return out
}

func normalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
