package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

type embedderFake struct {
	queries []string
	vector  []float32
	err     error
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{3, 4}, nil
	}
	out := make([]float32, len(f.vector))
	copy(out, f.vector)
	return out, nil
}

type indexFake struct {
	hits     []domain.IndexHit
	err      error
	readyErr error

	gotVector []float32
	gotK      int
	calls     int
}

func (f *indexFake) Search(_ context.Context, vector []float32, k int) ([]domain.IndexHit, error) {
	f.calls++
	f.gotVector = vector
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *indexFake) Ready(context.Context) error { return f.readyErr }

type metadataFake struct {
	rows map[int64]domain.RecipeMetadata
	err  error
}

func (f *metadataFake) GetByIDs(_ context.Context, ids []int64) (map[int64]domain.RecipeMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]domain.RecipeMetadata, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

type graphFake struct {
	ingredients map[int64][]string
	err         error
	calls       int
	gotIDs      []int64
}

func (f *graphFake) IngredientsOf(_ context.Context, ids []int64) (map[int64][]string, error) {
	f.calls++
	f.gotIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64][]string, len(ids))
	for _, id := range ids {
		if names, ok := f.ingredients[id]; ok {
			out[id] = names
		}
	}
	return out, nil
}

type substituteGraphFake struct {
	edges map[string][]domain.SubstituteEdge
	err   error

	gotUsage []string
	gotLimit []int
}

func (f *substituteGraphFake) SubstitutesOf(_ context.Context, ingredient, usage string, limit int) ([]domain.SubstituteEdge, error) {
	f.gotUsage = append(f.gotUsage, usage)
	f.gotLimit = append(f.gotLimit, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.edges[ingredient], nil
}

type generatorFake struct {
	text     string
	err      error
	provider string

	prompts      []string
	systemPrompt string
	temperature  float64
}

func (f *generatorFake) Generate(_ context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.systemPrompt = systemPrompt
	f.temperature = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *generatorFake) Provider() string {
	if f.provider == "" {
		return "fake"
	}
	return f.provider
}

type cacheFake struct {
	mu     sync.Mutex
	values map[string]string
	ttl    time.Duration
}

func (f *cacheFake) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *cacheFake) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	f.ttl = ttl
	return nil
}

type publisherFake struct {
	events []domain.RecommendationEvent
	err    error
}

func (f *publisherFake) PublishRecommendation(_ context.Context, event domain.RecommendationEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type eventStoreFake struct {
	saved []domain.RecommendationEvent
	err   error
}

func (f *eventStoreFake) SaveEvent(_ context.Context, event domain.RecommendationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, event)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func candidate(id int64, score float64) domain.Candidate {
	return domain.Candidate{RecipeID: id, Title: "recipe", SemanticScore: score}
}

func candidateIDs(in []domain.Candidate) []int64 {
	out := make([]int64, 0, len(in))
	for _, c := range in {
		out = append(out, c.RecipeID)
	}
	return out
}

func scoredIDs(in []domain.ScoredCandidate) []int64 {
	out := make([]int64, 0, len(in))
	for _, c := range in {
		out = append(out, c.RecipeID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
