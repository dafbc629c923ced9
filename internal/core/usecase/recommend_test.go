package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/plateplanner/internal/core/domain"
)

type pipelineFixture struct {
	index     *indexFake
	store     *metadataFake
	graph     *graphFake
	generator *generatorFake
	publisher *publisherFake
	opts      RecommendOptions
}

func newPipelineFixture(n int) *pipelineFixture {
	hits := make([]domain.IndexHit, 0, n)
	rows := make(map[int64]domain.RecipeMetadata, n)
	ingredients := make(map[int64][]string, n)
	for i := 1; i <= n; i++ {
		id := int64(i)
		hits = append(hits, domain.IndexHit{RecipeID: id, Similarity: 1 - float64(i)/100})
		rows[id] = domain.RecipeMetadata{ID: id, Title: "recipe", Ingredients: []string{"chicken", "broth"}}
		ingredients[id] = []string{"chicken", "broth"}
	}
	return &pipelineFixture{
		index:     &indexFake{hits: hits},
		store:     &metadataFake{rows: rows},
		graph:     &graphFake{ingredients: ingredients},
		generator: &generatorFake{text: "because it is cozy"},
		publisher: &publisherFake{},
	}
}

func (f *pipelineFixture) useCase(t *testing.T) *RecommendUseCase {
	t.Helper()
	retrieval := NewRetrievalService(&embedderFake{}, f.index, f.store)
	if err := retrieval.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup() error = %v", err)
	}
	return NewRecommendUseCase(
		retrieval,
		NewOntologyFilter(f.graph),
		NewNutrientScorer(),
		NewExplainer(f.generator, nil, 0, 0),
		f.publisher,
		f.opts,
	)
}

func TestRecommendWithoutGoalsKeepsRetrievalOrder(t *testing.T) {
	fx := newPipelineFixture(8)
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "chicken soup"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Status != domain.PipelineStatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if !equalIDs(scoredIDs(res.TopRecommendations), []int64{1, 2, 3, 4, 5}) {
		t.Fatalf("expected top 5 in retrieval order, got %v", scoredIDs(res.TopRecommendations))
	}
	if res.PrimaryExplanation != "because it is cozy" || res.TopRecommendations[0].Explanation != res.PrimaryExplanation {
		t.Fatalf("expected explanation on top item, got %+v", res.TopRecommendations[0])
	}
	for _, r := range res.TopRecommendations[1:] {
		if r.Explanation != "" {
			t.Fatalf("only the top item carries an explanation")
		}
	}
	if fx.graph.calls != 0 {
		t.Fatalf("graph must not be queried without restrictions")
	}
	if fx.index.gotK != defaultCandidateCount {
		t.Fatalf("expected k=%d, got %d", defaultCandidateCount, fx.index.gotK)
	}
}

func TestRecommendAllCandidatesRestricted(t *testing.T) {
	fx := newPipelineFixture(4)
	for id := range fx.graph.ingredients {
		fx.graph.ingredients[id] = []string{"roasted peanuts", "honey"}
	}
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "snack", Restrictions: []string{"peanut"}})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Status != domain.PipelineStatusError || res.Message != domain.MessageNoSafeRecipes {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fx.generator.prompts) != 0 {
		t.Fatalf("explanation must not run after short-circuit")
	}
}

func TestRecommendRanksByCalorieGoal(t *testing.T) {
	fx := newPipelineFixture(2)
	fx.index.hits = []domain.IndexHit{{RecipeID: 1, Similarity: 0.8}, {RecipeID: 2, Similarity: 0.8}}
	fx.store.rows[1] = domain.RecipeMetadata{ID: 1, Title: "heavy", CaloriesPerServing: floatPtr(900)}
	fx.store.rows[2] = domain.RecipeMetadata{ID: 2, Title: "light", CaloriesPerServing: floatPtr(500)}
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{
		Query: "dinner",
		Goals: domain.UserGoals{domain.GoalTargetCalories: 500},
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !equalIDs(scoredIDs(res.TopRecommendations), []int64{2, 1}) {
		t.Fatalf("expected 500-calorie recipe first, got %v", scoredIDs(res.TopRecommendations))
	}
}

func TestRecommendEmptyRetrievalSkipsLaterStages(t *testing.T) {
	fx := newPipelineFixture(0)
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "anything", Restrictions: []string{"egg"}})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Status != domain.PipelineStatusError || res.Message != domain.MessageNoRecipesFound {
		t.Fatalf("unexpected result: %+v", res)
	}
	if fx.graph.calls != 0 || len(fx.generator.prompts) != 0 {
		t.Fatalf("later stages must not run: graph=%d llm=%d", fx.graph.calls, len(fx.generator.prompts))
	}
}

func TestRecommendSucceedsWhenLanguageModelUnreachable(t *testing.T) {
	fx := newPipelineFixture(3)
	fx.generator.err = errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "pasta"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Status != domain.PipelineStatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.PrimaryExplanation != domain.ExplanationUnavailable {
		t.Fatalf("expected fallback explanation, got %q", res.PrimaryExplanation)
	}
}

func TestRecommendGraphOutageFailsClosed(t *testing.T) {
	fx := newPipelineFixture(3)
	fx.graph.err = errors.New("neo4j unavailable")
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "pasta", Restrictions: []string{"gluten"}})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if res.Message != domain.MessageNoSafeRecipes {
		t.Fatalf("expected dietary constraint error, got %+v", res)
	}
}

func TestRecommendRejectsEmptyQuery(t *testing.T) {
	uc := newPipelineFixture(1).useCase(t)

	_, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecommendReturnsContextError(t *testing.T) {
	uc := newPipelineFixture(3).useCase(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Recommend(ctx, domain.RecommendRequest{Query: "pasta"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecommendPublishesOutcomeEvents(t *testing.T) {
	fx := newPipelineFixture(2)
	fx.publisher.err = errors.New("nats down")
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "stew", Restrictions: []string{"pork"}})
	if err != nil {
		t.Fatalf("publish failures must not fail the request: %v", err)
	}
	if res.Status != domain.PipelineStatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(fx.publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(fx.publisher.events))
	}
	event := fx.publisher.events[0]
	if event.ID == "" || event.Query != "stew" || event.Status != domain.PipelineStatusSuccess {
		t.Fatalf("unexpected event: %+v", event)
	}
	if !equalIDs(event.RecipeIDs, []int64{1, 2}) {
		t.Fatalf("unexpected recipe ids: %v", event.RecipeIDs)
	}
}

func TestRecommendCapsConfiguredTopN(t *testing.T) {
	fx := newPipelineFixture(8)
	fx.opts = RecommendOptions{TopN: 8}
	uc := fx.useCase(t)

	res, err := uc.Recommend(context.Background(), domain.RecommendRequest{Query: "chicken soup"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got := len(res.TopRecommendations); got != maxTopN {
		t.Fatalf("expected %d recommendations, got %d", maxTopN, got)
	}
}
