package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/plateplanner/internal/config"
	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/observability/metrics"
)

type recommenderFake struct {
	result *domain.PipelineResult
	err    error
	got    domain.RecommendRequest
	calls  int
}

func (f *recommenderFake) Recommend(_ context.Context, req domain.RecommendRequest) (*domain.PipelineResult, error) {
	f.calls++
	f.got = req
	return f.result, f.err
}

type assistantFake struct {
	err        error
	adapt      domain.AdaptRecipeRequest
	mealPlan   domain.MealPlanRequest
	tipsRecipe string
	tipsLevel  string
}

func (f *assistantFake) AdaptRecipe(_ context.Context, req domain.AdaptRecipeRequest) (domain.AssistantResponse, error) {
	f.adapt = req
	return f.respond("adapted")
}

func (f *assistantFake) ExplainSubstitution(context.Context, domain.SubstitutionRequest) (domain.AssistantResponse, error) {
	return f.respond("swap")
}

func (f *assistantFake) SuggestMealPlan(_ context.Context, req domain.MealPlanRequest) (domain.AssistantResponse, error) {
	f.mealPlan = req
	return f.respond("plan")
}

func (f *assistantFake) CookingTips(_ context.Context, recipe, skillLevel string) (domain.AssistantResponse, error) {
	f.tipsRecipe = recipe
	f.tipsLevel = skillLevel
	return f.respond("tips")
}

func (f *assistantFake) respond(text string) (domain.AssistantResponse, error) {
	if f.err != nil {
		return domain.AssistantResponse{}, f.err
	}
	return domain.AssistantResponse{Response: text, Provider: "ollama"}, nil
}

type readinessFake struct {
	ready bool
}

func (f readinessFake) Ready() bool { return f.ready }

func newTestRouter(t *testing.T, cfg config.Config, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Recommender == nil {
		deps.Recommender = &recommenderFake{result: &domain.PipelineResult{Status: domain.PipelineStatusSuccess}}
	}
	if deps.Assistant == nil {
		deps.Assistant = &assistantFake{}
	}
	router, err := NewRouter(cfg, deps)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestReadyzReflectsRetrievalHealth(t *testing.T) {
	for _, tc := range []struct {
		ready bool
		want  int
	}{
		{ready: true, want: http.StatusOK},
		{ready: false, want: http.StatusServiceUnavailable},
	} {
		handler := newTestRouter(t, config.Config{}, Dependencies{Retrieval: readinessFake{ready: tc.ready}})
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if res.Code != tc.want {
			t.Fatalf("ready=%v: expected %d, got %d", tc.ready, tc.want, res.Code)
		}
	}
}

func TestRecommendHybridSuccess(t *testing.T) {
	fitness := 0.71
	rec := &recommenderFake{result: &domain.PipelineResult{
		Status: domain.PipelineStatusSuccess,
		TopRecommendations: []domain.ScoredCandidate{{
			Candidate:    domain.Candidate{RecipeID: 7, Title: "Chicken Soup"},
			FitnessScore: &fitness,
			Explanation:  "warm and light",
		}},
		PrimaryExplanation: "warm and light",
	}}
	handler := newTestRouter(t, config.Config{}, Dependencies{Recommender: rec, Metrics: metrics.NewHTTPServerMetrics(serviceName)})

	res := postJSON(t, handler, "/v1/recommend/hybrid", map[string]any{
		"query":        "chicken soup",
		"goals":        map[string]float64{"target_calories": 500},
		"restrictions": []string{"peanut"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["status"] != "success" || body["primary_explanation"] != "warm and light" {
		t.Fatalf("unexpected body: %v", body)
	}
	if rec.got.Query != "chicken soup" || rec.got.Goals[domain.GoalTargetCalories] != 500 || rec.got.Restrictions[0] != "peanut" {
		t.Fatalf("unexpected request passed to pipeline: %+v", rec.got)
	}
}

func TestRecommendHybridErrorResultReturns404(t *testing.T) {
	rec := &recommenderFake{result: domain.PipelineError(domain.MessageNoSafeRecipes)}
	handler := newTestRouter(t, config.Config{}, Dependencies{Recommender: rec})

	res := postJSON(t, handler, "/v1/recommend/hybrid", map[string]any{"query": "snack", "restrictions": []string{"peanut"}})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["status"] != "error" || body["message"] != domain.MessageNoSafeRecipes {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRecommendHybridRejectsInvalidBodies(t *testing.T) {
	rec := &recommenderFake{}
	handler := newTestRouter(t, config.Config{}, Dependencies{Recommender: rec})

	for name, payload := range map[string]any{
		"missing query":      map[string]any{"goals": map[string]float64{"target_calories": 500}},
		"empty query":        map[string]any{"query": ""},
		"non-numeric goal":   map[string]any{"query": "soup", "goals": map[string]any{"target_calories": "lots"}},
		"restriction object": map[string]any{"query": "soup", "restrictions": []any{map[string]string{"x": "y"}}},
	} {
		res := postJSON(t, handler, "/v1/recommend/hybrid", payload)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, res.Code)
		}
	}
	if rec.calls != 0 {
		t.Fatalf("pipeline must not run for invalid bodies")
	}
}

func TestRecommendHybridUnexpectedErrorReturns500(t *testing.T) {
	rec := &recommenderFake{err: context.Canceled}
	handler := newTestRouter(t, config.Config{}, Dependencies{Recommender: rec})

	res := postJSON(t, handler, "/v1/recommend/hybrid", map[string]any{"query": "soup"})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["error"] != "hybrid recommendation failed" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAssistantEndpoints(t *testing.T) {
	assistant := &assistantFake{}
	handler := newTestRouter(t, config.Config{}, Dependencies{Assistant: assistant})

	res := postJSON(t, handler, "/v1/ai/adapt-recipe", map[string]any{
		"recipe_title":       "Pancakes",
		"recipe_ingredients": []string{"flour", "milk"},
		"dietary":            "vegan",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("adapt-recipe expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if body := decodeBody(t, res); body["response"] != "adapted" || body["provider"] != "ollama" {
		t.Fatalf("unexpected body: %v", body)
	}
	if assistant.adapt.Dietary != "vegan" {
		t.Fatalf("expected dietary forwarded, got %+v", assistant.adapt)
	}

	res = postJSON(t, handler, "/v1/ai/explain-substitution", map[string]any{"original": "butter", "substitute": "olive oil"})
	if res.Code != http.StatusOK {
		t.Fatalf("explain-substitution expected 200, got %d", res.Code)
	}

	res = postJSON(t, handler, "/v1/ai/meal-plan", map[string]any{"pantry": []string{"rice", "beans"}, "days": 2})
	if res.Code != http.StatusOK {
		t.Fatalf("meal-plan expected 200, got %d", res.Code)
	}
	if assistant.mealPlan.Days != 2 || assistant.mealPlan.MealsPerDay != 0 {
		t.Fatalf("unexpected meal plan request: %+v", assistant.mealPlan)
	}

	tips := httptest.NewRecorder()
	handler.ServeHTTP(tips, httptest.NewRequest(http.MethodGet, "/v1/ai/cooking-tips?recipe=Risotto&skill_level=beginner", nil))
	if tips.Code != http.StatusOK {
		t.Fatalf("cooking-tips expected 200, got %d: %s", tips.Code, tips.Body.String())
	}
	if assistant.tipsRecipe != "Risotto" || assistant.tipsLevel != "beginner" {
		t.Fatalf("unexpected tips args: %q %q", assistant.tipsRecipe, assistant.tipsLevel)
	}
}

func TestAssistantValidation(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{})

	res := postJSON(t, handler, "/v1/ai/meal-plan", map[string]any{"pantry": []string{}})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("empty pantry expected 400, got %d", res.Code)
	}

	tips := httptest.NewRecorder()
	handler.ServeHTTP(tips, httptest.NewRequest(http.MethodGet, "/v1/ai/cooking-tips", nil))
	if tips.Code != http.StatusBadRequest {
		t.Fatalf("missing recipe expected 400, got %d", tips.Code)
	}

	level := httptest.NewRecorder()
	handler.ServeHTTP(level, httptest.NewRequest(http.MethodGet, "/v1/ai/cooking-tips?recipe=Risotto&skill_level=wizard", nil))
	if level.Code != http.StatusBadRequest {
		t.Fatalf("unknown skill level expected 400, got %d", level.Code)
	}
}

func TestRecommendHybridMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/recommend/hybrid", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
