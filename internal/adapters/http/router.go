package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/plateplanner/internal/config"
	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
	"github.com/kirillkom/plateplanner/internal/observability/metrics"
)

const (
	serviceName = "api"
	mcpPath     = "/mcp"
)

// Dependencies are the inbound use cases and optional extras served by Router.
type Dependencies struct {
	Recommender   ports.Recommender
	Assistant     ports.RecipeAssistant
	Substitutions ports.IngredientSubstitutions
	Dietary       ports.DietaryClassifier
	Retrieval     ports.RetrievalHealth
	Metrics       *metrics.HTTPServerMetrics
	MCP           http.Handler
}

type Router struct {
	cfg           config.Config
	recommender   ports.Recommender
	assistant     ports.RecipeAssistant
	substitutions ports.IngredientSubstitutions
	dietary       ports.DietaryClassifier
	retrieval     ports.RetrievalHealth
	metrics       *metrics.HTTPServerMetrics
	mcp           http.Handler
	validator     *requestValidator
}

func NewRouter(cfg config.Config, deps Dependencies) (*Router, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		cfg:           cfg,
		recommender:   deps.Recommender,
		assistant:     deps.Assistant,
		substitutions: deps.Substitutions,
		dietary:       deps.Dietary,
		retrieval:     deps.Retrieval,
		metrics:       deps.Metrics,
		mcp:           deps.MCP,
		validator:     validator,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	mux.HandleFunc("POST /v1/recommend/hybrid", rt.recommendHybrid)
	mux.HandleFunc("POST /v1/ai/adapt-recipe", rt.adaptRecipe)
	mux.HandleFunc("POST /v1/ai/explain-substitution", rt.explainSubstitution)
	mux.HandleFunc("POST /v1/ai/meal-plan", rt.mealPlan)
	mux.HandleFunc("GET /v1/ai/cooking-tips", rt.cookingTips)
	if rt.substitutions != nil {
		mux.HandleFunc("GET /v1/substitutions", rt.findSubstitutes)
		mux.HandleFunc("POST /v1/substitutions/pantry", rt.pantrySubstitutions)
	}
	if rt.dietary != nil {
		mux.HandleFunc("POST /v1/dietary/classify", rt.classifyDietary)
	}
	if rt.mcp != nil {
		mux.Handle(mcpPath, rt.mcp)
	}
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = validationMiddleware(rt.validator, mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, _ *http.Request) {
	ready := rt.retrieval == nil || rt.retrieval.Ready()
	if rt.metrics != nil {
		rt.metrics.SetRetrievalReady(ready)
	}
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":    "unavailable",
			"retrieval": "not loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) recommendHybrid(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result, err := rt.recommender.Recommend(r.Context(), req)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.recordPipeline("failed", "request", 0, time.Since(start))
		if status == http.StatusBadRequest {
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("hybrid_recommendation_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "hybrid recommendation failed"})
		return
	}

	rt.recordPipeline(string(result.Status), pipelineStage(result), len(result.TopRecommendations), time.Since(start))
	if result.Status == domain.PipelineStatusError {
		writeJSON(w, http.StatusNotFound, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) adaptRecipe(w http.ResponseWriter, r *http.Request) {
	var req domain.AdaptRecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rt.respondAssistant(w, r, "adapt_recipe", func(ctx context.Context) (domain.AssistantResponse, error) {
		return rt.assistant.AdaptRecipe(ctx, req)
	})
}

func (rt *Router) explainSubstitution(w http.ResponseWriter, r *http.Request) {
	var req domain.SubstitutionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rt.respondAssistant(w, r, "explain_substitution", func(ctx context.Context) (domain.AssistantResponse, error) {
		return rt.assistant.ExplainSubstitution(ctx, req)
	})
}

func (rt *Router) mealPlan(w http.ResponseWriter, r *http.Request) {
	var req domain.MealPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rt.respondAssistant(w, r, "meal_plan", func(ctx context.Context) (domain.AssistantResponse, error) {
		return rt.assistant.SuggestMealPlan(ctx, req)
	})
}

func (rt *Router) cookingTips(w http.ResponseWriter, r *http.Request) {
	recipe := r.URL.Query().Get("recipe")
	skillLevel := r.URL.Query().Get("skill_level")
	rt.respondAssistant(w, r, "cooking_tips", func(ctx context.Context) (domain.AssistantResponse, error) {
		return rt.assistant.CookingTips(ctx, recipe, skillLevel)
	})
}

func (rt *Router) findSubstitutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.SubstituteQuery{
		Ingredient: q.Get("ingredient"),
		Context:    q.Get("context"),
	}
	query.Hybrid, _ = strconv.ParseBool(q.Get("hybrid"))
	query.TopK, _ = strconv.Atoi(q.Get("top_k"))

	result, err := rt.substitutions.Substitutes(r.Context(), query)
	if err != nil {
		rt.writeError(w, r, "substitutes", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) pantrySubstitutions(w http.ResponseWriter, r *http.Request) {
	var req domain.PantryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := rt.substitutions.PantryCoverage(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, "pantry_substitutions", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) classifyDietary(w http.ResponseWriter, r *http.Request) {
	var req domain.DietaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, rt.dietary.Classify(req.Ingredients))
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"endpoint", endpoint,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (rt *Router) respondAssistant(
	w http.ResponseWriter,
	r *http.Request,
	endpoint string,
	call func(context.Context) (domain.AssistantResponse, error),
) {
	resp, err := call(r.Context())
	if err != nil {
		rt.writeError(w, r, endpoint, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAssistantRequest(serviceName, endpoint, resp.Provider)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) recordPipeline(status, stage string, recommendations int, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordPipeline(serviceName, status, stage, recommendations, duration)
}

// pipelineStage names the stage that ended a run.
func pipelineStage(result *domain.PipelineResult) string {
	if result.Status == domain.PipelineStatusSuccess {
		return "complete"
	}
	switch result.Message {
	case domain.MessageNoRecipesFound:
		return "retrieval"
	case domain.MessageNoSafeRecipes:
		return "ontology"
	case domain.MessageRankingFailed:
		return "nutrient"
	default:
		return "unknown"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
