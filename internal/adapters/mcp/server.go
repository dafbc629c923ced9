// Package mcpadapter exposes the recommendation pipeline, the recipe
// assistant and ingredient substitution as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/core/ports"
)

const (
	serverName    = "plateplanner"
	serverVersion = "1.0.0"

	toolRecommendRecipes = "recommend_recipes"
	toolCookingTips      = "cooking_tips"
	toolFindSubstitutes  = "find_substitutes"
)

type Server struct {
	recommender   ports.Recommender
	assistant     ports.RecipeAssistant
	substitutions ports.IngredientSubstitutions
	mcp           *server.MCPServer
}

// NewServer registers find_substitutes only when substitutions is non-nil.
func NewServer(recommender ports.Recommender, assistant ports.RecipeAssistant, substitutions ports.IngredientSubstitutions) *Server {
	s := &Server{
		recommender:   recommender,
		assistant:     assistant,
		substitutions: substitutions,
		mcp:           server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(toolRecommendRecipes,
		mcp.WithDescription("Recommend recipes for a free-text craving, skipping recipes with restricted ingredients and ranking by calorie target."),
		mcp.WithString("query", mcp.Required(), mcp.Description("What the user wants to eat.")),
		mcp.WithNumber("target_calories", mcp.Description("Desired calories per serving. Omit for no calorie preference.")),
		mcp.WithArray("restrictions",
			mcp.Description("Ingredient terms that must not appear in any recommended recipe."),
			mcp.WithStringItems(),
		),
	), s.recommendRecipes)

	s.mcp.AddTool(mcp.NewTool(toolCookingTips,
		mcp.WithDescription("Give practical cooking tips for a recipe."),
		mcp.WithString("recipe", mcp.Required(), mcp.Description("Recipe title.")),
		mcp.WithString("skill_level",
			mcp.Description("Cook skill level."),
			mcp.Enum("beginner", "intermediate", "advanced"),
		),
	), s.cookingTips)

	if substitutions != nil {
		s.mcp.AddTool(mcp.NewTool(toolFindSubstitutes,
			mcp.WithDescription("Find replacement ingredients from the ingredient graph."),
			mcp.WithString("ingredient", mcp.Required(), mcp.Description("Ingredient to replace.")),
			mcp.WithString("context", mcp.Description("Usage context such as baking or frying.")),
			mcp.WithBoolean("hybrid", mcp.Description("Blend curated substitutions with similarity edges.")),
			mcp.WithNumber("top_k", mcp.Description("Number of substitutes to return.")),
		), s.findSubstitutes)
	}

	return s
}

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func (s *Server) recommendRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	recommendReq := domain.RecommendRequest{
		Query:        query,
		Restrictions: req.GetStringSlice("restrictions", nil),
	}
	if target := req.GetFloat("target_calories", 0); target > 0 {
		recommendReq.Goals = domain.UserGoals{domain.GoalTargetCalories: target}
	}

	result, err := s.recommender.Recommend(ctx, recommendReq)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolRecommendRecipes, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) cookingTips(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipe, err := req.RequireString("recipe")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.assistant.CookingTips(ctx, recipe, req.GetString("skill_level", ""))
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolCookingTips, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(resp.Response), nil
}

func (s *Server) findSubstitutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ingredient, err := req.RequireString("ingredient")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.substitutions.Substitutes(ctx, domain.SubstituteQuery{
		Ingredient: ingredient,
		Context:    req.GetString("context", ""),
		Hybrid:     req.GetBool("hybrid", false),
		TopK:       req.GetInt("top_k", 0),
	})
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolFindSubstitutes, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
