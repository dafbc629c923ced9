package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/plateplanner/internal/config"
	"github.com/kirillkom/plateplanner/internal/core/ports"
	"github.com/kirillkom/plateplanner/internal/core/usecase"
	rediscache "github.com/kirillkom/plateplanner/internal/infrastructure/cache/redis"
	"github.com/kirillkom/plateplanner/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/plateplanner/internal/infrastructure/llm"
	"github.com/kirillkom/plateplanner/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/plateplanner/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/plateplanner/internal/infrastructure/llm/openai"
	"github.com/kirillkom/plateplanner/internal/infrastructure/queue/nats"
	"github.com/kirillkom/plateplanner/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/plateplanner/internal/infrastructure/resilience"
	"github.com/kirillkom/plateplanner/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/plateplanner/internal/infrastructure/vector/qdrant"
)

const (
	VectorBackendQdrant   = "qdrant"
	VectorBackendPGVector = "pgvector"
)

// API holds the use cases served by cmd/api.
type API struct {
	Config config.Config

	Recommender   ports.Recommender
	Assistant     ports.RecipeAssistant
	Substitutions ports.IngredientSubstitutions
	Dietary       ports.DietaryClassifier
	Retrieval     *usecase.RetrievalService
	Executor      *resilience.Executor

	closers []func()
}

// Worker holds the event consumer pieces used by cmd/worker.
type Worker struct {
	Config config.Config

	Events   ports.RecommendationEventSubscriber
	Recorder ports.RecommendationRecorder

	closers []func()
}

func NewAPI(ctx context.Context, cfg config.Config, recorder llm.GenerationRecorder) (*API, error) {
	app := &API{Config: cfg}
	executor := resilience.NewExecutor(ExecutorConfig(cfg))
	app.Executor = executor

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	storeReady := true
	if err := preparePostgres(ctx, db); err != nil {
		storeReady = false
		slog.Error("postgres_unavailable", "error", err)
	}

	ollamaClient := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	index, err := newRecipeIndex(cfg, db, executor)
	if err != nil {
		app.Close()
		return nil, err
	}

	graph, err := neo4j.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase, executor)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	app.closers = append(app.closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = graph.Close(closeCtx)
	})

	provider, strategies := LLMStrategies(cfg, ollamaClient)
	generator := llm.NewChain(provider, strategies, executor, recorder)
	slog.Info("llm_backend_selected", "provider", provider, "models", strategyNames(strategies))

	var cache ports.ExplanationCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("explanation_cache_disabled", "error", err)
		} else {
			cache = rediscache.NewExplanationCache(client)
			app.closers = append(app.closers, func() { _ = client.Close() })
		}
	}

	var publisher ports.RecommendationEventPublisher
	if strings.TrimSpace(cfg.NATSURL) != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			slog.Warn("recommendation_events_disabled", "error", err)
		} else {
			publisher = queue
			app.closers = append(app.closers, queue.Close)
		}
	}

	retrieval := usecase.NewRetrievalService(embedder, index, postgres.NewRecipeRepository(db))
	if !storeReady {
		slog.Warn("retrieval_warmup_skipped", "reason", "postgres unavailable")
	} else if err := retrieval.Warmup(ctx); err != nil {
		slog.Error("retrieval_warmup_failed", "error", err)
	}

	app.Retrieval = retrieval
	app.Recommender = usecase.NewRecommendUseCase(
		retrieval,
		usecase.NewOntologyFilter(graph),
		usecase.NewNutrientScorer(),
		usecase.NewExplainer(
			generator,
			cache,
			time.Duration(cfg.ExplanationCacheTTLS)*time.Second,
			time.Duration(cfg.ExplanationTimeoutMS)*time.Millisecond,
		),
		publisher,
		usecase.RecommendOptions{
			CandidateCount: cfg.RecommendCandidates,
			TopN:           cfg.RecommendTopN,
		},
	)
	app.Assistant = usecase.NewAssistantUseCase(generator)
	app.Substitutions = usecase.NewSubstitutionService(graph, graph)
	app.Dietary = usecase.NewDietaryClassifier()
	return app, nil
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	app := &Worker{Config: cfg}
	executor := resilience.NewExecutor(ExecutorConfig(cfg))

	db, err := openPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() { _ = db.Close() })

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.closers = append(app.closers, queue.Close)

	app.Events = queue
	app.Recorder = usecase.NewRecordRecommendationUseCase(postgres.NewEventRepository(db))
	return app, nil
}

func (a *API) Close() {
	closeAll(a.closers)
}

func (a *Worker) Close() {
	closeAll(a.closers)
}

func closeAll(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// ExecutorConfig scopes the configured language model retry budget to
// operations under "llm.". Other backends keep the default policy.
func ExecutorConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	base := time.Duration(cfg.LLMRetryBaseDelayMS) * time.Millisecond
	out.Policies = map[string]resilience.RetryPolicy{
		"llm.": {
			MaxAttempts:    cfg.LLMRetryMaxAttempts,
			InitialBackoff: base,
			MaxBackoff:     4 * base,
			Multiplier:     2,
		},
	}
	return out
}

// LLMStrategies builds the ordered model fallback list for the resolved
// provider. A hosted provider without credentials gets no strategies.
func LLMStrategies(cfg config.Config, ollamaClient *ollama.Client) (string, []llm.Strategy) {
	provider := llm.ResolveProvider(cfg.LLMProvider, cfg.GoogleAPIKey, cfg.OpenAIAPIKey)

	var strategies []llm.Strategy
	switch provider {
	case llm.ProviderGoogle:
		if strings.TrimSpace(cfg.GoogleAPIKey) == "" {
			slog.Warn("llm_provider_missing_credentials", "provider", provider)
			break
		}
		client := gemini.New(cfg.GoogleBaseURL, cfg.GoogleAPIKey)
		for _, name := range llm.ModelChain(gemini.Models(cfg.GoogleModel), cfg.LLMFallbackModels) {
			strategies = append(strategies, gemini.NewModel(client, name))
		}
	case llm.ProviderOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			slog.Warn("llm_provider_missing_credentials", "provider", provider)
			break
		}
		client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
		for _, name := range llm.ModelChain([]string{cfg.OpenAIModel}, cfg.LLMFallbackModels) {
			strategies = append(strategies, openai.NewModel(client, name))
		}
	case llm.ProviderOllama:
		if ollamaClient == nil {
			break
		}
		for _, name := range llm.ModelChain([]string{cfg.OllamaGenModel}, cfg.LLMFallbackModels) {
			strategies = append(strategies, ollama.NewGenerator(ollamaClient, name))
		}
	default:
		slog.Warn("llm_provider_unknown", "provider", provider)
	}
	return provider, strategies
}

func newRecipeIndex(cfg config.Config, db *sql.DB, executor *resilience.Executor) (ports.RecipeIndex, error) {
	switch cfg.VectorBackend {
	case VectorBackendQdrant, "":
		return qdrant.NewWithExecutor(cfg.QdrantURL, cfg.QdrantCollection, executor), nil
	case VectorBackendPGVector:
		return pgvector.New(db), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// openPostgres is the strict variant used by the worker, which cannot run
// without the event table.
func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := preparePostgres(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func preparePostgres(ctx context.Context, db *sql.DB) error {
	if err := postgres.Ping(ctx, db); err != nil {
		return err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func strategyNames(strategies []llm.Strategy) []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	return names
}
