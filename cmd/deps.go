package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/chunkers"
	"github.com/code-sleuth/ike-tube/internal/manager/embedders"
	"github.com/code-sleuth/ike-tube/internal/manager/generators"
	"github.com/code-sleuth/ike-tube/internal/manager/idempotency"
	"github.com/code-sleuth/ike-tube/internal/manager/importers"
	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/repository"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/internal/manager/services"
	"github.com/code-sleuth/ike-tube/internal/manager/store"
	"github.com/code-sleuth/ike-tube/pkg/config"
	"github.com/code-sleuth/ike-tube/pkg/db"
)

// closer releases everything a command opened, in reverse order.
type closer []func() error

func (c *closer) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closer) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i]()
	}
}

func retryOptions(cfg *config.Config) retry.Options {
	return retry.NewOptions(cfg.RetryMaxAttempts, cfg.RetryBaseDelay)
}

func newEmbeddingGateway(cfg *config.Config) (*embedders.Gateway, error) {
	var (
		provider *embedders.OpenAIEmbedder
		err      error
	)
	if embedders.IsTogetherAIModel(cfg.EmbeddingModel) {
		provider, err = embedders.NewTogetherAIEmbedderWithClient(cfg.EmbeddingModel, cfg.TogetherAPIKey, nil, "")
	} else {
		provider, err = embedders.NewOpenAIEmbedderWithClient(cfg.EmbeddingModel, cfg.OpenAIAPIKey, nil, cfg.OpenAIBaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedders.NewGateway(provider, retryOptions(cfg))
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabaseURL, cfg.DatabaseToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

func newVectorRepository(cfg *config.Config, database *db.DB, dimension int) *repository.VectorRepository {
	return repository.NewVectorRepositoryWithOptions(database, repository.VectorRepositoryOptions{
		Dimension: dimension,
		Retry:     retryOptions(cfg),
	})
}

// newCounterStore connects to Redis, or returns an in-process store when
// REDIS_URL is "memory".
func newCounterStore(ctx context.Context, cfg *config.Config) (interfaces.CounterStore, func() error, error) {
	if strings.EqualFold(cfg.RedisURL, config.RedisMemory) {
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
	redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisStore, redisStore.Close, nil
}

func newGenerator(cfg *config.Config, model string) (interfaces.Generator, error) {
	switch cfg.GenerationProvider {
	case config.GeneratorAnthropic:
		return generators.NewAnthropicGenerator(cfg.AnthropicAPIKey, model)
	case config.GeneratorOpenAI:
		return generators.NewOpenAIGeneratorWithClient(cfg.OpenAIAPIKey, model, nil, cfg.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownGenerator, cfg.GenerationProvider)
	}
}

// pipeline holds the orchestrators built for one command.
type pipeline struct {
	ingestion  *services.IngestionService
	query      *services.QueryService
	repository *repository.VectorRepository
	counters   interfaces.CounterStore
	closer     closer
}

type pipelineOptions struct {
	ingestion bool
	query     bool
	// counters connects the shared store even without ingestion
	counters  bool
	maxVideos int
	model     string
}

func buildPipeline(ctx context.Context, cfg *config.Config, opts pipelineOptions) (*pipeline, error) {
	p := &pipeline{}
	ok := false
	defer func() {
		if !ok {
			p.closer.Close()
		}
	}()

	gateway, err := newEmbeddingGateway(cfg)
	if err != nil {
		return nil, err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	p.closer.add(database.Close)
	p.repository = newVectorRepository(cfg, database, gateway.Dimension())

	if opts.ingestion {
		if err := buildIngestion(ctx, cfg, opts, p, gateway); err != nil {
			return nil, err
		}
	}

	if opts.query {
		model := opts.model
		if model == "" {
			model = cfg.GenerationModel
		}
		generator, err := newGenerator(cfg, model)
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		p.query = services.NewQueryService(gateway, p.repository, generator, services.QueryOptions{
			TopK:               cfg.TopK,
			HistoryTokenBudget: cfg.HistoryTokenBudget,
			MaxTokens:          cfg.GenerationMaxTokens,
			Retry:              retryOptions(cfg),
		})
	}

	if opts.ingestion || opts.counters {
		counters, closeCounters, err := newCounterStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p.counters = counters
		p.closer.add(closeCounters)
	}

	if p.ingestion != nil {
		p.ingestion.SetGuard(idempotency.NewGuard(p.counters, cfg.IdempotencyTTL))
	}

	ok = true
	return p, nil
}

func buildIngestion(
	ctx context.Context,
	cfg *config.Config,
	opts pipelineOptions,
	p *pipeline,
	gateway *embedders.Gateway,
) error {
	directory, err := importers.NewYouTubeDirectory(ctx, cfg.YouTubeAPIKey, cfg.YouTubeQPS)
	if err != nil {
		return err
	}
	captions, err := importers.NewYouTubeCaptions(cfg.CaptionsProxyURL, cfg.CaptionLanguage)
	if err != nil {
		return err
	}

	maxVideos := cfg.MaxVideos
	if opts.maxVideos > 0 {
		maxVideos = opts.maxVideos
	}
	acquirer := importers.NewTranscriptAcquirer(directory, captions, maxVideos, retryOptions(cfg))

	chunker, err := chunkers.New(cfg.ChunkStrategy)
	if err != nil {
		return err
	}

	p.ingestion, err = services.NewIngestionService(acquirer, chunker, gateway, p.repository, interfaces.ProcessingOptions{
		ChunkSize:    cfg.ChunkWords,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	return err
}
