package embedders

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var timeout = 30 * time.Second

type modelLimits struct {
	dimension int
	maxTokens int
}

var supportedModels = map[string]modelLimits{
	"text-embedding-3-small": {dimension: 1536, maxTokens: 8191},
	"text-embedding-3-large": {dimension: 3072, maxTokens: 8191},
	"text-embedding-ada-002": {dimension: 1536, maxTokens: 8191},

	// served by Together AI's OpenAI-compatible endpoint
	"togethercomputer/m2-bert-80M-8k-retrieval":  {dimension: 768, maxTokens: 8192},
	"togethercomputer/m2-bert-80M-32k-retrieval": {dimension: 768, maxTokens: 32768},
	"BAAI/bge-large-en-v1.5":                     {dimension: 1024, maxTokens: 512},
}

// ModelDimension returns the vector size produced by model.
func ModelDimension(model string) (int, error) {
	limits, ok := supportedModels[model]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
	}
	return limits.dimension, nil
}

// OpenAIEmbedder implements embedding using any OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	maxTokens int
	logger    zerolog.Logger
}

// NewOpenAIEmbedder creates a new OpenAI embedder from OPENAI_API_KEY and OPENAI_BASE_URL.
func NewOpenAIEmbedder(model string) (*OpenAIEmbedder, error) {
	return NewOpenAIEmbedderWithClient(model, os.Getenv("OPENAI_API_KEY"), nil, os.Getenv("OPENAI_BASE_URL"))
}

// NewOpenAIEmbedderWithClient creates a new OpenAI embedder with custom HTTP client and base URL.
func NewOpenAIEmbedderWithClient(
	model, apiKey string,
	httpClient *http.Client,
	baseURL string,
) (*OpenAIEmbedder, error) {
	logger := util.NewLoggerFromEnv()
	if strings.TrimSpace(apiKey) == "" {
		logger.Error().Msg("embedding API key not set")
		return nil, ErrAPIKeyNotSet
	}

	limits, ok := supportedModels[model]
	if !ok {
		logger.Error().Str("model", model).Msg("unsupported embedding model")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
	}

	// Use provided HTTP client or create default one
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = httpClient
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: limits.dimension,
		maxTokens: limits.maxTokens,
		logger:    logger,
	}, nil
}

// CreateEmbeddings embeds one batch of texts, returning vectors in input order.
func (o *OpenAIEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	response, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		o.logger.Err(err).Str("model", o.model).Int("inputs", len(texts)).Msg("embedding request failed")
		return nil, wrapProviderError(err)
	}

	if len(response.Data) != len(texts) {
		o.logger.Error().
			Int("expected", len(texts)).
			Int("received", len(response.Data)).
			Msg("embedding count mismatch")
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingProvider, len(texts), len(response.Data))
	}

	sort.Slice(response.Data, func(i, j int) bool {
		return response.Data[i].Index < response.Data[j].Index
	})

	vectors := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		vectors[i] = data.Embedding
	}

	o.logger.Debug().
		Str("model", o.model).
		Int("inputs", len(texts)).
		Int("tokens_used", response.Usage.TotalTokens).
		Msg("Generated embeddings")
	return vectors, nil
}

// GetModelName returns the name of the embedding model.
func (o *OpenAIEmbedder) GetModelName() string {
	return o.model
}

// GetDimension returns the dimension of the embedding vectors.
func (o *OpenAIEmbedder) GetDimension() int {
	return o.dimension
}

// GetMaxTokens returns the maximum number of tokens this embedder can handle.
func (o *OpenAIEmbedder) GetMaxTokens() int {
	return o.maxTokens
}
