package embedders

import (
	"context"
	"fmt"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tiktoken-go/tokenizer"
)

// BatchSize is the largest number of inputs sent in one provider request.
const BatchSize = 100

// Gateway batches, clips, and retries calls to an embedding provider.
type Gateway struct {
	provider interfaces.EmbeddingProvider
	retry    retry.Options
	encoding tokenizer.Codec
	logger   zerolog.Logger
}

// NewGateway wraps provider. Inputs longer than the provider's token limit are
// clipped with the cl100k_base encoding.
func NewGateway(provider interfaces.EmbeddingProvider, opts retry.Options) (*Gateway, error) {
	encoding, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	return &Gateway{
		provider: provider,
		retry:    opts,
		encoding: encoding,
		logger:   util.NewLoggerFromEnv(),
	}, nil
}

// Dimension returns the vector size of the underlying model.
func (g *Gateway) Dimension() int {
	return g.provider.GetDimension()
}

// EmbedMany embeds every non-blank text. The result has one vector per
// non-blank input, in input order.
func (g *Gateway) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := lo.FilterMap(texts, func(text string, _ int) (string, bool) {
		if strings.TrimSpace(text) == "" {
			return "", false
		}
		return g.clip(text), true
	})
	if len(inputs) == 0 {
		return nil, ErrNoValidInput
	}

	vectors := make([][]float32, 0, len(inputs))
	for i, batch := range lo.Chunk(inputs, BatchSize) {
		batchVectors, err := retry.DoValue(ctx, g.retry, func(ctx context.Context) ([][]float32, error) {
			return g.provider.CreateEmbeddings(ctx, batch)
		})
		if err != nil {
			g.logger.Error().
				Err(err).
				Int("batch", i).
				Str("model", g.provider.GetModelName()).
				Msg("failed to embed batch")
			return nil, fmt.Errorf("failed to embed batch %d: %w", i, err)
		}
		if len(batchVectors) == 0 {
			return nil, fmt.Errorf("batch %d: %w", i, ErrEmbeddingProvider)
		}
		vectors = append(vectors, batchVectors...)
	}

	g.logger.Debug().Int("inputs", len(inputs)).Int("vectors", len(vectors)).Msg("embedded texts")
	return vectors, nil
}

// EmbedOne embeds a single text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *Gateway) clip(text string) string {
	limit := g.provider.GetMaxTokens()
	if limit <= 0 {
		return text
	}

	tokens, _, err := g.encoding.Encode(text)
	if err != nil || len(tokens) <= limit {
		return text
	}

	clipped, err := g.encoding.Decode(tokens[:limit])
	if err != nil {
		return text
	}
	g.logger.Warn().Int("tokens", len(tokens)).Int("limit", limit).Msg("clipped embedding input")
	return clipped
}
