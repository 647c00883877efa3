package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/channels"
	"github.com/code-sleuth/ike-tube/internal/manager/insights"
	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/metrics"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
)

const (
	DefaultTopK             = 5
	DefaultGenerationTokens = 1024

	passageSeparator = "\n\n"

	validOutcome    = "valid"
	degradedOutcome = "degraded"
	failedOutcome   = "failed"
)

// SystemPreamble instructs the model to answer with one StructuredInsight JSON object.
const SystemPreamble = `You analyse a YouTube creator using excerpts from their video transcripts.
Answer with a single JSON object and nothing else. The object has these fields:
  "message": string, required. Your reply to the user.
  "action": one of "ask_clarification", "provide_analysis", "need_more_data", required.
  "followUpOptions": array of strings, optional.
  "interests": array of {"topic", "confidence" ("high"|"medium"|"low"), "evidence"}, optional.
  "personalityTraits": array of {"trait", "description"}, optional.
  "speakingStyle": {"tone", "vocabulary", "patterns": array of strings}, optional.
  "topTopics": array of {"name", "frequency"}, optional.
  "summary": string, optional.

Choose the action as follows:
- If the question is broad or vague, use "ask_clarification" and offer 3 to 4 followUpOptions grounded in the excerpts.
- If the question is specific and the excerpts answer it, use "provide_analysis" and include only the optional fields the excerpts support.
- If the excerpts cannot answer the question, use "need_more_data" and always include followUpOptions the excerpts could answer.

Base every claim on the excerpts. Omit optional fields you cannot support instead of sending them empty.`

// QueryOptions tune retrieval and generation.
type QueryOptions struct {
	TopK               int
	HistoryTokenBudget int
	MaxTokens          int
	Retry              retry.Options
}

// QueryService answers questions about an indexed channel.
type QueryService struct {
	embedder  interfaces.Embedder
	store     interfaces.VectorStore
	generator interfaces.Generator
	options   QueryOptions
	logger    zerolog.Logger
}

func NewQueryService(
	embedder interfaces.Embedder,
	store interfaces.VectorStore,
	generator interfaces.Generator,
	options QueryOptions,
) *QueryService {
	if options.TopK <= 0 {
		options.TopK = DefaultTopK
	}
	if options.HistoryTokenBudget <= 0 {
		options.HistoryTokenBudget = DefaultHistoryTokenBudget
	}
	if options.MaxTokens <= 0 {
		options.MaxTokens = DefaultGenerationTokens
	}
	if options.Retry.MaxAttempts <= 0 {
		options.Retry = retry.DefaultOptions()
	}
	return &QueryService{
		embedder:  embedder,
		store:     store,
		generator: generator,
		options:   options,
		logger:    util.NewLoggerFromEnv(),
	}
}

// Answer retrieves the passages of reference closest to question and asks the
// generator for a structured insight. A model reply that fails validation is
// returned as a degraded insight rather than an error.
func (s *QueryService) Answer(
	ctx context.Context,
	reference string,
	question string,
	history []models.Message,
) (*models.StructuredInsight, error) {
	insight, err := s.answer(ctx, reference, question, history)
	if err != nil {
		metrics.Queries.WithLabelValues(failedOutcome).Inc()
		return nil, err
	}
	if insight.Metrics != nil && insight.Metrics.SchemaValidated {
		metrics.Queries.WithLabelValues(validOutcome).Inc()
	} else {
		metrics.Queries.WithLabelValues(degradedOutcome).Inc()
	}
	return insight, nil
}

func (s *QueryService) answer(
	ctx context.Context,
	reference string,
	question string,
	history []models.Message,
) (*models.StructuredInsight, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, ErrEmptyReference
	}
	question = SanitizeQuestion(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	namespace := channels.Resolve(reference)
	logger := s.logger.With().Str("namespace", namespace.String()).Logger()

	start := time.Now()
	vector, err := s.embedder.EmbedOne(ctx, question)
	metrics.ObserveStage(metrics.StageEmbed, start)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to embed question")
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	start = time.Now()
	matches, err := s.store.Query(ctx, namespace, vector, s.options.TopK)
	metrics.ObserveStage(metrics.StageRetrieve, start)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to query passages")
		return nil, fmt.Errorf("failed to query namespace %s: %w", namespace, err)
	}
	logger.Debug().Int("matches", len(matches)).Msg("Retrieved passages")

	messages := append([]models.Message{}, TruncateHistory(history, s.options.HistoryTokenBudget)...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: BuildPrompt(matches, question)})

	start = time.Now()
	generation, err := retry.DoValue(ctx, s.options.Retry, func(ctx context.Context) (*interfaces.Generation, error) {
		return s.generator.Generate(ctx, interfaces.GenerationRequest{
			System:    SystemPreamble,
			Messages:  messages,
			MaxTokens: s.options.MaxTokens,
		})
	})
	metrics.ObserveStage(metrics.StageGenerate, start)
	if err != nil {
		logger.Error().Err(err).Str("model", s.generator.GetModelName()).Msg("Generation failed")
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	metrics.GenerationTokens.WithLabelValues("input").Add(float64(generation.InputTokens))
	metrics.GenerationTokens.WithLabelValues("output").Add(float64(generation.OutputTokens))

	result := insights.Parse(generation.Text)
	if degraded, ok := result.(insights.Degraded); ok {
		logger.Warn().Err(degraded.Reason).Msg("Model reply failed validation")
	}

	return insights.Finalize(result, models.Metrics{
		InputTokens:  generation.InputTokens,
		OutputTokens: generation.OutputTokens,
		LatencyMs:    generation.Latency.Milliseconds(),
	}), nil
}

// BuildPrompt places the retrieved passages verbatim ahead of the question.
func BuildPrompt(matches []models.Match, question string) string {
	passages := make([]string, len(matches))
	for i, match := range matches {
		passages[i] = match.Text
	}
	return "Here is some context:\n" + strings.Join(passages, passageSeparator) + "\n\nQuestion: " + question
}
