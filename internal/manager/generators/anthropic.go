package generators

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// DefaultAnthropicModel is used when no generation model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

const defaultMaxTokens = 1024

// AnthropicGenerator implements interfaces.Generator with the Messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	logger zerolog.Logger
}

func NewAnthropicGenerator(apiKey, model string) (*AnthropicGenerator, error) {
	return NewAnthropicGeneratorWithClient(apiKey, model, nil, "")
}

// NewAnthropicGeneratorWithClient creates a generator with custom HTTP client and base URL.
// The SDK's own retries are disabled; callers wrap Generate in retry.Do.
func NewAnthropicGeneratorWithClient(
	apiKey, model string,
	httpClient *http.Client,
	baseURL string,
) (*AnthropicGenerator, error) {
	logger := util.NewLoggerFromEnv()
	if strings.TrimSpace(apiKey) == "" {
		logger.Error().Msg("ANTHROPIC_API_KEY env variable not set")
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Generate sends the conversation and returns the text of the reply.
func (a *AnthropicGenerator) Generate(
	ctx context.Context,
	request interfaces.GenerationRequest,
) (*interfaces.Generation, error) {
	if len(request.Messages) == 0 {
		return nil, ErrNoMessages
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(request.Messages))
	for _, m := range request.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if request.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.System}}
	}

	start := time.Now()
	message, err := a.client.Messages.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		a.logger.Err(err).Str("model", a.model).Msg("messages request failed")
		return nil, wrapProviderError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyCompletion
	}

	a.logger.Debug().
		Str("model", a.model).
		Int64("input_tokens", message.Usage.InputTokens).
		Int64("output_tokens", message.Usage.OutputTokens).
		Dur("latency", latency).
		Msg("generated completion")

	return &interfaces.Generation{
		Text:         text.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		Latency:      latency,
	}, nil
}

// GetModelName returns the model the generator talks to.
func (a *AnthropicGenerator) GetModelName() string {
	return a.model
}
