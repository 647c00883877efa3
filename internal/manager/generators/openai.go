package generators

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no generation model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIGenerator implements interfaces.Generator with chat completions.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	return NewOpenAIGeneratorWithClient(apiKey, model, nil, "")
}

// NewOpenAIGeneratorWithClient creates a generator with custom HTTP client and base URL.
func NewOpenAIGeneratorWithClient(
	apiKey, model string,
	httpClient *http.Client,
	baseURL string,
) (*OpenAIGenerator, error) {
	logger := util.NewLoggerFromEnv()
	if strings.TrimSpace(apiKey) == "" {
		logger.Error().Msg("OPENAI_API_KEY env variable not set")
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	config := openai.DefaultConfig(apiKey)
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger,
	}, nil
}

// Generate sends the conversation and returns the text of the first choice.
func (o *OpenAIGenerator) Generate(
	ctx context.Context,
	request interfaces.GenerationRequest,
) (*interfaces.Generation, error) {
	if len(request.Messages) == 0 {
		return nil, ErrNoMessages
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages)+1)
	if request.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: request.System,
		})
	}
	for _, m := range request.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	start := time.Now()
	response, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               o.model,
		Messages:            messages,
		MaxCompletionTokens: maxTokens,
	})
	latency := time.Since(start)
	if err != nil {
		o.logger.Err(err).Str("model", o.model).Msg("chat completion failed")
		return nil, wrapProviderError(err)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	o.logger.Debug().
		Str("model", o.model).
		Int("input_tokens", response.Usage.PromptTokens).
		Int("output_tokens", response.Usage.CompletionTokens).
		Dur("latency", latency).
		Msg("generated completion")

	return &interfaces.Generation{
		Text:         response.Choices[0].Message.Content,
		InputTokens:  response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		Latency:      latency,
	}, nil
}

// GetModelName returns the model the generator talks to.
func (o *OpenAIGenerator) GetModelName() string {
	return o.model
}
