package embedders

import (
	"net/http"
	"strings"
)

// TogetherAIBaseURL is Together AI's OpenAI-compatible API root.
const TogetherAIBaseURL = "https://api.together.xyz/v1"

// IsTogetherAIModel reports whether model is hosted by Together AI.
func IsTogetherAIModel(model string) bool {
	return strings.HasPrefix(model, "togethercomputer/") || strings.HasPrefix(model, "BAAI/")
}

// NewTogetherAIEmbedderWithClient creates a Together AI embedder with custom HTTP client and base URL.
func NewTogetherAIEmbedderWithClient(
	model, apiKey string,
	httpClient *http.Client,
	baseURL string,
) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = TogetherAIBaseURL
	}
	return NewOpenAIEmbedderWithClient(model, apiKey, httpClient, baseURL)
}
