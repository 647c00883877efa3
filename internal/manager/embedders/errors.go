package embedders

import (
	"errors"

	"github.com/code-sleuth/ike-tube/internal/manager/retry"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrAPIKeyNotSet      = errors.New("API key not set")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrNoValidInput      = errors.New("no non-blank input to embed")
	ErrEmbeddingProvider = errors.New("embedding provider returned no usable data")
)

// wrapProviderError attaches the HTTP status of go-openai failures so the retry
// policy can tell throttling and outages from bad requests.
func wrapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return retry.NewStatusError(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return retry.NewStatusError(reqErr.HTTPStatusCode, err)
	}

	return err
}
