// Package generators adapts LLM chat APIs to interfaces.Generator.
package generators

import (
	"errors"

	"github.com/code-sleuth/ike-tube/internal/manager/retry"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrAPIKeyNotSet    = errors.New("API key not set")
	ErrEmptyCompletion = errors.New("completion contained no text")
	ErrNoMessages      = errors.New("generation request has no messages")
)

// wrapProviderError attaches the HTTP status of SDK failures so the retry
// policy can classify them without knowing which SDK produced them.
func wrapProviderError(err error) error {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) && anthropicErr.StatusCode != 0 {
		return retry.NewStatusError(anthropicErr.StatusCode, err)
	}

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
