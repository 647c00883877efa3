package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/code-sleuth/ike-tube/internal/manager/embedders"
	"github.com/code-sleuth/ike-tube/internal/manager/importers"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/internal/manager/services"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"channel not found", fmt.Errorf("resolve: %w", importers.ErrChannelNotFound), KindNotFound},
		{"no transcripts", services.ErrNoTranscriptsAvailable, KindContentUnavailable},
		{"in progress", services.ErrIngestionInProgress, KindConflict},
		{"empty question", services.ErrEmptyQuestion, KindInput},
		{"rate limited", ErrRateLimited, KindRateLimited},
		{"provider overloaded", fmt.Errorf("generate: %w", retry.NewStatusError(529, errors.New("overloaded"))), KindTransientProviderError},
		{"provider throttled", retry.NewStatusError(http.StatusTooManyRequests, errors.New("slow down")), KindTransientProviderError},
		{"empty embeddings", embedders.ErrEmbeddingProvider, KindTransientProviderError},
		{"bad request upstream", retry.NewStatusError(http.StatusBadRequest, errors.New("bad")), KindInternal},
		{"cancelled", context.Canceled, KindInternal},
		{"unknown", errors.New("boom"), KindInternal},
		{"already classified", New(KindInput, "nope"), KindInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestKindTable(t *testing.T) {
	tests := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindInput, "INVALID_INPUT", http.StatusBadRequest},
		{KindNotFound, "CHANNEL_NOT_FOUND", http.StatusNotFound},
		{KindContentUnavailable, "NO_TRANSCRIPTS", http.StatusUnprocessableEntity},
		{KindTransientProviderError, "PROVIDER_UNAVAILABLE", http.StatusBadGateway},
		{KindRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
		{KindConflict, "INGESTION_IN_PROGRESS", http.StatusConflict},
		{KindInternal, "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.kind.Code())
			assert.Equal(t, tt.status, tt.kind.HTTPStatus())
			assert.NotEmpty(t, tt.kind.Message())
		})
	}
}

func TestFrom_HidesProviderMessage(t *testing.T) {
	provider := errors.New("anthropic: 529 overloaded_error secret-request-id")
	err := From(retry.NewStatusError(529, provider))

	assert.Equal(t, "PROVIDER_UNAVAILABLE", err.Code)
	assert.NotContains(t, err.Message, "secret-request-id")
	assert.ErrorIs(t, err, provider)
}
