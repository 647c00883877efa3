package embedders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	batches   [][]string
	failures  []error
	empty     bool
	maxTokens int
}

func (f *fakeProvider) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, texts)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	if f.empty {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

func (f *fakeProvider) GetModelName() string { return "fake" }
func (f *fakeProvider) GetDimension() int    { return 1 }
func (f *fakeProvider) GetMaxTokens() int    { return f.maxTokens }

func fastRetry() retry.Options {
	return retry.Options{MaxAttempts: 3, BaseDelay: time.Millisecond, IsRetryable: retry.IsTransient}
}

func newTestGateway(t *testing.T, provider *fakeProvider) *Gateway {
	t.Helper()
	gateway, err := NewGateway(provider, fastRetry())
	require.NoError(t, err)
	return gateway
}

func TestGateway_EmbedMany_FiltersBlankInputs(t *testing.T) {
	provider := &fakeProvider{}
	gateway := newTestGateway(t, provider)

	vectors, err := gateway.EmbedMany(context.Background(), []string{"a", "  ", "bbb", "", "cc"})
	require.NoError(t, err)

	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1}, vectors[0])
	assert.Equal(t, []float32{3}, vectors[1])
	assert.Equal(t, []float32{2}, vectors[2])
	assert.Equal(t, [][]string{{"a", "bbb", "cc"}}, provider.batches)
}

func TestGateway_EmbedMany_NoValidInput(t *testing.T) {
	provider := &fakeProvider{}
	gateway := newTestGateway(t, provider)

	_, err := gateway.EmbedMany(context.Background(), []string{"", " \n"})
	assert.ErrorIs(t, err, ErrNoValidInput)
	assert.Empty(t, provider.batches, "provider must not be called")
}

func TestGateway_EmbedMany_Batches(t *testing.T) {
	provider := &fakeProvider{}
	gateway := newTestGateway(t, provider)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	vectors, err := gateway.EmbedMany(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 250)

	require.Len(t, provider.batches, 3)
	assert.Len(t, provider.batches[0], 100)
	assert.Len(t, provider.batches[1], 100)
	assert.Len(t, provider.batches[2], 50)
	assert.Equal(t, "text 100", provider.batches[1][0])
}

func TestGateway_EmbedMany_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{failures: []error{
		retry.NewStatusError(503, errors.New("unavailable")),
		retry.NewStatusError(429, errors.New("slow down")),
	}}
	gateway := newTestGateway(t, provider)

	vectors, err := gateway.EmbedMany(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Len(t, provider.batches, 3)
}

func TestGateway_EmbedMany_PermanentFailure(t *testing.T) {
	permanent := retry.NewStatusError(400, errors.New("bad input"))
	provider := &fakeProvider{failures: []error{permanent}}
	gateway := newTestGateway(t, provider)

	_, err := gateway.EmbedMany(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Len(t, provider.batches, 1)
}

func TestGateway_EmbedMany_EmptyResponse(t *testing.T) {
	gateway := newTestGateway(t, &fakeProvider{empty: true})

	_, err := gateway.EmbedMany(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, ErrEmbeddingProvider)
}

func TestGateway_EmbedOne(t *testing.T) {
	gateway := newTestGateway(t, &fakeProvider{})

	vector, err := gateway.EmbedOne(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, vector)

	_, err = gateway.EmbedOne(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoValidInput)
}

func TestGateway_ClipsLongInputs(t *testing.T) {
	provider := &fakeProvider{maxTokens: 5}
	gateway := newTestGateway(t, provider)

	long := strings.Repeat("word ", 50)
	_, err := gateway.EmbedMany(context.Background(), []string{long, "short"})
	require.NoError(t, err)

	require.Len(t, provider.batches, 1)
	clipped := provider.batches[0][0]
	assert.Less(t, len(clipped), len(long))
	assert.True(t, strings.HasPrefix(long, clipped))
	assert.Equal(t, "short", provider.batches[0][1])
}
