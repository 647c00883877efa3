package interfaces

import (
	"context"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
)

// Directory resolves channels and lists their uploads.
type Directory interface {
	// ResolveHandle returns the channel ID registered for an @handle
	ResolveHandle(ctx context.Context, handle string) (string, error)

	// SearchChannel returns the channel ID of the best match for a free-form name
	SearchChannel(ctx context.Context, query string) (string, error)

	// RecentUploads returns up to maxResults of the channel's newest uploads, newest first
	RecentUploads(ctx context.Context, channelID string, maxResults int) ([]models.Video, error)
}

// CaptionSource fetches the caption cues of a single video.
type CaptionSource interface {
	Captions(ctx context.Context, videoID string) ([]models.Cue, error)
}

// CueTransformer turns caption cues into transcript text.
type CueTransformer interface {
	Transform(cues []models.Cue) string
}

// TranscriptAcquirer turns a channel reference into transcript texts.
type TranscriptAcquirer interface {
	Fetch(ctx context.Context, reference string) ([]models.Transcript, error)
}

// Chunker breaks a transcript into overlapping windows.
type Chunker interface {
	// Chunk splits text into windows of at most window units overlapping by overlap units
	Chunk(text string, window, overlap int) ([]string, error)

	// GetChunkingStrategy returns the strategy name used by this chunker
	GetChunkingStrategy() string
}

// EmbeddingProvider calls the upstream embedding API for one batch.
type EmbeddingProvider interface {
	// CreateEmbeddings returns one vector per input, in input order
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// GetModelName returns the name of the embedding model
	GetModelName() string

	// GetDimension returns the dimension of the embedding vectors
	GetDimension() int

	// GetMaxTokens returns the maximum number of tokens one input may hold
	GetMaxTokens() int
}

// Embedder is the batching, retrying gateway the orchestrators use.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the namespace-scoped vector index. Upsert may leave earlier
// batches behind when it fails; DeleteNamespace removes them.
type VectorStore interface {
	NamespaceExists(ctx context.Context, namespace models.Namespace) (bool, error)
	Upsert(ctx context.Context, namespace models.Namespace, records []models.VectorRecord) error
	DeleteNamespace(ctx context.Context, namespace models.Namespace) error
	Query(ctx context.Context, namespace models.Namespace, vector []float32, topK int) ([]models.Match, error)
	ListNamespaces(ctx context.Context) ([]models.NamespaceStat, error)
}

// GenerationRequest is one call to the generation provider.
type GenerationRequest struct {
	System    string
	Messages  []models.Message
	MaxTokens int
}

// Generation is the provider's completion with usage accounting.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// Generator produces a completion from conversation turns.
type Generator interface {
	Generate(ctx context.Context, request GenerationRequest) (*Generation, error)

	// GetModelName returns the model the generator talks to
	GetModelName() string
}

// CounterStore is the shared store behind rate limiting and idempotency.
type CounterStore interface {
	// Incr atomically increments key and sets ttl when the key is new
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// SetIfAbsent stores value under key with ttl only if key does not exist
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key
	Delete(ctx context.Context, key string) error
}

// ProcessingOptions contains configuration for the ingestion pipeline.
type ProcessingOptions struct {
	// ChunkSize and ChunkOverlap are measured in the chunker's units (words or tokens)
	ChunkSize    int
	ChunkOverlap int
}
