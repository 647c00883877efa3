package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/channels"
	"github.com/code-sleuth/ike-tube/internal/manager/chunkers"
	"github.com/code-sleuth/ike-tube/internal/manager/idempotency"
	"github.com/code-sleuth/ike-tube/internal/manager/interfaces"
	"github.com/code-sleuth/ike-tube/internal/manager/metrics"
	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
)

// IngestionService indexes a channel's transcripts into its namespace.
type IngestionService struct {
	acquirer interfaces.TranscriptAcquirer
	chunker  interfaces.Chunker
	embedder interfaces.Embedder
	store    interfaces.VectorStore
	guard    *idempotency.Guard
	options  interfaces.ProcessingOptions
	logger   zerolog.Logger
}

// NewIngestionService wires the ingestion pipeline. A zero chunk size falls
// back to 500 units and a negative overlap to 50. An overlap that does not fit
// inside the window is rejected here, before any provider is called.
func NewIngestionService(
	acquirer interfaces.TranscriptAcquirer,
	chunker interfaces.Chunker,
	embedder interfaces.Embedder,
	store interfaces.VectorStore,
	options interfaces.ProcessingOptions,
) (*IngestionService, error) {
	if options.ChunkSize == 0 {
		options.ChunkSize = chunkers.DefaultWindow
	}
	if options.ChunkOverlap < 0 {
		options.ChunkOverlap = min(chunkers.DefaultOverlap, options.ChunkSize-1)
	}
	if err := chunkers.ValidateWindow(options.ChunkSize, options.ChunkOverlap); err != nil {
		return nil, fmt.Errorf("invalid chunk window %d/%d: %w", options.ChunkSize, options.ChunkOverlap, err)
	}
	return &IngestionService{
		acquirer: acquirer,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		options:  options,
		logger:   util.NewLoggerFromEnv(),
	}, nil
}

// SetGuard enables IngestOnce deduplication through guard.
func (s *IngestionService) SetGuard(guard *idempotency.Guard) {
	s.guard = guard
}

// Ingest indexes reference unless its namespace already holds vectors.
func (s *IngestionService) Ingest(ctx context.Context, reference string) (models.IngestResult, error) {
	if strings.TrimSpace(reference) == "" {
		return models.IngestResult{}, ErrEmptyReference
	}

	namespace := channels.Resolve(reference)
	result := models.IngestResult{Namespace: namespace}
	logger := s.logger.With().Str("namespace", namespace.String()).Logger()

	exists, err := s.store.NamespaceExists(ctx, namespace)
	if err != nil {
		metrics.Ingestions.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("Failed to check namespace")
		return result, fmt.Errorf("failed to check namespace %s: %w", namespace, err)
	}
	if exists {
		metrics.Ingestions.WithLabelValues("existed").Inc()
		logger.Info().Msg("Namespace already indexed")
		result.NamespaceAlreadyExisted = true
		return result, nil
	}

	result, err = s.index(ctx, reference, result, logger)
	if err != nil {
		metrics.Ingestions.WithLabelValues("failed").Inc()
		return result, err
	}

	metrics.Ingestions.WithLabelValues("created").Inc()
	return result, nil
}

// IngestOnce runs Ingest under the idempotency marker for key. A concurrent
// attempt with the same key fails with ErrIngestionInProgress.
func (s *IngestionService) IngestOnce(ctx context.Context, key, reference string) (models.IngestResult, error) {
	if s.guard == nil {
		return s.Ingest(ctx, reference)
	}
	if key == "" {
		key = channels.Resolve(reference).String()
	}

	outcome, err := s.guard.Begin(ctx, key)
	if err != nil {
		return models.IngestResult{}, err
	}
	if outcome.AlreadyInFlight {
		metrics.Ingestions.WithLabelValues("conflict").Inc()
		return models.IngestResult{Namespace: channels.Resolve(reference)}, ErrIngestionInProgress
	}
	defer func() {
		// the marker expires on its own if this fails
		_ = s.guard.Finish(context.WithoutCancel(ctx), key)
	}()

	return s.Ingest(ctx, reference)
}

func (s *IngestionService) index(
	ctx context.Context,
	reference string,
	result models.IngestResult,
	logger zerolog.Logger,
) (models.IngestResult, error) {
	start := time.Now()
	logger.Info().Str("reference", reference).Msg("Starting transcript acquisition")
	transcripts, err := s.acquirer.Fetch(ctx, reference)
	metrics.ObserveStage(metrics.StageAcquire, start)
	if err != nil {
		logger.Error().Err(err).Msg("Transcript acquisition failed")
		return result, err
	}
	result.Videos = len(transcripts)

	start = time.Now()
	chunks, err := s.chunkTranscripts(transcripts)
	metrics.ObserveStage(metrics.StageChunk, start)
	if err != nil {
		logger.Error().Err(err).Msg("Chunking failed")
		return result, err
	}
	if len(chunks) == 0 {
		logger.Warn().Int("videos", len(transcripts)).Msg("No transcript text to index")
		return result, ErrNoTranscriptsAvailable
	}

	logger.Info().
		Int("videos", len(transcripts)).
		Int("chunk_count", len(chunks)).
		Str("chunk_strategy", s.chunker.GetChunkingStrategy()).
		Msg("Starting embedding")
	start = time.Now()
	vectors, err := s.embedder.EmbedMany(ctx, chunks)
	metrics.ObserveStage(metrics.StageEmbed, start)
	if err != nil {
		logger.Error().Err(err).Msg("Embedding failed")
		return result, err
	}
	if len(vectors) != len(chunks) {
		return result, fmt.Errorf("%w: %d vectors for %d chunks", ErrEmbeddingCountMismatch, len(vectors), len(chunks))
	}

	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.VectorRecord{
			ID:        fmt.Sprintf("chunk-%d", i),
			Embedding: vectors[i],
			Metadata:  models.VectorMetadata{Text: chunk},
		}
	}

	start = time.Now()
	err = s.store.Upsert(ctx, result.Namespace, records)
	metrics.ObserveStage(metrics.StageUpsert, start)
	if err != nil {
		logger.Error().Err(err).Msg("Upsert failed")
		s.discardPartial(ctx, result.Namespace, logger)
		return result, err
	}

	metrics.ChunksIndexed.Add(float64(len(records)))
	result.Chunks = len(records)
	logger.Info().Int("chunks", result.Chunks).Msg("Channel indexed")
	return result, nil
}

// discardPartial drops whatever a failed upsert committed, so the namespace is
// not mistaken for an indexed channel on the next attempt.
func (s *IngestionService) discardPartial(ctx context.Context, namespace models.Namespace, logger zerolog.Logger) {
	if err := s.store.DeleteNamespace(context.WithoutCancel(ctx), namespace); err != nil {
		logger.Error().Err(err).Msg("Failed to discard partially written namespace")
	}
}

// chunkTranscripts windows every transcript separately and drops blank chunks.
func (s *IngestionService) chunkTranscripts(transcripts []models.Transcript) ([]string, error) {
	var chunks []string
	for _, transcript := range transcripts {
		if strings.TrimSpace(transcript.Text) == "" {
			continue
		}
		windows, err := s.chunker.Chunk(transcript.Text, s.options.ChunkSize, s.options.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("%w for video %s: %w", ErrChunkingFailed, transcript.VideoID, err)
		}
		for _, window := range windows {
			if strings.TrimSpace(window) != "" {
				chunks = append(chunks, window)
			}
		}
	}
	return chunks, nil
}
