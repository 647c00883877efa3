// Package services orchestrates channel ingestion and question answering.
package services

import "errors"

var (
	ErrNoTranscriptsAvailable = errors.New("no transcripts available for channel")
	ErrIngestionInProgress    = errors.New("ingestion already in progress")
	ErrEmptyQuestion          = errors.New("question cannot be empty")
	ErrEmptyReference         = errors.New("channel reference cannot be empty")
	ErrChunkingFailed         = errors.New("chunking failed")
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match chunk count")
)
