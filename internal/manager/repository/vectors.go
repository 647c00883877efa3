package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/models"
	"github.com/code-sleuth/ike-tube/internal/manager/retry"
	"github.com/code-sleuth/ike-tube/pkg/db"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	defaultUpsertBatchSize   = 50
	defaultUpsertConcurrency = 4
)

var (
	ErrEmptyNamespace    = errors.New("namespace cannot be empty")
	ErrDimensionMismatch = errors.New("embedding dimension does not match the index")
	ErrInvalidTopK       = errors.New("topK must be positive")
)

// VectorRepositoryOptions tune how upserts are written.
type VectorRepositoryOptions struct {
	// Dimension, when positive, is enforced on every upserted and queried vector
	Dimension   int
	BatchSize   int
	Concurrency int
	Retry       retry.Options
}

// VectorRepository stores embeddings in libSQL native vector columns, partitioned by namespace.
type VectorRepository struct {
	db     *db.DB
	opts   VectorRepositoryOptions
	logger zerolog.Logger
}

func NewVectorRepository(database *db.DB, dimension int) *VectorRepository {
	return NewVectorRepositoryWithOptions(database, VectorRepositoryOptions{
		Dimension: dimension,
		Retry:     retry.DefaultOptions(),
	})
}

func NewVectorRepositoryWithOptions(database *db.DB, opts VectorRepositoryOptions) *VectorRepository {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultUpsertBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultUpsertConcurrency
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultOptions()
	}
	return &VectorRepository{
		db:     database,
		opts:   opts,
		logger: util.NewLoggerFromEnv(),
	}
}

// NamespaceExists reports whether any record has been written under namespace.
func (r *VectorRepository) NamespaceExists(ctx context.Context, namespace models.Namespace) (bool, error) {
	if namespace == "" {
		return false, ErrEmptyNamespace
	}

	query := `SELECT EXISTS (SELECT 1 FROM vectors WHERE namespace = ?)`

	var exists int
	if err := r.db.QueryRowContext(ctx, query, namespace.String()).Scan(&exists); err != nil {
		r.logger.Error().Err(err).Str("namespace", namespace.String()).Msg("Failed to check namespace")
		return false, err
	}
	return exists == 1, nil
}

// Upsert writes records in batches. Batches run concurrently and are retried
// independently; the first batch to fail after retries fails the call.
func (r *VectorRepository) Upsert(ctx context.Context, namespace models.Namespace, records []models.VectorRecord) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(records) == 0 {
		return nil
	}
	for _, record := range records {
		if err := r.checkDimension(record.Embedding); err != nil {
			return fmt.Errorf("record %s: %w", record.ID, err)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Concurrency)

	for i, batch := range lo.Chunk(records, r.opts.BatchSize) {
		group.Go(func() error {
			err := retry.Do(groupCtx, r.opts.Retry, func(ctx context.Context) error {
				return r.upsertBatch(ctx, namespace, batch)
			})
			if err != nil {
				r.logger.Error().
					Err(err).
					Str("namespace", namespace.String()).
					Int("batch", i).
					Int("records", len(batch)).
					Msg("Failed to upsert batch")
				return fmt.Errorf("failed to upsert batch %d: %w", i, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	r.logger.Info().Str("namespace", namespace.String()).Int("records", len(records)).Msg("Upserted vectors")
	return nil
}

// DeleteNamespace removes every record stored under namespace.
func (r *VectorRepository) DeleteNamespace(ctx context.Context, namespace models.Namespace) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM vectors WHERE namespace = ?`, namespace.String())
	if err != nil {
		r.logger.Error().Err(err).Str("namespace", namespace.String()).Msg("Failed to delete namespace")
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.Info().Str("namespace", namespace.String()).Int64("records", deleted).Msg("Deleted namespace")
	return nil
}

func (r *VectorRepository) upsertBatch(ctx context.Context, namespace models.Namespace, batch []models.VectorRecord) error {
	placeholders := make([]string, len(batch))
	args := make([]any, 0, len(batch)*4)
	for i, record := range batch {
		placeholders[i] = "(?, ?, ?, vector32(?))"
		args = append(args, namespace.String(), record.ID, record.Metadata.Text, EncodeVector(record.Embedding))
	}

	// #nosec G202 -- only placeholders are concatenated
	query := `INSERT INTO vectors (namespace, id, text, embedding) VALUES ` +
		strings.Join(placeholders, ", ") +
		` ON CONFLICT (namespace, id) DO UPDATE SET text = excluded.text, embedding = excluded.embedding`

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Query returns up to topK passages of namespace ordered by descending cosine similarity.
func (r *VectorRepository) Query(
	ctx context.Context,
	namespace models.Namespace,
	vector []float32,
	topK int,
) ([]models.Match, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if err := r.checkDimension(vector); err != nil {
		return nil, err
	}

	query := `
		SELECT text, vector_distance_cos(embedding, vector32(?)) AS distance
		FROM vectors
		WHERE namespace = ?
		ORDER BY distance ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, EncodeVector(vector), namespace.String(), topK)
	if err != nil {
		r.logger.Error().Err(err).Str("namespace", namespace.String()).Msg("Failed to query vectors")
		return nil, err
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var text string
		var distance float64
		if err := rows.Scan(&text, &distance); err != nil {
			r.logger.Error().Err(err).Msg("Failed to scan match")
			return nil, err
		}
		matches = append(matches, models.Match{Text: text, Score: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

// ListNamespaces returns every indexed namespace with its record count.
func (r *VectorRepository) ListNamespaces(ctx context.Context) ([]models.NamespaceStat, error) {
	query := `SELECT namespace, COUNT(*) FROM vectors GROUP BY namespace ORDER BY namespace`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list namespaces")
		return nil, err
	}
	defer rows.Close()

	var stats []models.NamespaceStat
	for rows.Next() {
		var stat models.NamespaceStat
		var namespace string
		if err := rows.Scan(&namespace, &stat.Records); err != nil {
			return nil, err
		}
		stat.Namespace = models.Namespace(namespace)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (r *VectorRepository) checkDimension(vector []float32) error {
	if r.opts.Dimension > 0 && len(vector) != r.opts.Dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), r.opts.Dimension)
	}
	return nil
}

// EncodeVector renders v in the text form accepted by vector32().
func EncodeVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
