package storage

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IndexManager maintains the ivfflat index over chunk embeddings. The list
// count tracks sqrt of the chunk count and the index is rebuilt when it
// drifts too far.
type IndexManager struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewIndexManager(db *pgxpool.Pool, logger *slog.Logger) *IndexManager {
	return &IndexManager{
		db:     db,
		logger: logger,
	}
}

// HasVectorIndex reports whether the similarity index exists, which gates
// the retrieval engine's vector tier.
func (im *IndexManager) HasVectorIndex(ctx context.Context) bool {
	var exists bool
	err := im.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_class WHERE relname = 'idx_document_chunks_embedding'
		)`).Scan(&exists)
	return err == nil && exists
}

// CreateOrUpdateIndex creates or rebuilds the vector index.
func (im *IndexManager) CreateOrUpdateIndex(ctx context.Context) error {
	var count int
	err := im.db.QueryRow(ctx, "SELECT COUNT(*) FROM document_chunks WHERE embedding IS NOT NULL").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count embedded chunks: %w", err)
	}

	// Optimal number of lists is sqrt of the row count.
	lists := int(math.Sqrt(float64(count)))
	if lists < 100 {
		lists = 100
	}

	_, err = im.db.Exec(ctx, "DROP INDEX IF EXISTS idx_document_chunks_embedding")
	if err != nil {
		return fmt.Errorf("failed to drop existing index: %w", err)
	}

	createIndexSQL := fmt.Sprintf(`
		CREATE INDEX idx_document_chunks_embedding
		ON document_chunks
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)
	`, lists)

	_, err = im.db.Exec(ctx, createIndexSQL)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	im.logger.Info("Vector index created/updated successfully",
		slog.Int("chunk_count", count),
		slog.Int("list_count", lists))

	return nil
}

// ReindexIfNeeded rebuilds the index when the list count has drifted more
// than 50% from optimal.
func (im *IndexManager) ReindexIfNeeded(ctx context.Context) error {
	var currentLists int
	err := im.db.QueryRow(ctx, `
		SELECT reloptions[1]::text::int
		FROM pg_class c
		LEFT JOIN pg_index i ON c.oid = i.indexrelid
		WHERE c.relname = 'idx_document_chunks_embedding'
		AND reloptions IS NOT NULL
	`).Scan(&currentLists)

	if err != nil {
		// Index doesn't exist or other error
		return im.CreateOrUpdateIndex(ctx)
	}

	var count int
	err = im.db.QueryRow(ctx, "SELECT COUNT(*) FROM document_chunks WHERE embedding IS NOT NULL").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count embedded chunks: %w", err)
	}

	optimalLists := int(math.Sqrt(float64(count)))
	if optimalLists < 100 {
		optimalLists = 100
	}

	if math.Abs(float64(currentLists-optimalLists)) > float64(optimalLists)*0.5 {
		im.logger.Info("Rebuilding vector index due to significant size change",
			slog.Int("current_lists", currentLists),
			slog.Int("optimal_lists", optimalLists))
		return im.CreateOrUpdateIndex(ctx)
	}

	return nil
}
