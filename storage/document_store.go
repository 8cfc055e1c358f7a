package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/serisow/lecahier/chunker"
	"github.com/serisow/lecahier/pipeline_type"
	"github.com/serisow/lecahier/services/embedding_service"
)

// StoredDocument is the full persisted record for one processed document.
type StoredDocument struct {
	ID           string                 `json:"id"`
	DocumentName string                 `json:"document_name"`
	Content      string                 `json:"content"`
	Summary      string                 `json:"summary"`
	QAndA        string                 `json:"q_and_a"`
	BulletPoints string                 `json:"bullet_points"`
	MindMap      string                 `json:"mind_map,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	IsProcessed  bool                   `json:"is_processed"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ChunkMatch is one chunk returned by vector similarity search.
type ChunkMatch struct {
	DocumentID   string
	DocumentName string
	ChunkText    string
	ChunkIndex   int
	Kind         pipeline_type.ChunkKind
	Score        float64
}

// DocumentMatch is a document whose summary embedding cleared the
// similarity threshold.
type DocumentMatch struct {
	Document StoredDocument
	Score    float64
}

// DocumentStore persists notebook artifacts and their chunked embeddings in
// PostgreSQL. One Put call per document is atomic from the caller's point of
// view; chunks for a re-processed document are replaced wholesale, never
// merged.
type DocumentStore struct {
	db        *pgxpool.Pool
	embedder  embedding_service.EmbeddingService
	logger    *slog.Logger
	chunkSize int
}

func NewDocumentStore(db *pgxpool.Pool, embedder embedding_service.EmbeddingService, logger *slog.Logger, chunkSize int) *DocumentStore {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultCeiling
	}
	return &DocumentStore{
		db:        db,
		embedder:  embedder,
		logger:    logger,
		chunkSize: chunkSize,
	}
}

type chunkRow struct {
	text      string
	index     int
	kind      pipeline_type.ChunkKind
	embedding *pgvector.Vector
}

// PutDocument stores the artifact: the document row with its summary
// embedding, the content chunks, and a separate summary-kind chunk for cheap
// high-level matches. A chunk whose embedding call fails is persisted
// without one; it stays retrievable lexically but is invisible to vector
// search. The stored content is the document's full raw content.
func (s *DocumentStore) PutDocument(ctx context.Context, artifact *pipeline_type.NotebookArtifact) (string, error) {
	doc := artifact.Document
	enrichment := artifact.Enrichment

	documentID := uuid.New().String()

	embedStart := time.Now()
	summaryEmbedding := s.tryEmbed(ctx, enrichment.Summary, "summary")

	rows := s.buildChunkRows(ctx, doc.Content, enrichment.Summary)
	embeddingSeconds := time.Since(embedStart).Seconds()

	metadata := buildMetadata(artifact, embeddingSeconds)
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document metadata: %w", err)
	}

	var mindMapJSON []byte
	if artifact.MindMap != nil {
		mindMapJSON, err = json.Marshal(artifact.MindMap)
		if err != nil {
			return "", fmt.Errorf("failed to marshal mind map: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Re-processing supersedes the previous record; chunks go with it via
	// the FK cascade.
	_, err = tx.Exec(ctx, `DELETE FROM documents WHERE document_name = $1`, doc.Title)
	if err != nil {
		return "", fmt.Errorf("failed to supersede existing document: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, document_name, content, summary, q_and_a, bullet_points, mind_map, doc_metadata, summary_embedding, is_processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)`,
		documentID,
		doc.Title,
		doc.Content,
		enrichment.Summary,
		enrichment.FormattedQA(),
		enrichment.FormattedKeyPoints(),
		string(mindMapJSON),
		metadataJSON,
		summaryEmbedding,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	for _, row := range rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_text, chunk_index, chunk_kind, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(),
			documentID,
			row.text,
			row.index,
			row.kind,
			row.embedding,
		)
		if err != nil {
			return "", fmt.Errorf("failed to store chunk %d: %w", row.index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit document: %w", err)
	}

	s.logger.Info("Document stored",
		slog.String("document_id", documentID),
		slog.String("document_name", doc.Title),
		slog.Int("content_length", doc.ContentSize()),
		slog.Int("chunks", len(rows)))

	return documentID, nil
}

// buildChunkRows chunks the normalized content and embeds each chunk plus
// one summary-kind chunk.
func (s *DocumentStore) buildChunkRows(ctx context.Context, content, summary string) []chunkRow {
	texts := chunker.Split(content, s.chunkSize)

	rows := make([]chunkRow, 0, len(texts)+1)
	for i, text := range texts {
		rows = append(rows, chunkRow{
			text:      text,
			index:     i,
			kind:      pipeline_type.ChunkKindContent,
			embedding: s.tryEmbed(ctx, text, fmt.Sprintf("chunk %d", i)),
		})
	}

	if summary != "" {
		rows = append(rows, chunkRow{
			text:      summary,
			index:     len(texts),
			kind:      pipeline_type.ChunkKindSummary,
			embedding: s.tryEmbed(ctx, summary, "summary chunk"),
		})
	}

	return rows
}

// tryEmbed returns nil on any embedding failure; the chunk is stored anyway.
func (s *DocumentStore) tryEmbed(ctx context.Context, text, label string) *pgvector.Vector {
	if s.embedder == nil {
		return nil
	}
	vec, _, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("Could not generate embedding",
			slog.String("target", label),
			slog.String("error", err.Error()))
		return nil
	}
	return &vec
}

// buildMetadata flattens artifact fields into the stored metadata map. The
// embedding time is passed in so the raw document is never written to.
func buildMetadata(artifact *pipeline_type.NotebookArtifact, embeddingSeconds float64) map[string]interface{} {
	doc := artifact.Document
	enrichment := artifact.Enrichment
	return map[string]interface{}{
		"content_type":            doc.Metadata.ContentType,
		"word_count":              doc.Metadata.WordCount,
		"page_count":              doc.Metadata.PageCount,
		"content_preview":         doc.Metadata.ContentPreview,
		"extraction_time_seconds": doc.Metadata.ExtractionTime,
		"embedding_time_seconds":  embeddingSeconds,
		"source_path":             doc.SourcePath,
		"tables":                  len(doc.Tables),
		"figures":                 len(doc.Figures),
		"topics":                  enrichment.Topics,
		"quality_score":           enrichment.QualityScore,
		"degraded_fields":         enrichment.DegradedFields,
		"enrichment_model":        enrichment.Model,
	}
}

// GetDocuments returns full records ordered by recency, optionally filtered
// by document name.
func (s *DocumentStore) GetDocuments(ctx context.Context, names []string) ([]StoredDocument, error) {
	query := `
		SELECT id, document_name, content, summary, q_and_a, bullet_points, mind_map, doc_metadata, is_processed, created_at
		FROM documents`
	args := []interface{}{}
	if len(names) > 0 {
		query += ` WHERE document_name = ANY($1)`
		args = append(args, names)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]StoredDocument, error) {
	var docs []StoredDocument
	for rows.Next() {
		var doc StoredDocument
		var metadataJSON []byte
		err := rows.Scan(
			&doc.ID,
			&doc.DocumentName,
			&doc.Content,
			&doc.Summary,
			&doc.QAndA,
			&doc.BulletPoints,
			&doc.MindMap,
			&metadataJSON,
			&doc.IsProcessed,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				doc.Metadata = nil
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Stats summarizes the collection for the stats endpoint.
func (s *DocumentStore) Stats(ctx context.Context) (pipeline_type.CollectionStats, error) {
	stats := pipeline_type.CollectionStats{}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_processed),
		       COALESCE(SUM(length(content)), 0)
		FROM documents`).Scan(&stats.TotalDocuments, &stats.ProcessedDocuments, &stats.TotalContentLength)
	if err != nil {
		return stats, fmt.Errorf("failed to compute collection stats: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT document_name FROM documents ORDER BY created_at DESC LIMIT 5`)
	if err != nil {
		return stats, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return stats, fmt.Errorf("failed to scan recent document: %w", err)
		}
		stats.RecentDocuments = append(stats.RecentDocuments, name)
	}

	return stats, rows.Err()
}

// SimilaritySearch returns the top-k embedded chunks by cosine similarity.
// Chunks without embeddings are excluded.
func (s *DocumentStore) SimilaritySearch(ctx context.Context, vec pgvector.Vector, k int) ([]ChunkMatch, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.document_id, d.document_name, c.chunk_text, c.chunk_index, c.chunk_kind,
		       1 - (c.embedding <=> $1) AS similarity_score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1
		LIMIT $2`, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		if err := rows.Scan(&m.DocumentID, &m.DocumentName, &m.ChunkText, &m.ChunkIndex, &m.Kind, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DocumentsBySummarySimilarity returns documents whose summary embedding
// clears the threshold, best first.
func (s *DocumentStore) DocumentsBySummarySimilarity(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]DocumentMatch, error) {
	rows, err := s.db.Query(ctx, `
		WITH scored_documents AS (
			SELECT id, document_name, content, summary, q_and_a, bullet_points, mind_map, doc_metadata, is_processed, created_at,
			       1 - (summary_embedding <=> $1) AS similarity_score
			FROM documents
			WHERE summary_embedding IS NOT NULL
		)
		SELECT * FROM scored_documents
		WHERE similarity_score >= $2
		ORDER BY similarity_score DESC
		LIMIT $3`, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute summary similarity query: %w", err)
	}
	defer rows.Close()

	var matches []DocumentMatch
	for rows.Next() {
		var doc StoredDocument
		var metadataJSON []byte
		var score float64
		err := rows.Scan(
			&doc.ID,
			&doc.DocumentName,
			&doc.Content,
			&doc.Summary,
			&doc.QAndA,
			&doc.BulletPoints,
			&doc.MindMap,
			&metadataJSON,
			&doc.IsProcessed,
			&doc.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document match: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				doc.Metadata = nil
			}
		}
		matches = append(matches, DocumentMatch{Document: doc, Score: score})
	}
	return matches, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikePattern neutralizes ILIKE metacharacters so user text matches
// literally instead of as a wildcard.
func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// TextSearch is the case-insensitive substring fallback over stored content.
func (s *DocumentStore) TextSearch(ctx context.Context, pattern string, limit int) ([]StoredDocument, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, document_name, content, summary, q_and_a, bullet_points, mind_map, doc_metadata, is_processed, created_at
		FROM documents
		WHERE content ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2`, escapeLikePattern(pattern), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// EmbeddedChunkCount reports how many chunks are visible to vector search.
func (s *DocumentStore) EmbeddedChunkCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks WHERE embedding IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embedded chunks: %w", err)
	}
	return count, nil
}
