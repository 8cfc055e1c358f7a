package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/serisow/lecahier/pipeline_type"
	"github.com/serisow/lecahier/services/embedding_service"
	"github.com/serisow/lecahier/storage"
)

// Store is the slice of the document store the engine needs. The concrete
// *storage.DocumentStore satisfies it; tests substitute a mock.
type Store interface {
	SimilaritySearch(ctx context.Context, vec pgvector.Vector, k int) ([]storage.ChunkMatch, error)
	DocumentsBySummarySimilarity(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]storage.DocumentMatch, error)
	GetDocuments(ctx context.Context, names []string) ([]storage.StoredDocument, error)
	TextSearch(ctx context.Context, pattern string, limit int) ([]storage.StoredDocument, error)
	EmbeddedChunkCount(ctx context.Context) (int, error)
}

// IndexChecker reports whether the chunk-embedding similarity index exists.
// *storage.IndexManager satisfies it; a nil checker means availability is
// judged by embedded chunk count alone.
type IndexChecker interface {
	HasVectorIndex(ctx context.Context) bool
}

// Config carries the retrieval tunables. Threshold and top-k are
// configuration, not per-call constants, so recall vs. precision can be
// tuned per deployment.
type Config struct {
	SimilarityThreshold float64
	TopK                int
	SnippetLengthCap    int

	// Minimum fraction of query keywords a document must contain to be a
	// lexical-tier candidate.
	KeywordOverlapFloor float64
}

func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.6,
		TopK:                5,
		SnippetLengthCap:    1000,
		KeywordOverlapFloor: 0.2,
	}
}

// Engine answers natural-language queries over the stored collection with a
// strict three-tier fallback: vector similarity over chunk embeddings,
// lexical sentence scoring over candidate documents, then raw substring
// search. Each tier short-circuits on the first non-empty result; a query
// that clears no tier returns nil, not an error.
type Engine struct {
	store    Store
	embedder embedding_service.EmbeddingService
	index    IndexChecker
	cfg      Config
	logger   *slog.Logger
}

func NewEngine(store Store, embedder embedding_service.EmbeddingService, index IndexChecker, cfg Config, logger *slog.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.SnippetLengthCap <= 0 {
		cfg.SnippetLengthCap = DefaultConfig().SnippetLengthCap
	}
	if cfg.KeywordOverlapFloor <= 0 {
		cfg.KeywordOverlapFloor = DefaultConfig().KeywordOverlapFloor
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ask runs the tiers in order. Errors from collaborators demote the query to
// the next tier rather than surfacing; only the absence of any match
// produces the nil answer.
func (e *Engine) Ask(ctx context.Context, question string) (*pipeline_type.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}

	var queryEmbedding *pgvector.Vector
	if e.embedder != nil {
		vec, _, err := e.embedder.Embed(ctx, question)
		if err != nil {
			e.logger.Warn("Query embedding failed, skipping vector tier",
				slog.String("error", err.Error()))
		} else {
			queryEmbedding = &vec
		}
	}

	if queryEmbedding != nil {
		if answer := e.vectorTier(ctx, *queryEmbedding); answer != nil {
			return answer, nil
		}
	}

	if answer := e.lexicalTier(ctx, question, queryEmbedding); answer != nil {
		return answer, nil
	}

	return e.substringTier(ctx, question), nil
}

// vectorTier retrieves top-k chunks by cosine similarity and composes an
// answer from the chunk texts with citations.
func (e *Engine) vectorTier(ctx context.Context, vec pgvector.Vector) *pipeline_type.Answer {
	if e.index != nil && !e.index.HasVectorIndex(ctx) {
		return nil
	}
	count, err := e.store.EmbeddedChunkCount(ctx)
	if err != nil || count == 0 {
		return nil
	}

	matches, err := e.store.SimilaritySearch(ctx, vec, e.cfg.TopK)
	if err != nil {
		e.logger.Error("Vector similarity search failed",
			slog.String("error", err.Error()))
		return nil
	}

	var relevant []storage.ChunkMatch
	for _, m := range matches {
		if m.Score >= e.cfg.SimilarityThreshold {
			relevant = append(relevant, m)
		}
	}
	if len(relevant) == 0 {
		return nil
	}

	var parts []string
	var citations []pipeline_type.Citation
	for i, m := range relevant {
		if i >= 3 {
			break
		}
		parts = append(parts, pipeline_type.Preview(m.ChunkText, e.cfg.SnippetLengthCap))
		citations = append(citations, pipeline_type.Citation{
			DocumentName: m.DocumentName,
			ChunkIndex:   m.ChunkIndex,
			Score:        m.Score,
		})
	}

	return &pipeline_type.Answer{
		Text:      formatAnswer(parts, citations),
		Tier:      pipeline_type.TierVector,
		Citations: citations,
	}
}

// lexicalTier selects candidate documents (by summary-embedding similarity
// when a query embedding exists, otherwise the whole collection), gates them
// on keyword overlap, and builds the snippet from top-scoring sentences.
func (e *Engine) lexicalTier(ctx context.Context, question string, vec *pgvector.Vector) *pipeline_type.Answer {
	var candidates []storage.StoredDocument

	if vec != nil {
		matches, err := e.store.DocumentsBySummarySimilarity(ctx, *vec, e.cfg.SimilarityThreshold, e.cfg.TopK)
		if err != nil {
			e.logger.Error("Summary similarity query failed",
				slog.String("error", err.Error()))
		}
		for _, m := range matches {
			candidates = append(candidates, m.Document)
		}
	}

	if len(candidates) == 0 {
		docs, err := e.store.GetDocuments(ctx, nil)
		if err != nil {
			e.logger.Error("Failed to list documents for lexical tier",
				slog.String("error", err.Error()))
			return nil
		}
		candidates = docs
	}

	var parts []string
	var citations []pipeline_type.Citation
	for _, doc := range candidates {
		if len(parts) >= 3 {
			break
		}
		overlap := keywordOverlap(question, doc.Summary)
		source := doc.Summary
		if overlap < e.cfg.KeywordOverlapFloor {
			overlap = keywordOverlap(question, doc.Content)
			source = doc.Content
		}
		if overlap < e.cfg.KeywordOverlapFloor {
			continue
		}

		snippet := topSentences(question, source, e.cfg.SnippetLengthCap)
		if snippet == "" {
			continue
		}
		parts = append(parts, snippet)
		citations = append(citations, pipeline_type.Citation{
			DocumentName: doc.DocumentName,
			Score:        overlap,
		})
	}

	if len(parts) == 0 {
		return nil
	}

	return &pipeline_type.Answer{
		Text:      formatAnswer(parts, citations),
		Tier:      pipeline_type.TierLexical,
		Citations: citations,
	}
}

// substringTier is the last resort: a case-insensitive substring match over
// stored content, answering with the containing document's summary.
func (e *Engine) substringTier(ctx context.Context, question string) *pipeline_type.Answer {
	docs, err := e.store.TextSearch(ctx, question, 1)
	if err != nil {
		e.logger.Error("Substring search failed",
			slog.String("error", err.Error()))
		return nil
	}
	if len(docs) == 0 {
		return nil
	}

	doc := docs[0]
	citations := []pipeline_type.Citation{{DocumentName: doc.DocumentName}}
	return &pipeline_type.Answer{
		Text:      formatAnswer([]string{doc.Summary}, citations),
		Tier:      pipeline_type.TierSubstring,
		Citations: citations,
	}
}

func formatAnswer(parts []string, citations []pipeline_type.Citation) string {
	var b strings.Builder
	b.WriteString("## Answer\n\n")
	b.WriteString(strings.Join(parts, "\n\n"))
	b.WriteString("\n\n## Sources\n\n")
	for _, c := range citations {
		if c.Score > 0 {
			fmt.Fprintf(&b, "- %s (similarity: %.2f)\n", c.DocumentName, c.Score)
		} else {
			fmt.Fprintf(&b, "- %s\n", c.DocumentName)
		}
	}
	return strings.TrimSpace(b.String())
}
