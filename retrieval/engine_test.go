package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/serisow/lecahier/pipeline_type"
	"github.com/serisow/lecahier/services/embedding_service"
	"github.com/serisow/lecahier/storage"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type mockStore struct {
	SimilaritySearchFunc             func(ctx context.Context, vec pgvector.Vector, k int) ([]storage.ChunkMatch, error)
	DocumentsBySummarySimilarityFunc func(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]storage.DocumentMatch, error)
	GetDocumentsFunc                 func(ctx context.Context, names []string) ([]storage.StoredDocument, error)
	TextSearchFunc                   func(ctx context.Context, pattern string, limit int) ([]storage.StoredDocument, error)
	EmbeddedChunkCountFunc           func(ctx context.Context) (int, error)
}

func (m *mockStore) SimilaritySearch(ctx context.Context, vec pgvector.Vector, k int) ([]storage.ChunkMatch, error) {
	if m.SimilaritySearchFunc != nil {
		return m.SimilaritySearchFunc(ctx, vec, k)
	}
	return nil, nil
}

func (m *mockStore) DocumentsBySummarySimilarity(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]storage.DocumentMatch, error) {
	if m.DocumentsBySummarySimilarityFunc != nil {
		return m.DocumentsBySummarySimilarityFunc(ctx, vec, threshold, limit)
	}
	return nil, nil
}

func (m *mockStore) GetDocuments(ctx context.Context, names []string) ([]storage.StoredDocument, error) {
	if m.GetDocumentsFunc != nil {
		return m.GetDocumentsFunc(ctx, names)
	}
	return nil, nil
}

func (m *mockStore) TextSearch(ctx context.Context, pattern string, limit int) ([]storage.StoredDocument, error) {
	if m.TextSearchFunc != nil {
		return m.TextSearchFunc(ctx, pattern, limit)
	}
	return nil, nil
}

func (m *mockStore) EmbeddedChunkCount(ctx context.Context) (int, error) {
	if m.EmbeddedChunkCountFunc != nil {
		return m.EmbeddedChunkCountFunc(ctx)
	}
	return 0, nil
}

func stubEmbedder() *embedding_service.MockEmbeddingService {
	return &embedding_service.MockEmbeddingService{
		EmbedFunc: func(ctx context.Context, text string) (pgvector.Vector, int, error) {
			return pgvector.NewVector([]float32{1, 0, 0}), 3, nil
		},
	}
}

func TestAsk_EmptyStoreReturnsNil(t *testing.T) {
	engine := NewEngine(&mockStore{}, nil, nil, DefaultConfig(), testLogger())

	answer, err := engine.Ask(context.Background(), "What is this about?")
	if err != nil {
		t.Fatalf("empty store must not error: %v", err)
	}
	if answer != nil {
		t.Errorf("expected nil answer for empty store, got %+v", answer)
	}
}

func TestAsk_VectorTierWins(t *testing.T) {
	// Both a vector match and a lexical match exist; the vector tier must
	// short-circuit.
	store := &mockStore{
		EmbeddedChunkCountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SimilaritySearchFunc: func(ctx context.Context, vec pgvector.Vector, k int) ([]storage.ChunkMatch, error) {
			return []storage.ChunkMatch{
				{DocumentID: "d1", DocumentName: "fusion.pdf", ChunkText: "Fusion reactors confine plasma with magnetic fields.", ChunkIndex: 2, Kind: pipeline_type.ChunkKindContent, Score: 0.91},
			}, nil
		},
		GetDocumentsFunc: func(ctx context.Context, names []string) ([]storage.StoredDocument, error) {
			return []storage.StoredDocument{
				{DocumentName: "fusion.pdf", Summary: "A summary about fusion reactors and plasma confinement."},
			}, nil
		},
	}

	engine := NewEngine(store, stubEmbedder(), nil, DefaultConfig(), testLogger())
	answer, err := engine.Ask(context.Background(), "How do fusion reactors confine plasma?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected an answer")
	}
	if answer.Tier != pipeline_type.TierVector {
		t.Errorf("expected vector tier, got %s", answer.Tier)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].ChunkIndex != 2 {
		t.Errorf("expected chunk citation, got %+v", answer.Citations)
	}
	if !strings.Contains(answer.Text, "magnetic fields") {
		t.Errorf("answer should contain the chunk text, got %q", answer.Text)
	}
}

type mockIndex struct {
	has bool
}

func (m *mockIndex) HasVectorIndex(ctx context.Context) bool { return m.has }

func TestAsk_MissingIndexSkipsVectorTier(t *testing.T) {
	// Embedded chunks exist but the similarity index does not, so the query
	// must demote straight to the lexical tier.
	store := &mockStore{
		EmbeddedChunkCountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SimilaritySearchFunc: func(ctx context.Context, vec pgvector.Vector, k int) ([]storage.ChunkMatch, error) {
			t.Error("similarity search must not run without the index")
			return nil, nil
		},
		DocumentsBySummarySimilarityFunc: func(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]storage.DocumentMatch, error) {
			return []storage.DocumentMatch{
				{Document: storage.StoredDocument{
					DocumentName: "fusion.pdf",
					Summary:      "Fusion reactors confine hot plasma using strong magnetic fields.",
				}, Score: 0.75},
			}, nil
		},
	}

	engine := NewEngine(store, stubEmbedder(), &mockIndex{has: false}, DefaultConfig(), testLogger())
	answer, err := engine.Ask(context.Background(), "How do reactors confine plasma with magnetic fields?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a lexical answer")
	}
	if answer.Tier != pipeline_type.TierLexical {
		t.Errorf("expected lexical tier, got %s", answer.Tier)
	}
}

func TestAsk_LowSimilarityFallsToLexical(t *testing.T) {
	store := &mockStore{
		EmbeddedChunkCountFunc: func(ctx context.Context) (int, error) { return 10, nil },
		SimilaritySearchFunc: func(ctx context.Context, vec pgvector.Vector, k int) ([]storage.ChunkMatch, error) {
			// Below threshold, so the vector tier must yield nothing.
			return []storage.ChunkMatch{
				{DocumentName: "other.pdf", ChunkText: "Unrelated text.", Score: 0.2},
			}, nil
		},
		DocumentsBySummarySimilarityFunc: func(ctx context.Context, vec pgvector.Vector, threshold float64, limit int) ([]storage.DocumentMatch, error) {
			return []storage.DocumentMatch{
				{Document: storage.StoredDocument{
					DocumentName: "fusion.pdf",
					Summary:      "Fusion reactors confine hot plasma using strong magnetic fields. Commercial designs remain experimental.",
					Content:      "Fusion reactors confine hot plasma using strong magnetic fields. The tokamak is the leading design.",
				}, Score: 0.75},
			}, nil
		},
	}

	engine := NewEngine(store, stubEmbedder(), nil, DefaultConfig(), testLogger())
	answer, err := engine.Ask(context.Background(), "How do reactors confine plasma with magnetic fields?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a lexical answer")
	}
	if answer.Tier != pipeline_type.TierLexical {
		t.Errorf("expected lexical tier, got %s", answer.Tier)
	}
	if !strings.Contains(answer.Text, "magnetic fields") {
		t.Errorf("snippet should contain the overlapping sentence, got %q", answer.Text)
	}
}

func TestAsk_NoVectorIndexKeywordOverlapReturnsLexical(t *testing.T) {
	doc := storage.StoredDocument{
		DocumentName: "climate.txt",
		Summary:      "Rising ocean temperatures accelerate coral bleaching worldwide. Reef ecosystems struggle to recover.",
		Content:      "Rising ocean temperatures accelerate coral bleaching worldwide. Many reef systems never recover fully.",
	}
	store := &mockStore{
		GetDocumentsFunc: func(ctx context.Context, names []string) ([]storage.StoredDocument, error) {
			return []storage.StoredDocument{doc}, nil
		},
	}

	// No embedder at all: the vector tier is unavailable.
	engine := NewEngine(store, nil, nil, DefaultConfig(), testLogger())
	answer, err := engine.Ask(context.Background(), "What accelerates coral bleaching?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a lexical answer for overlapping keywords")
	}
	if answer.Tier != pipeline_type.TierLexical {
		t.Errorf("expected lexical tier, got %s", answer.Tier)
	}
}

func TestAsk_SubstringTierLastResort(t *testing.T) {
	doc := storage.StoredDocument{
		DocumentName: "notes.txt",
		Summary:      "Internal engineering notes about the батискаф prototype.",
		Content:      "the батискаф dives deep",
	}
	store := &mockStore{
		GetDocumentsFunc: func(ctx context.Context, names []string) ([]storage.StoredDocument, error) {
			return []storage.StoredDocument{doc}, nil
		},
		TextSearchFunc: func(ctx context.Context, pattern string, limit int) ([]storage.StoredDocument, error) {
			if strings.Contains(doc.Content, strings.ToLower(pattern)) {
				return []storage.StoredDocument{doc}, nil
			}
			return nil, nil
		},
	}

	// A mid-word fragment: no keyword overlap, so only the substring tier
	// can find it.
	engine := NewEngine(store, nil, nil, DefaultConfig(), testLogger())
	answer, err := engine.Ask(context.Background(), "батис")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil {
		t.Fatal("expected a substring answer")
	}
	if answer.Tier != pipeline_type.TierSubstring {
		t.Errorf("expected substring tier, got %s", answer.Tier)
	}
	if !strings.Contains(answer.Text, doc.Summary) {
		t.Errorf("substring answer should return the document summary")
	}
}

func TestAsk_BlankQuestionReturnsNil(t *testing.T) {
	engine := NewEngine(&mockStore{}, stubEmbedder(), nil, DefaultConfig(), testLogger())
	answer, err := engine.Ask(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != nil {
		t.Errorf("expected nil for blank question")
	}
}

func TestKeywordOverlap(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  float64
	}{
		{"full overlap", "coral bleaching", "coral bleaching is here", 1.0},
		{"no overlap", "quantum physics", "cooking pasta recipes", 0.0},
		{"short tokens ignored", "the and for", "anything", 0.0},
		{"half overlap", "coral reefs dying fast", "coral reefs thriving here slowly", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keywordOverlap(tt.query, tt.text)
			if got != tt.want {
				t.Errorf("keywordOverlap(%q, %q) = %f, want %f", tt.query, tt.text, got, tt.want)
			}
		})
	}
}

func TestTopSentences_OrderAndCap(t *testing.T) {
	text := "Alpha unrelated filler sentence here. Coral bleaching accelerates under heat stress. Another filler goes here. Ocean temperatures drive coral bleaching events."
	snippet := topSentences("coral bleaching temperatures", text, 1000)

	if !strings.Contains(snippet, "Coral bleaching accelerates") {
		t.Errorf("snippet missing high-scoring sentence: %q", snippet)
	}
	if strings.Contains(snippet, "Alpha unrelated") {
		t.Errorf("snippet should not contain zero-score sentences: %q", snippet)
	}
	// Selected sentences come back in document order.
	first := strings.Index(snippet, "Coral bleaching accelerates")
	second := strings.Index(snippet, "Ocean temperatures")
	if first > second {
		t.Errorf("sentences out of document order: %q", snippet)
	}
}
