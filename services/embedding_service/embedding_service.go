package embedding_service

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingService is the embedding collaborator: text in, fixed-dimension
// vector out. Implementations also report the token count consumed.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, int, error)
}

type MockEmbeddingService struct {
	EmbedFunc func(ctx context.Context, text string) (pgvector.Vector, int, error)
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) (pgvector.Vector, int, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return pgvector.NewVector([]float32{0, 0, 0}), 0, nil
}
