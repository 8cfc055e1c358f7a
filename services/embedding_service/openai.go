package embedding_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pgvector/pgvector-go"
)

type EmbeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Object string `json:"object"`
}

type OpenAIEmbeddingService struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string
	apiKey     string
	model      string
}

func NewOpenAIEmbeddingService(logger *slog.Logger, apiURL, apiKey, model string) *OpenAIEmbeddingService {
	return &OpenAIEmbeddingService{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
	}
}

func (s *OpenAIEmbeddingService) Embed(ctx context.Context, text string) (pgvector.Vector, int, error) {
	if s.apiKey == "" {
		return pgvector.Vector{}, 0, fmt.Errorf("OPENAI_API_KEY not set")
	}

	requestBody := EmbeddingRequest{
		Input: text,
		Model: s.model,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return pgvector.Vector{}, 0, fmt.Errorf("failed to marshal embedding request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return pgvector.Vector{}, 0, fmt.Errorf("failed to create HTTP request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return pgvector.Vector{}, 0, fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return pgvector.Vector{}, 0, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddingResp EmbeddingResponse
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&embeddingResp); err != nil {
		return pgvector.Vector{}, 0, fmt.Errorf("failed to decode embedding response: %v", err)
	}

	if len(embeddingResp.Data) == 0 {
		return pgvector.Vector{}, 0, fmt.Errorf("no embedding data received")
	}

	s.logger.Debug("Generated embedding",
		slog.Int("dimensions", len(embeddingResp.Data[0].Embedding)),
		slog.Int("total_tokens", embeddingResp.Usage.TotalTokens))

	return pgvector.NewVector(embeddingResp.Data[0].Embedding), embeddingResp.Usage.TotalTokens, nil
}
