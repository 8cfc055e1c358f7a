package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/serisow/lecahier/pipeline_type"
	"github.com/serisow/lecahier/storage"
)

// CollectionReader is the read-only slice of the document store exposed to
// the listing endpoints.
type CollectionReader interface {
	GetDocuments(ctx context.Context, names []string) ([]storage.StoredDocument, error)
	Stats(ctx context.Context) (pipeline_type.CollectionStats, error)
}

// CollectionHandler serves the stored-document listing and collection stats.
type CollectionHandler struct {
	store  CollectionReader
	logger *slog.Logger
}

func NewCollectionHandler(store CollectionReader, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{
		store:  store,
		logger: logger,
	}
}

// ListDocuments handles GET /documents. An optional repeated "name" query
// parameter filters the result.
func (h *CollectionHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	names := r.URL.Query()["name"]

	docs, err := h.store.GetDocuments(r.Context(), names)
	if err != nil {
		h.logger.Error("Failed to list documents",
			slog.String("error", err.Error()))
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// GetStats handles GET /documents/stats.
func (h *CollectionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute collection stats",
			slog.String("error", err.Error()))
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
