package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/serisow/lecahier/pipeline"
	"github.com/serisow/lecahier/pipeline_type"
)

// maxUploadSize bounds multipart uploads. Large PDFs fit comfortably; this
// mostly guards against accidental junk.
const maxUploadSize = 64 << 20

// ArtifactStore is the slice of the document store the handler needs.
type ArtifactStore interface {
	PutDocument(ctx context.Context, artifact *pipeline_type.NotebookArtifact) (string, error)
}

// NotebookHandler accepts document uploads, runs them through the pipeline
// asynchronously and exposes run status for polling.
type NotebookHandler struct {
	orchestrator *pipeline.Orchestrator
	store        ArtifactStore
	logger       *slog.Logger
	uploadDir    string
}

func NewNotebookHandler(orchestrator *pipeline.Orchestrator, store ArtifactStore, logger *slog.Logger, uploadDir string) *NotebookHandler {
	return &NotebookHandler{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
		uploadDir:    uploadDir,
	}
}

// ProcessDocument handles POST /documents/process. The upload is spooled to
// disk, a run record is created and the pipeline executes in the background;
// the response carries the run ID for status polling.
func (h *NotebookHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "Missing document file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	localPath, err := h.spoolUpload(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to save uploaded document",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		http.Error(w, "Failed to save uploaded document", http.StatusInternalServerError)
		return
	}

	runID := uuid.New().String()
	now := time.Now()
	pipeline.AddRun(runID, &pipeline.RunResult{
		RunID:         runID,
		DocumentTitle: title,
		Status:        pipeline.StatusStarted,
		StartTime:     now.Unix(),
		SubmittedAt:   now.Format(time.RFC3339),
	})

	go h.execute(runID, localPath, title)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Document processing started",
		"run_id":  runID,
	})
}

func (h *NotebookHandler) execute(runID, localPath, title string) {
	defer os.Remove(localPath)

	ctx := context.Background()
	artifact, failure := h.orchestrator.Run(ctx, localPath, title)
	if failure != nil {
		pipeline.CompleteRun(runID, nil, failure)
		return
	}

	if _, err := h.store.PutDocument(ctx, artifact); err != nil {
		h.logger.Error("Failed to persist notebook artifact",
			slog.String("run_id", runID),
			slog.String("title", title),
			slog.String("error", err.Error()))
		// The artifact is still usable; surface it with the storage error.
	}

	pipeline.CompleteRun(runID, artifact, nil)
}

func (h *NotebookHandler) spoolUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}

	localPath := filepath.Join(h.uploadDir, uuid.New().String()+filepath.Ext(filename))
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("error creating upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("error writing upload file: %w", err)
	}
	return localPath, nil
}

// GetRunStatus handles GET /documents/runs/{run_id}.
func (h *NotebookHandler) GetRunStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["run_id"]

	run, exists := pipeline.GetRun(runID)
	if !exists {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}
