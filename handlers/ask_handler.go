package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/serisow/lecahier/retrieval"
)

// AskRequest represents the incoming query request
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse represents the response sent back to the caller. Found is
// false when no retrieval tier cleared its threshold; that is a valid
// outcome, not an error.
type AskResponse struct {
	Found  bool        `json:"found"`
	Answer interface{} `json:"answer,omitempty"`
}

// AskHandler answers natural-language questions over the stored collection.
type AskHandler struct {
	engine *retrieval.Engine
	logger *slog.Logger
	debug  bool
}

func NewAskHandler(engine *retrieval.Engine, logger *slog.Logger, debug bool) *AskHandler {
	return &AskHandler{
		engine: engine,
		logger: logger,
		debug:  debug,
	}
}

func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body",
			slog.String("error", err.Error()))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	answer, err := h.engine.Ask(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("Retrieval failed",
			slog.String("question", req.Question),
			slog.String("error", err.Error()))
		http.Error(w, "Failed to process question", http.StatusInternalServerError)
		return
	}

	if h.debug {
		spew.Dump(answer)
	}

	response := AskResponse{Found: answer != nil}
	if answer != nil {
		response.Answer = answer
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode response",
			slog.String("error", err.Error()))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
