package pipeline_type

import (
	"fmt"
	"time"
)

// ChunkKind distinguishes full-content chunks from the smaller summary chunk
// embedded alongside them.
type ChunkKind string

const (
	ChunkKindContent ChunkKind = "content"
	ChunkKindSummary ChunkKind = "summary"
)

// MindMapBranch is one topic node with the key points assigned to it.
type MindMapBranch struct {
	Topic  string   `json:"topic"`
	Points []string `json:"points,omitempty"`
}

// MindMap is the topic graph derived from enrichment output. Rendering it is
// the UI's concern; the pipeline only produces the structure.
type MindMap struct {
	Root     string          `json:"root"`
	Branches []MindMapBranch `json:"branches"`
}

// NotebookSection is one markdown section of the assembled notebook.
type NotebookSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// NotebookContent is the assembled notebook structure handed to callers.
type NotebookContent struct {
	Title       string            `json:"title"`
	GeneratedAt time.Time         `json:"generated_at"`
	Sections    []NotebookSection `json:"sections"`
}

// NotebookArtifact is the terminal aggregate of one pipeline run. MindMap is
// nil when assembly degraded; everything else is always present.
type NotebookArtifact struct {
	Document   *RawDocument
	Enrichment *EnrichmentResult
	MindMap    *MindMap
	Notebook   *NotebookContent
}

// Stage identifies a pipeline state. Transitions are one-directional.
type Stage string

const (
	StageExtracting Stage = "extracting"
	StageEnriching  Stage = "enriching"
	StageAssembling Stage = "assembling"
	StageReady      Stage = "ready"
	StageFailed     Stage = "failed"
)

// FailureReport is returned instead of an artifact when a run fails. Partial
// is never nil: even extraction failures carry a placeholder artifact so the
// caller's rendering path has no failure-mode branching.
type FailureReport struct {
	Stage       Stage  `json:"stage"`
	Cause       string `json:"cause"`
	Recoverable bool   `json:"recoverable"`
	Partial     *NotebookArtifact
}

func (f *FailureReport) Error() string {
	return fmt.Sprintf("pipeline failed at stage %s: %s", f.Stage, f.Cause)
}

// Citation names the stored document (and chunk, for vector matches) an
// answer was composed from.
type Citation struct {
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index,omitempty"`
	Score        float64 `json:"score,omitempty"`
}

// AnswerTier records which retrieval tier produced an answer.
type AnswerTier string

const (
	TierVector    AnswerTier = "vector"
	TierLexical   AnswerTier = "lexical"
	TierSubstring AnswerTier = "substring"
)

// Answer is a non-nil retrieval result. A query that clears no tier returns
// a nil *Answer, not an error.
type Answer struct {
	Text      string     `json:"text"`
	Tier      AnswerTier `json:"tier"`
	Citations []Citation `json:"citations,omitempty"`
}

// CollectionStats summarizes the stored document collection.
type CollectionStats struct {
	TotalDocuments     int      `json:"total_documents"`
	ProcessedDocuments int      `json:"processed_documents"`
	TotalContentLength int64    `json:"total_content_length"`
	RecentDocuments    []string `json:"recent_documents"`
}
