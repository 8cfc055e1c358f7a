package pipeline_type

import (
	"fmt"
	"time"
)

// Pipeline events form a single-producer, single-consumer chain: each stage
// consumes exactly one event and emits exactly one, so there is one in-flight
// artifact per run. Constructors validate the invariants of the stage that
// produced them.

// DocumentProcessedEvent is emitted after successful extraction.
type DocumentProcessedEvent struct {
	Document       *RawDocument
	ProcessingTime time.Duration
	Timestamp      time.Time
}

func NewDocumentProcessedEvent(doc *RawDocument, elapsed time.Duration) (*DocumentProcessedEvent, error) {
	if doc == nil {
		return nil, fmt.Errorf("document must not be nil")
	}
	if len(doc.Content) < MinContentLength {
		return nil, fmt.Errorf("document content below floor: %d characters", len(doc.Content))
	}
	return &DocumentProcessedEvent{
		Document:       doc,
		ProcessingTime: elapsed,
		Timestamp:      time.Now(),
	}, nil
}

// ContentEnrichedEvent is emitted after enrichment. It keeps a reference to
// the originating event so the raw content travels untouched.
type ContentEnrichedEvent struct {
	Origin     *DocumentProcessedEvent
	Enrichment *EnrichmentResult
	Timestamp  time.Time
}

func NewContentEnrichedEvent(origin *DocumentProcessedEvent, enrichment *EnrichmentResult) (*ContentEnrichedEvent, error) {
	if origin == nil {
		return nil, fmt.Errorf("origin event must not be nil")
	}
	if enrichment == nil {
		return nil, fmt.Errorf("enrichment result must not be nil")
	}
	if err := enrichment.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enrichment result: %w", err)
	}
	return &ContentEnrichedEvent{
		Origin:     origin,
		Enrichment: enrichment,
		Timestamp:  time.Now(),
	}, nil
}

// NotebookReadyEvent is the terminal success event.
type NotebookReadyEvent struct {
	Artifact  *NotebookArtifact
	Timestamp time.Time
}

func NewNotebookReadyEvent(artifact *NotebookArtifact) (*NotebookReadyEvent, error) {
	if artifact == nil || artifact.Document == nil || artifact.Enrichment == nil {
		return nil, fmt.Errorf("artifact must carry document and enrichment")
	}
	if artifact.Notebook == nil {
		return nil, fmt.Errorf("artifact must carry notebook content")
	}
	return &NotebookReadyEvent{Artifact: artifact, Timestamp: time.Now()}, nil
}

// PipelineErrorEvent is the terminal failure event, reachable from any stage.
type PipelineErrorEvent struct {
	Stage       Stage
	Err         error
	Recoverable bool
	Timestamp   time.Time
}

func NewPipelineErrorEvent(stage Stage, err error, recoverable bool) *PipelineErrorEvent {
	return &PipelineErrorEvent{
		Stage:       stage,
		Err:         err,
		Recoverable: recoverable,
		Timestamp:   time.Now(),
	}
}

func (e *PipelineErrorEvent) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}
