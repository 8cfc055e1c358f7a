package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/serisow/lecahier/pipeline_type"
)

// Extractor converts a source file into a raw document. The concrete
// implementation lives in services/extraction_service.
type Extractor interface {
	Extract(path, title string) (*pipeline_type.RawDocument, error)
}

// Enricher produces annotations for a raw document. It never fails: degraded
// sub-tasks are replaced by fallback content internally.
type Enricher interface {
	Enrich(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult
}

// Orchestrator drives one document through the processing states:
// Extracting -> Enriching -> Assembling -> Ready, with Failed reachable from
// any of them. Transitions are one-directional and each stage consumes the
// previous stage's event, so exactly one artifact is in flight per run. The
// orchestrator holds no state across runs; persistence is the caller's job.
type Orchestrator struct {
	extractor Extractor
	enricher  Enricher
	logger    *slog.Logger
}

func NewOrchestrator(extractor Extractor, enricher Enricher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		enricher:  enricher,
		logger:    logger,
	}
}

// Run processes a single file. Exactly one of the return values is non-nil.
// Extraction failures are terminal and not recoverable. Enrichment cannot
// fail (it degrades internally), and an assembly problem degrades to an
// artifact without a mind map rather than a failure.
func (o *Orchestrator) Run(ctx context.Context, filePath, title string) (*pipeline_type.NotebookArtifact, *pipeline_type.FailureReport) {
	start := timeProvider.Now()

	o.logger.Info("Pipeline run started",
		slog.String("file", filePath),
		slog.String("title", title))

	doc, err := o.extractor.Extract(filePath, title)
	if err != nil {
		return nil, o.fail(pipeline_type.StageExtracting, err, false, title, nil, nil)
	}

	processed, err := pipeline_type.NewDocumentProcessedEvent(doc, timeProvider.Now().Sub(start))
	if err != nil {
		return nil, o.fail(pipeline_type.StageExtracting, err, false, title, nil, nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, o.fail(pipeline_type.StageEnriching, err, false, title, doc, nil)
	}

	enrichment := o.enricher.Enrich(ctx, processed.Document)
	enriched, err := pipeline_type.NewContentEnrichedEvent(processed, enrichment)
	if err != nil {
		// Enrich guarantees structural validity, so this transition cannot
		// normally fail; report it rather than panic if it ever does.
		return nil, o.fail(pipeline_type.StageEnriching, err, true, title, doc, enrichment)
	}

	artifact := &pipeline_type.NotebookArtifact{
		Document:   enriched.Origin.Document,
		Enrichment: enriched.Enrichment,
		Notebook:   BuildNotebook(enriched.Origin.Document, enriched.Enrichment),
	}

	mindMap, err := BuildMindMap(enriched.Enrichment)
	if err != nil {
		asmErr := &pipeline_type.AssemblyError{Err: err}
		o.logger.Warn("Mind map assembly degraded",
			slog.String("title", title),
			slog.String("error", asmErr.Error()))
	} else {
		artifact.MindMap = mindMap
	}

	ready, err := pipeline_type.NewNotebookReadyEvent(artifact)
	if err != nil {
		return nil, o.fail(pipeline_type.StageAssembling, err, true, title, doc, enrichment)
	}

	o.logger.Info("Pipeline run completed",
		slog.String("title", title),
		slog.Float64("quality_score", enrichment.QualityScore),
		slog.Duration("elapsed", timeProvider.Now().Sub(start)))

	return ready.Artifact, nil
}

// fail builds the terminal failure event and its report. The partial result
// carries whatever the run produced before the failing stage, and is never
// empty: at minimum it holds a notebook shell naming the failure.
func (o *Orchestrator) fail(stage pipeline_type.Stage, cause error, recoverable bool, title string, doc *pipeline_type.RawDocument, enrichment *pipeline_type.EnrichmentResult) *pipeline_type.FailureReport {
	event := pipeline_type.NewPipelineErrorEvent(stage, cause, recoverable)
	o.logger.Error("Pipeline run failed",
		slog.String("title", title),
		slog.String("stage", string(stage)),
		slog.Bool("recoverable", recoverable),
		slog.String("error", cause.Error()))

	partial := &pipeline_type.NotebookArtifact{
		Document:   doc,
		Enrichment: enrichment,
		Notebook: &pipeline_type.NotebookContent{
			Title:       title,
			GeneratedAt: time.Now(),
			Sections: []pipeline_type.NotebookSection{
				{Heading: "Processing Failed", Body: event.Error()},
			},
		},
	}

	return &pipeline_type.FailureReport{
		Stage:       stage,
		Cause:       cause.Error(),
		Recoverable: recoverable,
		Partial:     partial,
	}
}
