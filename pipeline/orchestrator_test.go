package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/serisow/lecahier/pipeline_type"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type mockExtractor struct {
	ExtractFunc func(path, title string) (*pipeline_type.RawDocument, error)
}

func (m *mockExtractor) Extract(path, title string) (*pipeline_type.RawDocument, error) {
	return m.ExtractFunc(path, title)
}

type mockEnricher struct {
	EnrichFunc func(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult
}

func (m *mockEnricher) Enrich(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult {
	return m.EnrichFunc(ctx, doc)
}

func validEnrichment() *pipeline_type.EnrichmentResult {
	return &pipeline_type.EnrichmentResult{
		Summary: "This document describes plasma confinement strategies used in experimental fusion reactors worldwide.",
		KeyPoints: []string{
			"Magnetic confinement remains the dominant approach",
			"Tokamak designs lead current experiments",
			"Commercial viability is still decades away",
		},
		Questions: []string{
			"What confines the plasma?",
			"Which design leads current experiments?",
			"Is fusion commercially viable today?",
		},
		Answers: []string{
			"Strong magnetic fields confine the plasma inside the reactor vessel.",
			"The tokamak design leads most current fusion experiments.",
			"No, commercial fusion power is still decades away from viability.",
		},
		Topics:       []string{"fusion", "plasma", "reactors"},
		QualityScore: 0.85,
	}
}

func newTestDocument(content string) *pipeline_type.RawDocument {
	return &pipeline_type.RawDocument{
		Title:      "Fusion Notes",
		Content:    content,
		SourcePath: "/tmp/fusion.txt",
	}
}

func newTestArtifact() *pipeline_type.NotebookArtifact {
	doc := newTestDocument("Fusion reactors confine hot plasma using strong magnetic fields.")
	enrichment := validEnrichment()
	return &pipeline_type.NotebookArtifact{
		Document:   doc,
		Enrichment: enrichment,
		Notebook:   BuildNotebook(doc, enrichment),
	}
}

func TestRun_SuccessPreservesContent(t *testing.T) {
	content := strings.Repeat("Alpha Beta Gamma. ", 50)
	content = strings.TrimSpace(content)

	extractor := &mockExtractor{
		ExtractFunc: func(path, title string) (*pipeline_type.RawDocument, error) {
			return newTestDocument(content), nil
		},
	}
	enricher := &mockEnricher{
		EnrichFunc: func(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult {
			return validEnrichment()
		},
	}

	orch := NewOrchestrator(extractor, enricher, testLogger())
	artifact, failure := orch.Run(context.Background(), "/tmp/fusion.txt", "Fusion Notes")
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if artifact == nil {
		t.Fatal("expected an artifact")
	}
	if len(artifact.Document.Content) != len(content) {
		t.Errorf("content length changed: got %d, want %d", len(artifact.Document.Content), len(content))
	}
	if artifact.Notebook == nil || len(artifact.Notebook.Sections) < 3 {
		t.Errorf("notebook missing sections: %+v", artifact.Notebook)
	}
	if artifact.MindMap == nil {
		t.Error("expected a mind map for a fully valid enrichment")
	}
}

func TestRun_ExtractionFailureIsTerminal(t *testing.T) {
	extractor := &mockExtractor{
		ExtractFunc: func(path, title string) (*pipeline_type.RawDocument, error) {
			return nil, &pipeline_type.ExtractionError{Path: path, Err: errors.New("unsupported format")}
		},
	}
	enricher := &mockEnricher{
		EnrichFunc: func(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult {
			t.Fatal("enrichment must not run after extraction failure")
			return nil
		},
	}

	orch := NewOrchestrator(extractor, enricher, testLogger())
	artifact, failure := orch.Run(context.Background(), "/tmp/broken.bin", "Broken")
	if artifact != nil {
		t.Fatal("expected no artifact")
	}
	if failure == nil {
		t.Fatal("expected a failure report")
	}
	if failure.Stage != pipeline_type.StageExtracting {
		t.Errorf("expected stage %s, got %s", pipeline_type.StageExtracting, failure.Stage)
	}
	if failure.Recoverable {
		t.Error("extraction failure must not be recoverable")
	}
	if failure.Partial == nil || failure.Partial.Notebook == nil {
		t.Error("failure report must carry a non-empty partial result")
	}
}

func TestRun_DegradedEnrichmentStillSucceeds(t *testing.T) {
	// An all-fallback enrichment is structurally valid, so the run must reach
	// Ready rather than Failed.
	degraded := validEnrichment()
	degraded.Model = "fallback"
	degraded.DegradedFields = 4
	degraded.QualityScore = 0.25

	extractor := &mockExtractor{
		ExtractFunc: func(path, title string) (*pipeline_type.RawDocument, error) {
			return newTestDocument("Fusion reactors confine hot plasma using strong magnetic fields inside a vessel."), nil
		},
	}
	enricher := &mockEnricher{
		EnrichFunc: func(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult {
			return degraded
		},
	}

	orch := NewOrchestrator(extractor, enricher, testLogger())
	artifact, failure := orch.Run(context.Background(), "/tmp/fusion.txt", "Fusion Notes")
	if failure != nil {
		t.Fatalf("degraded enrichment must not fail the run: %v", failure)
	}
	if artifact.Enrichment.QualityScore > 0.5 {
		t.Errorf("expected a degraded quality score, got %f", artifact.Enrichment.QualityScore)
	}
}

func TestBuildMindMap(t *testing.T) {
	tests := []struct {
		name       string
		enrichment *pipeline_type.EnrichmentResult
		wantErr    bool
		branches   int
	}{
		{"valid enrichment", validEnrichment(), false, 3},
		{"no topics", &pipeline_type.EnrichmentResult{KeyPoints: []string{"a"}}, true, 0},
		{"nil enrichment", nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm, err := BuildMindMap(tt.enrichment)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mm.Branches) != tt.branches {
				t.Errorf("expected %d branches, got %d", tt.branches, len(mm.Branches))
			}
		})
	}
}

func TestBuildMindMap_RoundRobinPoints(t *testing.T) {
	enrichment := validEnrichment()
	enrichment.Topics = []string{"fusion", "plasma"}
	enrichment.KeyPoints = []string{"p1", "p2", "p3"}

	mm, err := BuildMindMap(enrichment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mm.Branches[0].Points) != 2 || len(mm.Branches[1].Points) != 1 {
		t.Errorf("points not distributed round-robin: %+v", mm.Branches)
	}
}

func TestBuildNotebook_SectionsFromEnrichment(t *testing.T) {
	doc := newTestDocument("Fusion reactors confine hot plasma.")
	doc.Tables = []pipeline_type.TableRef{{Caption: "Reactor comparison"}}

	nb := BuildNotebook(doc, validEnrichment())
	if nb.Title != doc.Title {
		t.Errorf("expected title %q, got %q", doc.Title, nb.Title)
	}
	if len(nb.Sections) != 4 {
		t.Fatalf("expected 4 sections including extracted elements, got %d", len(nb.Sections))
	}
	if !strings.Contains(nb.Sections[2].Body, "?**") {
		t.Errorf("Q&A section should contain formatted questions: %q", nb.Sections[2].Body)
	}
}
