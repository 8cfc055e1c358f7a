package storage

import (
	"testing"

	"github.com/serisow/lecahier/pipeline_type"
)

func TestEscapeLikePattern(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "fusion reactor", "fusion reactor"},
		{"percent escaped", "grew 40% last year", `grew 40\% last year`},
		{"underscore escaped", "snake_case identifier", `snake\_case identifier`},
		{"backslash escaped first", `path\to%file`, `path\\to\%file`},
		{"only metacharacters", "%_%", `\%\_\%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLikePattern(tt.in); got != tt.want {
				t.Errorf("escapeLikePattern(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildMetadataLeavesDocumentUntouched(t *testing.T) {
	doc := &pipeline_type.RawDocument{
		Title:      "Grid Notes",
		Content:    "Solar arrays produce energy during daylight hours.",
		SourcePath: "/tmp/grid_notes.txt",
		Metadata: pipeline_type.DocumentMetadata{
			ContentType:    "text/plain",
			WordCount:      7,
			ExtractionTime: 0.25,
		},
	}
	artifact := &pipeline_type.NotebookArtifact{
		Document: doc,
		Enrichment: &pipeline_type.EnrichmentResult{
			Topics:       []string{"energy"},
			Model:        "gpt-4o",
			QualityScore: 0.8,
		},
	}

	before := doc.Metadata
	metadata := buildMetadata(artifact, 1.5)

	if doc.Metadata != before {
		t.Errorf("document metadata changed during persistence: %+v", doc.Metadata)
	}
	if got := metadata["embedding_time_seconds"]; got != 1.5 {
		t.Errorf("expected embedding time 1.5, got %v", got)
	}
	if got := metadata["extraction_time_seconds"]; got != 0.25 {
		t.Errorf("expected extraction time 0.25, got %v", got)
	}
	if got := metadata["word_count"]; got != 7 {
		t.Errorf("expected word count 7, got %v", got)
	}
}
