package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/serisow/lecahier/pipeline_type"
)

// BuildMindMap derives the topic graph from enrichment output: one branch
// per topic, with key points distributed round-robin so every branch gets
// content even when there are fewer points than topics.
func BuildMindMap(enrichment *pipeline_type.EnrichmentResult) (*pipeline_type.MindMap, error) {
	if enrichment == nil || len(enrichment.Topics) == 0 {
		return nil, fmt.Errorf("no topics to build a mind map from")
	}

	branches := make([]pipeline_type.MindMapBranch, len(enrichment.Topics))
	for i, topic := range enrichment.Topics {
		branches[i] = pipeline_type.MindMapBranch{Topic: topic}
	}
	for i, point := range enrichment.KeyPoints {
		branch := &branches[i%len(branches)]
		branch.Points = append(branch.Points, point)
	}

	root := enrichment.Topics[0]
	if len(enrichment.Topics) > 1 {
		root = "Document Overview"
	}

	return &pipeline_type.MindMap{Root: root, Branches: branches}, nil
}

// BuildNotebook assembles the display structure from the document and its
// enrichment. It cannot fail: every section derives from fields the
// enrichment result guarantees to be present.
func BuildNotebook(doc *pipeline_type.RawDocument, enrichment *pipeline_type.EnrichmentResult) *pipeline_type.NotebookContent {
	var points strings.Builder
	for _, p := range enrichment.KeyPoints {
		fmt.Fprintf(&points, "- %s\n", p)
	}

	sections := []pipeline_type.NotebookSection{
		{Heading: "Summary", Body: enrichment.Summary},
		{Heading: "Key Highlights", Body: strings.TrimSpace(points.String())},
		{Heading: "Questions & Answers", Body: enrichment.FormattedQA()},
	}

	if len(doc.Tables) > 0 || len(doc.Figures) > 0 {
		sections = append(sections, pipeline_type.NotebookSection{
			Heading: "Extracted Elements",
			Body:    fmt.Sprintf("%d tables, %d figures", len(doc.Tables), len(doc.Figures)),
		})
	}

	return &pipeline_type.NotebookContent{
		Title:       doc.Title,
		GeneratedAt: time.Now(),
		Sections:    sections,
	}
}
