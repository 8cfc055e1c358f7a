package pipeline_type

import (
	"fmt"
	"strings"
	"time"
)

// MinContentLength is the content-size floor below which a document is
// rejected at extraction time.
const MinContentLength = 10

// TableRef describes a table extracted from the source document.
type TableRef struct {
	Index   int        `json:"index"`
	Caption string     `json:"caption,omitempty"`
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

// FigureRef describes a figure or image found in the source document.
type FigureRef struct {
	Index   int    `json:"index"`
	Source  string `json:"source,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// DocumentMetadata carries extraction statistics alongside the raw text.
type DocumentMetadata struct {
	ContentType    string  `json:"content_type"`
	WordCount      int     `json:"word_count"`
	PageCount      int     `json:"page_count,omitempty"`
	ContentPreview string  `json:"content_preview,omitempty"`
	ExtractionTime float64 `json:"extraction_time_seconds,omitempty"`
	EmbeddingTime  float64 `json:"embedding_time_seconds,omitempty"`
	TokenCount     int     `json:"token_count,omitempty"`
}

// RawDocument is the immutable output of text extraction. Content is never
// truncated after construction; every downstream stage carries a reference
// to the same document.
type RawDocument struct {
	Title      string
	Content    string
	Tables     []TableRef
	Figures    []FigureRef
	Metadata   DocumentMetadata
	SourcePath string
}

// NewRawDocument validates and builds a RawDocument. The content floor and
// title requirements are enforced here so later stages never re-check them.
func NewRawDocument(title, content, sourcePath string, meta DocumentMetadata) (*RawDocument, error) {
	content = strings.TrimSpace(content)
	title = strings.TrimSpace(title)

	if len(content) < MinContentLength {
		return nil, fmt.Errorf("document content too small: %d characters (minimum %d)", len(content), MinContentLength)
	}
	if title == "" {
		return nil, fmt.Errorf("document title must be non-empty")
	}

	meta.WordCount = len(strings.Fields(content))
	if meta.ContentPreview == "" {
		meta.ContentPreview = Preview(content, 250)
	}

	return &RawDocument{
		Title:      title,
		Content:    content,
		Metadata:   meta,
		SourcePath: sourcePath,
	}, nil
}

// ContentSize returns the preserved content length in characters.
func (d *RawDocument) ContentSize() int {
	return len(d.Content)
}

// Preview truncates text to at most max characters, appending an ellipsis
// when anything was cut.
func Preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// EnrichmentResult is the AI-generated layer produced for one document. The
// cardinality invariants hold for degraded (fallback) results too, so
// consumers never special-case failure.
type EnrichmentResult struct {
	Summary      string   `json:"summary"`
	KeyPoints    []string `json:"key_points"`
	Questions    []string `json:"questions"`
	Answers      []string `json:"answers"`
	Topics       []string `json:"topics"`
	QualityScore float64  `json:"quality_score"`

	Model           string        `json:"model,omitempty"`
	DegradedFields  int           `json:"degraded_fields"`
	ProcessingTime  time.Duration `json:"-"`
	ContentConsumed int           `json:"content_length_processed"`
}

// Validate checks the structural invariants every EnrichmentResult must hold.
func (r *EnrichmentResult) Validate() error {
	if len(strings.TrimSpace(r.Summary)) < 50 {
		return fmt.Errorf("summary too short: %d characters", len(r.Summary))
	}
	if len(r.KeyPoints) < 3 {
		return fmt.Errorf("expected at least 3 key points, got %d", len(r.KeyPoints))
	}
	if len(r.Questions) != len(r.Answers) {
		return fmt.Errorf("question/answer mismatch: %d questions, %d answers", len(r.Questions), len(r.Answers))
	}
	if len(r.Questions) < 3 {
		return fmt.Errorf("expected at least 3 Q&A pairs, got %d", len(r.Questions))
	}
	for i, q := range r.Questions {
		if !strings.HasSuffix(strings.TrimSpace(q), "?") {
			return fmt.Errorf("question %d does not end with '?': %q", i, q)
		}
	}
	for i, a := range r.Answers {
		if len(strings.TrimSpace(a)) < 20 {
			return fmt.Errorf("answer %d too short: %q", i, a)
		}
	}
	if r.QualityScore < 0 || r.QualityScore > 1 {
		return fmt.Errorf("quality score out of range: %f", r.QualityScore)
	}
	return nil
}

// FormattedQA renders the Q&A pairs as markdown for storage and display.
func (r *EnrichmentResult) FormattedQA() string {
	var b strings.Builder
	for i := range r.Questions {
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n", r.Questions[i], r.Answers[i])
	}
	return strings.TrimSpace(b.String())
}

// FormattedKeyPoints renders the key points as a markdown bullet list.
func (r *EnrichmentResult) FormattedKeyPoints() string {
	var b strings.Builder
	b.WriteString("## Key Highlights\n\n")
	for _, p := range r.KeyPoints {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return strings.TrimSpace(b.String())
}
