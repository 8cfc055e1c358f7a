package extraction_service

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"

	"github.com/serisow/lecahier/pipeline_type"
)

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".html": "text/html",
	".htm":  "text/html",
	".md":   "text/markdown",
	".txt":  "text/plain",
}

// DocumentExtractor converts a source file into a RawDocument: full text,
// tables and figures where the format exposes them, plus extraction metadata.
type DocumentExtractor struct {
	logger *slog.Logger
}

func NewDocumentExtractor(logger *slog.Logger) *DocumentExtractor {
	return &DocumentExtractor{
		logger: logger,
	}
}

// Extract reads and converts the file at path. The title falls back to the
// file name when the caller passes none and the document itself names none.
// Failures here are terminal for the pipeline run: a corrupted or
// unsupported file produces one error and no retry.
func (e *DocumentExtractor) Extract(path, title string) (*pipeline_type.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pipeline_type.ExtractionError{Path: path, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	meta := pipeline_type.DocumentMetadata{
		ContentType: getMimeType(ext),
	}

	extractStart := time.Now()

	var text string
	var tables []pipeline_type.TableRef
	var figures []pipeline_type.FigureRef
	var htmlTitle string

	switch ext {
	case ".pdf":
		var pageCount int
		text, pageCount, err = e.extractPDF(data)
		meta.PageCount = pageCount
	case ".doc", ".docx":
		text, err = e.extractWord(data, meta.ContentType)
	case ".html", ".htm":
		text, tables, figures, htmlTitle, err = e.extractHTML(data)
	case ".txt", ".md":
		text = string(data)
	default:
		err = fmt.Errorf("unsupported file type: %s", ext)
	}

	if err != nil {
		e.logger.Error("Text extraction failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, &pipeline_type.ExtractionError{Path: path, Err: err}
	}

	meta.ExtractionTime = time.Since(extractStart).Seconds()

	if title == "" {
		title = htmlTitle
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), ext)
	}

	doc, err := pipeline_type.NewRawDocument(title, text, path, meta)
	if err != nil {
		return nil, &pipeline_type.ExtractionError{Path: path, Err: err}
	}
	doc.Tables = tables
	doc.Figures = figures

	e.logger.Info("Document extracted",
		slog.String("path", path),
		slog.Int("content_length", doc.ContentSize()),
		slog.Int("tables", len(doc.Tables)),
		slog.Int("figures", len(doc.Figures)))

	return doc, nil
}

func (e *DocumentExtractor) extractPDF(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Error("Failed to create PDF reader",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", 0, fmt.Errorf("failed to create PDF reader: %v", err)
	}

	totalPage := reader.NumPage()
	e.logger.Debug("Starting PDF text extraction",
		slog.Int("total_pages", totalPage))

	var fullText strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered",
				slog.Int("page_number", pageIndex))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Error("Failed to extract text from page",
				slog.Int("page_number", pageIndex),
				slog.String("error", err.Error()))
			return "", 0, fmt.Errorf("failed to extract text from page %d: %v", pageIndex, err)
		}

		fullText.WriteString(text)
	}

	if fullText.Len() == 0 {
		return "", 0, fmt.Errorf("no text content extracted from PDF")
	}

	return fullText.String(), totalPage, nil
}

func (e *DocumentExtractor) extractWord(data []byte, mimeType string) (string, error) {
	e.logger.Debug("Starting Word document text extraction",
		slog.Int("data_size", len(data)))

	result, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("failed to convert Word document: %v", err)
	}

	if len(result.Body) == 0 {
		return "", fmt.Errorf("no text content extracted from Word document")
	}

	return result.Body, nil
}

func getMimeType(ext string) string {
	if mime, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
