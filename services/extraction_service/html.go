package extraction_service

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/serisow/lecahier/pipeline_type"
)

// extractHTML pulls the visible text out of an HTML document and collects
// its tables and images as structured references. Table and figure capture
// keeps the raw text lossless: the table text also stays in the content.
func (e *DocumentExtractor) extractHTML(data []byte) (string, []pipeline_type.TableRef, []pipeline_type.FigureRef, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, nil, "", fmt.Errorf("failed to parse HTML: %v", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript").Remove()

	var tables []pipeline_type.TableRef
	doc.Find("table").Each(func(i int, sel *goquery.Selection) {
		table := pipeline_type.TableRef{
			Index:   i,
			Caption: strings.TrimSpace(sel.Find("caption").First().Text()),
		}
		sel.Find("th").Each(func(_ int, th *goquery.Selection) {
			if h := strings.TrimSpace(th.Text()); h != "" {
				table.Headers = append(table.Headers, h)
			}
		})
		sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				row = append(row, strings.TrimSpace(td.Text()))
			})
			if len(row) > 0 {
				table.Rows = append(table.Rows, row)
			}
		})
		tables = append(tables, table)
	})

	var figures []pipeline_type.FigureRef
	doc.Find("img").Each(func(i int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		figures = append(figures, pipeline_type.FigureRef{
			Index:   i,
			Source:  src,
			Caption: alt,
		})
	})

	body := doc.Find("body")
	var text string
	if body.Length() > 0 {
		text = body.Text()
	} else {
		text = doc.Text()
	}

	// Collapse the whitespace goquery leaves behind between block elements.
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	text = strings.Join(cleaned, "\n")

	if len(text) == 0 {
		return "", nil, nil, title, fmt.Errorf("no text content extracted from HTML")
	}

	e.logger.Debug("Extracted HTML document",
		slog.Int("text_length", len(text)),
		slog.Int("tables", len(tables)),
		slog.Int("figures", len(figures)))

	return text, tables, figures, title, nil
}
