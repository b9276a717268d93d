package processor

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"

	"github.com/docuchat/docuchat/internal/models"
)

// extractMarkdown renders the markdown to HTML, then extracts the plain
// text. The first heading, if any, becomes the document title.
func extractMarkdown(filePath string) (string, models.DocumentMetadata, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to read markdown: %w", err)
	}

	var html bytes.Buffer
	if err := goldmark.Convert(source, &html); err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&html)
	if err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to parse rendered markdown: %w", err)
	}

	meta := models.DocumentMetadata{
		MimeType: MimeMarkdown,
		Custom:   make(map[string]interface{}),
	}

	if heading := doc.Find("h1, h2, h3, h4, h5, h6").First(); heading.Length() > 0 {
		meta.Title = strings.TrimSpace(heading.Text())
	}

	text := strings.TrimSpace(doc.Text())

	meta.WordCount = wordCount(text)
	return text, meta, nil
}
