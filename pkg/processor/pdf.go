package processor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docuchat/docuchat/internal/models"
)

// extractPDF extracts text page by page and document info from the PDF
// trailer. Pages that yield no text are skipped rather than failing the
// document.
func extractPDF(filePath string) (string, models.DocumentMetadata, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	meta := models.DocumentMetadata{
		MimeType: MimePDF,
		Custom:   make(map[string]interface{}),
	}

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		meta.Title = info.Key("Title").Text()
		meta.Author = info.Key("Author").Text()
		meta.CreatedDate = info.Key("CreationDate").Text()
		meta.ModifiedDate = info.Key("ModDate").Text()
	}
	meta.Pages = reader.NumPage()

	var sb strings.Builder
	for num := 1; num <= reader.NumPage(); num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil || pageText == "" {
			continue
		}

		sb.WriteString(pageText)
		sb.WriteString("\n")
		meta.Custom[fmt.Sprintf("page_%d_text_length", num)] = len(pageText)
	}

	text := strings.TrimSpace(sb.String())
	meta.WordCount = wordCount(text)
	return text, meta, nil
}
