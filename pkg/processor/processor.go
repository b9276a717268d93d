package processor

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
)

// ErrUnsupportedFormat is returned when no extractor handles the mime type.
// It is fatal to that document's ingestion and is not retried.
var ErrUnsupportedFormat = errors.New("unsupported file type")

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeMarkdown = "text/markdown"
	MimePlain    = "text/plain"
)

type extractor func(filePath string) (string, models.DocumentMetadata, error)

// Processor extracts plain text and metadata from source documents and
// hands the text to the chunker.
type Processor struct {
	chunker    types.Chunker
	extractors map[string]extractor
}

func New(chunker types.Chunker) *Processor {
	p := &Processor{chunker: chunker}
	p.extractors = map[string]extractor{
		MimePDF:      extractPDF,
		MimeDOCX:     extractDOCX,
		MimeMarkdown: extractMarkdown,
		MimePlain:    extractPlainText,
	}
	return p
}

// ProcessDocument extracts text from the file, composes metadata, and
// chunks the result. Caller metadata is layered into the document's custom
// metadata and flows into every chunk.
func (p *Processor) ProcessDocument(filePath, mimeType string, metadata map[string]interface{}) (string, models.DocumentMetadata, []models.TextChunk, error) {
	log.Printf("processing document: %s (%s)", filePath, mimeType)

	extract, ok := p.extractors[mimeType]
	if !ok {
		return "", models.DocumentMetadata{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	text, docMeta, err := extract(filePath)
	if err != nil {
		return "", models.DocumentMetadata{}, nil, fmt.Errorf("failed to extract %s: %w", filePath, err)
	}

	if docMeta.Custom == nil {
		docMeta.Custom = make(map[string]interface{})
	}
	for k, v := range metadata {
		docMeta.Custom[k] = v
	}

	chunkMeta := map[string]interface{}{
		"file_path": filePath,
		"mime_type": mimeType,
	}
	for k, v := range docMeta.Custom {
		chunkMeta[k] = v
	}

	chunks := p.chunker.ChunkText(text, chunkMeta)

	log.Printf("extracted %d characters, created %d chunks", len(text), len(chunks))
	return text, docMeta, chunks, nil
}

// SupportedMimeTypes lists the mime types with a registered extractor.
func (p *Processor) SupportedMimeTypes() []string {
	mimes := make([]string, 0, len(p.extractors))
	for m := range p.extractors {
		mimes = append(mimes, m)
	}
	return mimes
}

func (p *Processor) IsSupported(mimeType string) bool {
	_, ok := p.extractors[mimeType]
	return ok
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
