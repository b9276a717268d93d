package processor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/docuchat/docuchat/internal/models"
)

// documentXML mirrors the parts of word/document.xml we read: body
// paragraphs plus table cell paragraphs.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
		Tables     []docxTable     `xml:"tbl"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text []struct {
			Content string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"r"`
}

type docxTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []docxParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// coreProperties mirrors docProps/core.xml.
type coreProperties struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

// extractDOCX pulls paragraph and table text out of the OOXML package and
// document properties out of core.xml.
func extractDOCX(filePath string) (string, models.DocumentMetadata, error) {
	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to open docx: %w", err)
	}
	defer reader.Close()

	meta := models.DocumentMetadata{
		MimeType: MimeDOCX,
		Custom:   make(map[string]interface{}),
	}

	if props, err := readCoreProperties(&reader.Reader); err == nil {
		meta.Title = props.Title
		meta.Author = props.Creator
		meta.CreatedDate = props.Created
		meta.ModifiedDate = props.Modified
	}

	content, err := readZipFile(&reader.Reader, "word/document.xml")
	if err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to read document body: %w", err)
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to parse document body: %w", err)
	}

	var sb strings.Builder
	for _, p := range doc.Body.Paragraphs {
		writeParagraph(&sb, p)
	}
	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			for _, cell := range row.Cells {
				for _, p := range cell.Paragraphs {
					writeParagraph(&sb, p)
				}
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	meta.WordCount = wordCount(text)
	return text, meta, nil
}

func writeParagraph(sb *strings.Builder, p docxParagraph) {
	var line strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Text {
			line.WriteString(t.Content)
		}
	}
	if strings.TrimSpace(line.String()) != "" {
		sb.WriteString(line.String())
		sb.WriteString("\n")
	}
}

func readCoreProperties(reader *zip.Reader) (coreProperties, error) {
	var props coreProperties
	content, err := readZipFile(reader, "docProps/core.xml")
	if err != nil {
		return props, err
	}
	err = xml.Unmarshal(content, &props)
	return props, err
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
