package processor

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/docuchat/docuchat/internal/models"
)

// fallbackEncodings are tried in order when the file is not valid UTF-8 and
// carries no UTF-16 byte order mark.
var fallbackEncodings = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
}

// extractPlainText reads the file as UTF-8, falling back through a fixed
// list of encodings until one decodes cleanly.
func extractPlainText(filePath string) (string, models.DocumentMetadata, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return "", models.DocumentMetadata{}, fmt.Errorf("failed to read text file: %w", err)
	}

	text, err := decodeText(raw)
	if err != nil {
		return "", models.DocumentMetadata{}, err
	}

	meta := models.DocumentMetadata{
		MimeType: MimePlain,
		Custom:   make(map[string]interface{}),
	}
	meta.WordCount = wordCount(text)
	return strings.TrimSpace(text), meta, nil
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	// The UTF-16 decoder accepts nearly any byte stream, so it is only
	// trusted when the file actually starts with a byte order mark.
	if hasUTF16BOM(raw) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
	}

	for _, enc := range fallbackEncodings {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
	}

	return "", fmt.Errorf("could not decode text file with any supported encoding")
}

func hasUTF16BOM(raw []byte) bool {
	if len(raw) < 2 {
		return false
	}
	return (raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF)
}
