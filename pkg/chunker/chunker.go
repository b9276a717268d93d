package chunker

import (
	"regexp"
	"strings"

	"github.com/docuchat/docuchat/internal/models"
)

type ChunkerConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	MinChunkSize       int
	MaxChunkSize       int
	PreserveParagraphs bool
	PreserveSentences  bool
}

// Chunker splits raw extracted text into bounded, overlap-aware chunks.
// Strategies are tried in priority order: paragraphs, sentences, then
// fixed character windows; the first strategy producing output wins.
type Chunker struct {
	config     ChunkerConfig
	strategies []strategy
}

type strategy func(text string) []models.TextChunk

var (
	lineEndings  = regexp.MustCompile(`\r\n|\r`)
	controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	spaceRuns    = regexp.MustCompile(`[ \t]+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
	sentenceEnds = regexp.MustCompile(`[.!?]+\s+`)
)

func NewWithConfig(config ChunkerConfig) *Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.MinChunkSize == 0 {
		config.MinChunkSize = 100
	}
	if config.MaxChunkSize == 0 {
		config.MaxChunkSize = 2000
	}

	c := &Chunker{config: config}
	if config.PreserveParagraphs {
		c.strategies = append(c.strategies, c.chunkByParagraphs)
	}
	if config.PreserveSentences {
		c.strategies = append(c.strategies, c.chunkBySentences)
	}
	c.strategies = append(c.strategies, c.chunkByCharacters)
	return c
}

// ChunkText splits text into chunks and merges the caller's metadata into
// every chunk. Empty or whitespace-only input yields no chunks.
func (c *Chunker) ChunkText(text string, metadata map[string]interface{}) []models.TextChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := CleanText(text)

	var chunks []models.TextChunk
	for _, strat := range c.strategies {
		chunks = strat(cleaned)
		if len(chunks) > 0 {
			break
		}
	}

	chunks = c.filterBySize(chunks)

	for i := range chunks {
		chunks[i].Index = i
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]interface{})
		}
		for k, v := range metadata {
			chunks[i].Metadata[k] = v
		}
	}

	return chunks
}

// CleanText normalizes line endings to \n, strips control characters,
// collapses runs of spaces and tabs, and squeezes blank-line runs so
// paragraph boundaries survive as exactly one blank line.
func CleanText(text string) string {
	text = lineEndings.ReplaceAllString(text, "\n")
	text = controlChars.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// chunkByParagraphs greedily accumulates paragraphs into a buffer until the
// next paragraph would exceed the chunk size, then flushes.
func (c *Chunker) chunkByParagraphs(text string) []models.TextChunk {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []models.TextChunk
	var current string
	start := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current != "" && len(current)+len(paragraph)+2 > c.config.ChunkSize {
			chunks = append(chunks, models.TextChunk{
				Content:   strings.TrimSpace(current),
				StartChar: start,
				EndChar:   start + len(current),
			})
			start += len(current) + 2
			current = paragraph
		} else if current != "" {
			current += "\n\n" + paragraph
		} else {
			current = paragraph
		}
	}

	if current != "" {
		chunks = append(chunks, models.TextChunk{
			Content:   strings.TrimSpace(current),
			StartChar: start,
			EndChar:   start + len(current),
		})
	}

	return chunks
}

// chunkBySentences is the same greedy accumulation over sentence
// boundaries (terminal punctuation followed by whitespace).
func (c *Chunker) chunkBySentences(text string) []models.TextChunk {
	sentences := sentenceEnds.Split(text, -1)

	var chunks []models.TextChunk
	var current string
	start := 0

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current != "" && len(current)+len(sentence)+2 > c.config.ChunkSize {
			chunks = append(chunks, models.TextChunk{
				Content:   strings.TrimSpace(current),
				StartChar: start,
				EndChar:   start + len(current),
			})
			start += len(current) + 2
			current = sentence
		} else if current != "" {
			current += ". " + sentence
		} else {
			current = sentence
		}
	}

	if current != "" {
		chunks = append(chunks, models.TextChunk{
			Content:   strings.TrimSpace(current),
			StartChar: start,
			EndChar:   start + len(current),
		})
	}

	return chunks
}

// chunkByCharacters cuts fixed-width windows, advancing by
// ChunkSize-ChunkOverlap. A window ending mid-word backs off to the last
// space inside it, unless that would leave fewer than MinChunkSize
// characters in the current chunk. An overlap at or above the window size
// degrades to back-to-back windows instead of stalling.
func (c *Chunker) chunkByCharacters(text string) []models.TextChunk {
	var chunks []models.TextChunk
	start := 0

	for start < len(text) {
		end := start + c.config.ChunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			if lastSpace := strings.LastIndex(text[start:end], " "); lastSpace > c.config.MinChunkSize {
				end = start + lastSpace
			}
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, models.TextChunk{
				Content:   content,
				StartChar: start,
				EndChar:   end,
			})
		}

		next := start + c.config.ChunkSize - c.config.ChunkOverlap
		if next > end || next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// filterBySize drops chunks under MinChunkSize and re-splits chunks over
// MaxChunkSize. Small trailing fragments are silently discarded, so the
// tail of a document may not be indexed.
func (c *Chunker) filterBySize(chunks []models.TextChunk) []models.TextChunk {
	var filtered []models.TextChunk

	for _, chunk := range chunks {
		switch {
		case len(chunk.Content) < c.config.MinChunkSize:
			continue
		case len(chunk.Content) > c.config.MaxChunkSize:
			filtered = append(filtered, c.splitOversized(chunk)...)
		default:
			filtered = append(filtered, chunk)
		}
	}

	return filtered
}

// splitOversized re-splits one oversized chunk with the word-boundary-aware
// window algorithm, preserving offsets relative to the source text.
func (c *Chunker) splitOversized(chunk models.TextChunk) []models.TextChunk {
	content := chunk.Content
	var chunks []models.TextChunk
	start := 0

	for start < len(content) {
		end := start + c.config.MaxChunkSize
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) {
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > c.config.MinChunkSize {
				end = start + lastSpace
			}
		}

		sub := strings.TrimSpace(content[start:end])
		if sub != "" {
			chunks = append(chunks, models.TextChunk{
				Content:   sub,
				StartChar: chunk.StartChar + start,
				EndChar:   chunk.StartChar + end,
			})
		}

		start = end
	}

	return chunks
}
