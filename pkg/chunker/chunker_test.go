package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/pkg/chunker"
)

func TestChunkTextEmptyInput(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	assert.Empty(t, c.ChunkText("", nil))
	assert.Empty(t, c.ChunkText("   \n\t  ", nil))
}

func TestChunkByParagraphs(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          80,
		ChunkOverlap:       10,
		MinChunkSize:       10,
		MaxChunkSize:       200,
		PreserveParagraphs: true,
		PreserveSentences:  true,
	})

	first := strings.Repeat("alpha ", 10)  // ~60 chars
	second := strings.Repeat("bravo ", 10) // ~60 chars
	text := first + "\n\n" + second

	chunks := c.ChunkText(text, nil)
	require.Len(t, chunks, 2)

	// Paragraphs too large to share a chunk land in separate chunks whole.
	assert.Equal(t, strings.TrimSpace(first), chunks[0].Content)
	assert.Equal(t, strings.TrimSpace(second), chunks[1].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestChunkByParagraphsAccumulates(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          500,
		ChunkOverlap:       50,
		MinChunkSize:       10,
		MaxChunkSize:       1000,
		PreserveParagraphs: true,
	})

	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := c.ChunkText(text, nil)

	// Everything fits in one chunk, with paragraph separators intact.
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
}

func TestChunkBySentencesFallThrough(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          60,
		ChunkOverlap:       10,
		MinChunkSize:       10,
		MaxChunkSize:       200,
		PreserveParagraphs: false,
		PreserveSentences:  true,
	})

	text := "The first sentence is quite long indeed. The second sentence is also rather long. A third one follows."
	chunks := c.ChunkText(text, nil)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 200)
		assert.GreaterOrEqual(t, len(chunk.Content), 10)
	}
	assert.Contains(t, chunks[0].Content, "The first sentence")
}

func TestChunkByCharactersOverlap(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          10,
		ChunkOverlap:       4,
		MinChunkSize:       2,
		MaxChunkSize:       20,
		PreserveParagraphs: false,
		PreserveSentences:  false,
	})

	// No spaces and no sentence punctuation, so only character windows apply.
	text := "abcdefghijklmnopqrstuvwx"
	chunks := c.ChunkText(text, nil)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefghij", chunks[0].Content)

	// Consecutive windows overlap by ChunkOverlap characters.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		cur := chunks[i]
		assert.Equal(t, prev.StartChar+6, cur.StartChar, "window advance is size minus overlap")
		assert.Greater(t, prev.EndChar, cur.StartChar, "windows overlap")
	}

	// The full input is reconstructable from the windows.
	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), last.EndChar)
}

func TestChunkByCharactersFullOverlapAdvances(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          10,
		ChunkOverlap:       10,
		MinChunkSize:       2,
		MaxChunkSize:       20,
		PreserveParagraphs: false,
		PreserveSentences:  false,
	})

	// An overlap equal to the window size must not stall the scan; it
	// degrades to back-to-back windows.
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := c.ChunkText(text, nil)

	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdefghij", chunks[0].Content)
	assert.Equal(t, "klmnopqrst", chunks[1].Content)
	assert.Equal(t, "uvwxyz", chunks[2].Content)

	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndChar, chunks[i].StartChar)
	}
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndChar)
}

func TestChunkByCharactersWordBoundary(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          20,
		ChunkOverlap:       5,
		MinChunkSize:       3,
		MaxChunkSize:       40,
		PreserveParagraphs: false,
		PreserveSentences:  false,
	})

	text := "wordone wordtwo wordthree wordfour wordfive"
	chunks := c.ChunkText(text, nil)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.False(t, strings.HasSuffix(chunk.Content, "wordt"),
			"windows should back off to a word boundary: %q", chunk.Content)
	}
}

func TestFilterDropsSmallChunks(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          100,
		ChunkOverlap:       10,
		MinChunkSize:       50,
		MaxChunkSize:       200,
		PreserveParagraphs: true,
	})

	chunks := c.ChunkText("Tiny.", nil)
	assert.Empty(t, chunks, "content below the minimum size is discarded")
}

func TestOversizedChunksAreResplit(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          100,
		ChunkOverlap:       10,
		MinChunkSize:       5,
		MaxChunkSize:       50,
		PreserveParagraphs: true,
	})

	// A single paragraph well past MaxChunkSize.
	text := strings.Repeat("lengthy ", 30)
	chunks := c.ChunkText(text, nil)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 50)
	}
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunkMetadataMerged(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    100,
		ChunkOverlap: 10,
		MinChunkSize: 5,
		MaxChunkSize: 200,
	})

	chunks := c.ChunkText("Some content that is long enough to survive filtering.", map[string]interface{}{
		"source": "test.txt",
	})

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.Equal(t, "test.txt", chunk.Metadata["source"])
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "windows line endings",
			input:    "one\r\ntwo\rthree",
			expected: "one\ntwo\nthree",
		},
		{
			name:     "control characters stripped",
			input:    "he\x00llo\x1f world",
			expected: "hello world",
		},
		{
			name:     "space runs collapsed",
			input:    "too   many \t spaces",
			expected: "too many spaces",
		},
		{
			name:     "blank line runs squeezed",
			input:    "para one\n\n\n\n\npara two",
			expected: "para one\n\npara two",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  padded  ",
			expected: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chunker.CleanText(tt.input))
		})
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	// Defaults produce bounded chunks from a realistic document.
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	chunks := c.ChunkText(text, nil)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.GreaterOrEqual(t, len(chunk.Content), 100)
		assert.LessOrEqual(t, len(chunk.Content), 2000)
	}
}
