package text_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/text"
)

func TestNewChunker_Validation(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c, err := text.NewChunker(500, 50)
		require.NoError(t, err)
		assert.Equal(t, 500, c.ChunkSize())
		assert.Equal(t, 50, c.Overlap())
	})

	t.Run("OverlapEqualToSize", func(t *testing.T) {
		_, err := text.NewChunker(100, 100)
		assert.Error(t, err)
	})

	t.Run("OverlapLargerThanSize", func(t *testing.T) {
		_, err := text.NewChunker(100, 150)
		assert.Error(t, err)
	})

	t.Run("NegativeOverlap", func(t *testing.T) {
		_, err := text.NewChunker(100, -1)
		assert.Error(t, err)
	})

	t.Run("ZeroChunkSize", func(t *testing.T) {
		_, err := text.NewChunker(0, 0)
		assert.Error(t, err)
	})
}

func TestChunkText_EmptyInput(t *testing.T) {
	c, err := text.NewChunker(500, 50)
	require.NoError(t, err)

	assert.Empty(t, c.ChunkText("", "doc-1", 1))
	assert.Empty(t, c.ChunkText("   \n\t  ", "doc-1", 1))
}

func TestChunkText_SingleShortChunk(t *testing.T) {
	c, err := text.NewChunker(500, 50)
	require.NoError(t, err)

	chunks := c.ChunkText("hello world", "doc-1", 3)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 3, chunks[0].PageNumber)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, 0, chunks[0].Metadata["start_index"])
	assert.Equal(t, 11, chunks[0].Metadata["end_index"])
	assert.NotEmpty(t, chunks[0].ID)
}

func TestChunkText_OverlappingWindows(t *testing.T) {
	// 1200 chars, size 500, overlap 50: windows start at 0, 450, 900.
	c, err := text.NewChunker(500, 50)
	require.NoError(t, err)

	input := strings.Repeat("a", 1200)
	chunks := c.ChunkText(input, "doc-1", 1)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].Metadata["start_index"])
	assert.Equal(t, 450, chunks[1].Metadata["start_index"])
	assert.Equal(t, 900, chunks[2].Metadata["start_index"])

	assert.Len(t, chunks[0].Text, 500)
	assert.Len(t, chunks[1].Text, 500)
	assert.Len(t, chunks[2].Text, 300)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
	}
}

func TestChunkText_Reconstruction(t *testing.T) {
	// Dropping the overlapping prefix of every chunk after the first must
	// reconstruct the original text exactly.
	c, err := text.NewChunker(40, 10)
	require.NoError(t, err)

	input := "The quick brown fox jumps over the lazy dog. " +
		"Pack my box with five dozen liquor jugs. " +
		"Sphinx of black quartz, judge my vow."
	chunks := c.ChunkText(input, "doc-1", 1)
	require.NotEmpty(t, chunks)

	var sb strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch.Text)
		if i == 0 {
			sb.WriteString(ch.Text)
			continue
		}
		if len(runes) > 10 {
			sb.WriteString(string(runes[10:]))
		}
	}
	assert.Equal(t, input, sb.String())
}

func TestChunkText_NoEmbeddingAttached(t *testing.T) {
	c, err := text.NewChunker(100, 20)
	require.NoError(t, err)

	chunks := c.ChunkText(strings.Repeat("x", 250), "doc-1", 1)
	require.Len(t, chunks, 4)
	for _, ch := range chunks {
		assert.Nil(t, ch.Embedding)
	}
}

func TestChunkText_UnicodeOffsets(t *testing.T) {
	// Offsets are rune-based, so multibyte characters count as one position.
	c, err := text.NewChunker(4, 1)
	require.NoError(t, err)

	chunks := c.ChunkText("日本語のテキスト", "doc-1", 1)
	require.Len(t, chunks, 3)
	assert.Equal(t, "日本語の", chunks[0].Text)
	assert.Equal(t, 3, chunks[1].Metadata["start_index"])
	assert.Equal(t, "のテキス", chunks[1].Text)
}
