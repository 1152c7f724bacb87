package text

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docrag/internal/docstore"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Chunker splits page text into fixed-size chunks with a configured overlap
// between consecutive chunks. Offsets are counted in runes, matching the way
// extracted text is indexed elsewhere.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker validates the configuration up front. overlap >= chunkSize would
// keep the cursor from ever advancing, so it is rejected here instead of
// looping forever at chunk time.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkText splits text into chunks of at most chunkSize runes, stepping the
// cursor by chunkSize-overlap. The final chunk may be shorter. Chunk indexes
// start at 0 and are local to the given page. Empty or whitespace-only text
// yields no chunks.
func (c *Chunker) ChunkText(text, documentID string, pageNumber int) []docstore.Chunk {
	var chunks []docstore.Chunk

	if strings.TrimSpace(text) == "" {
		return chunks
	}

	runes := []rune(text)
	startIndex := 0
	chunkIndex := 0

	for startIndex < len(runes) {
		length := c.chunkSize
		if remaining := len(runes) - startIndex; remaining < length {
			length = remaining
		}

		chunks = append(chunks, docstore.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Text:       string(runes[startIndex : startIndex+length]),
			ChunkIndex: chunkIndex,
			PageNumber: pageNumber,
			Metadata: map[string]any{
				"start_index": startIndex,
				"end_index":   startIndex + length,
			},
		})

		chunkIndex++
		startIndex += c.chunkSize - c.overlap
	}

	return chunks
}

// ChunkSize returns the configured maximum chunk length in runes.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap between consecutive chunks in runes.
func (c *Chunker) Overlap() int { return c.overlap }
