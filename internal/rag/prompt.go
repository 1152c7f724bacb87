package rag

import (
	"fmt"
	"strings"

	"docrag/internal/docstore"
)

const systemPrompt = `You are a helpful assistant that answers questions using only the provided context.
If the context does not contain enough information to answer, say that you don't know.
Cite the sources you used with their markers, e.g. [Source 1].`

// buildUserPrompt renders each hit as a numbered source block and appends the
// question. Source numbering starts at 1 and matches Response.Sources.
func buildUserPrompt(question string, results []docstore.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Source %d] (Page %d, Score: %.2f)\n%s",
			i+1, r.Chunk.PageNumber, r.Score, r.Chunk.Text)
	}

	var b strings.Builder
	b.WriteString("Context:\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
