package weaviate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docrag/internal/docstore"
	"docrag/internal/vector"
)

// pageSize bounds each GraphQL read when walking all chunks of a class.
const pageSize = 100

// Store implements docstore.Store on a Weaviate class, one object per chunk.
// Documents are reconstructed by grouping objects on the documentId property.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// SaveChunks writes every chunk of doc in one batch call. Any per-object
// error fails the whole call; objects written before the failure are not
// rolled back.
func (s *Store) SaveChunks(ctx context.Context, doc *docstore.Document) error {
	if len(doc.Chunks) == 0 {
		return fmt.Errorf("document %s has no chunks to save", doc.ID)
	}

	objects := make([]*models.Object, 0, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		obj := &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(chunk.ID),
			Properties: map[string]interface{}{
				"content":     chunk.Text,
				"documentId":  chunk.DocumentID,
				"fileName":    doc.FileName,
				"contentType": doc.ContentType,
				"fileSize":    doc.FileSize,
				"uploadedAt":  doc.UploadedAt.Format(time.RFC3339),
				"chunkIndex":  chunk.ChunkIndex,
				"pageNumber":  chunk.PageNumber,
				"startIndex":  metadataInt(chunk.Metadata, "start_index"),
				"endIndex":    metadataInt(chunk.Metadata, "end_index"),
			},
		}
		if len(chunk.Embedding) > 0 {
			obj.Vector = models.C11yVector(chunk.Embedding)
		}
		objects = append(objects, obj)
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("failed to index chunk %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteDocument removes every chunk of the document. Deleting an absent
// document succeeds trivially.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID)).
		Do(ctx)
	return err
}

// GetDocument reconstructs a document from its stored chunks, ordered by page
// and chunk index. Returns (nil, nil) when no chunks match.
func (s *Store) GetDocument(ctx context.Context, documentID string) (*docstore.Document, error) {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueString(documentID)

	chunks, meta, err := s.fetchChunks(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	sortChunks(chunks)
	doc := meta[documentID]
	doc.ID = documentID
	doc.Status = docstore.StatusCompleted
	doc.Chunks = chunks
	return &doc, nil
}

// GetAllDocuments groups every stored chunk by document id. Ordering across
// documents is unspecified; chunks within a document are ordered by page and
// chunk index.
func (s *Store) GetAllDocuments(ctx context.Context) ([]docstore.Document, error) {
	chunks, meta, err := s.fetchChunks(ctx, nil)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]docstore.Chunk)
	for _, c := range chunks {
		grouped[c.DocumentID] = append(grouped[c.DocumentID], c)
	}

	docs := make([]docstore.Document, 0, len(grouped))
	for id, docChunks := range grouped {
		sortChunks(docChunks)
		doc := meta[id]
		doc.ID = id
		doc.Status = docstore.StatusCompleted
		doc.Chunks = docChunks
		docs = append(docs, doc)
	}
	return docs, nil
}

// Search runs a nearVector query with a certainty floor. Weaviate returns
// hits ordered by descending similarity; the certainty is surfaced as the
// result score. An empty hit list is a valid outcome, not an error.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int, minScore float32) ([]docstore.SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(queryVector).
		// minScore is a Weaviate certainty, (1+cosine)/2, not a raw cosine
		// similarity: certainty 0.7 admits hits down to cosine 0.4.
		WithCertainty(minScore)

	fields := append(chunkFields(),
		graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}})

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []docstore.SearchResult
	for _, props := range classObjects(res.Data) {
		chunk := parseChunk(props)
		score := float32(0)
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				chunk.ID = id
			}
			if certainty, ok := additional["certainty"].(float64); ok {
				score = float32(certainty)
			}
		}
		results = append(results, docstore.SearchResult{Chunk: chunk, Score: score})
	}
	return results, nil
}

// CountChunks returns the total number of stored chunks via an aggregate
// meta count.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := data[vector.ClassName].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

// fetchChunks pages through the class with limit/offset, optionally filtered,
// and also collects per-document provenance metadata from the chunk
// properties.
func (s *Store) fetchChunks(ctx context.Context, where *filters.WhereBuilder) ([]docstore.Chunk, map[string]docstore.Document, error) {
	fields := append(chunkFields(),
		graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}})

	var chunks []docstore.Chunk
	meta := make(map[string]docstore.Document)

	for offset := 0; ; offset += pageSize {
		query := s.client.GraphQL().Get().
			WithClassName(vector.ClassName).
			WithLimit(pageSize).
			WithOffset(offset).
			WithFields(fields...)
		if where != nil {
			query = query.WithWhere(where)
		}

		res, err := query.Do(ctx)
		if err != nil {
			return nil, nil, err
		}
		if len(res.Errors) > 0 {
			return nil, nil, fmt.Errorf("graphql error: %v", res.Errors)
		}

		objects := classObjects(res.Data)
		for _, props := range objects {
			chunk := parseChunk(props)
			if additional, ok := props["_additional"].(map[string]interface{}); ok {
				if id, ok := additional["id"].(string); ok {
					chunk.ID = id
				}
			}
			chunks = append(chunks, chunk)

			if _, seen := meta[chunk.DocumentID]; !seen {
				meta[chunk.DocumentID] = parseDocumentMeta(props)
			}
		}

		if len(objects) < pageSize {
			break
		}
	}
	return chunks, meta, nil
}

func chunkFields() []graphql.Field {
	return []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "fileName"},
		{Name: "contentType"},
		{Name: "fileSize"},
		{Name: "uploadedAt"},
		{Name: "chunkIndex"},
		{Name: "pageNumber"},
		{Name: "startIndex"},
		{Name: "endIndex"},
	}
}

func classObjects(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return nil
	}
	objects := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if props, ok := item.(map[string]interface{}); ok {
			objects = append(objects, props)
		}
	}
	return objects
}

func parseChunk(props map[string]interface{}) docstore.Chunk {
	chunk := docstore.Chunk{Metadata: make(map[string]any)}
	if content, ok := props["content"].(string); ok {
		chunk.Text = content
	}
	if documentID, ok := props["documentId"].(string); ok {
		chunk.DocumentID = documentID
	}
	if idx, ok := props["chunkIndex"].(float64); ok {
		chunk.ChunkIndex = int(idx)
	}
	if page, ok := props["pageNumber"].(float64); ok {
		chunk.PageNumber = int(page)
	}
	if start, ok := props["startIndex"].(float64); ok {
		chunk.Metadata["start_index"] = int(start)
	}
	if end, ok := props["endIndex"].(float64); ok {
		chunk.Metadata["end_index"] = int(end)
	}
	return chunk
}

func parseDocumentMeta(props map[string]interface{}) docstore.Document {
	var doc docstore.Document
	if name, ok := props["fileName"].(string); ok {
		doc.FileName = name
	}
	if ct, ok := props["contentType"].(string); ok {
		doc.ContentType = ct
	}
	if size, ok := props["fileSize"].(float64); ok {
		doc.FileSize = int64(size)
	}
	if uploaded, ok := props["uploadedAt"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, uploaded); err == nil {
			doc.UploadedAt = ts
		}
	}
	return doc
}

func sortChunks(chunks []docstore.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].PageNumber != chunks[j].PageNumber {
			return chunks[i].PageNumber < chunks[j].PageNumber
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}

func metadataInt(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	if v, ok := metadata[key].(int); ok {
		return v
	}
	return 0
}
