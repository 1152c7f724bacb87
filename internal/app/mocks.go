package app

import (
	"context"

	"docrag/internal/docstore"
)

// MockVectorStore is a no-op VectorStore for wiring tests. Behavior is
// controlled through the error fields.
type MockVectorStore struct {
	EnsureSchemaErr error
	SaveChunksErr   error
}

func (m *MockVectorStore) EnsureSchema(ctx context.Context) error {
	return m.EnsureSchemaErr
}

func (m *MockVectorStore) SaveChunks(ctx context.Context, doc *docstore.Document) error {
	return m.SaveChunksErr
}

func (m *MockVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	return nil
}

func (m *MockVectorStore) GetDocument(ctx context.Context, documentID string) (*docstore.Document, error) {
	return nil, nil
}

func (m *MockVectorStore) GetAllDocuments(ctx context.Context) ([]docstore.Document, error) {
	return nil, nil
}

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, topK int, minScore float32) ([]docstore.SearchResult, error) {
	return nil, nil
}

func (m *MockVectorStore) CountChunks(ctx context.Context) (int, error) {
	return 0, nil
}
