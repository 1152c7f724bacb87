package document_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docrag/features/document"
	"docrag/internal/docstore"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) Save(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	if args.Error(0) == nil {
		doc.ID = "doc-1"
	}
	return args.Error(0)
}

func (m *MockRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context) ([]document.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockRepo) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockChunkStore struct{ mock.Mock }

func (m *MockChunkStore) GetDocument(ctx context.Context, id string) (*docstore.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docstore.Document), args.Error(1)
}

func (m *MockChunkStore) DeleteDocument(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func TestService_Upload(t *testing.T) {
	t.Run("QueuesIngestTask", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("ExistsByHash", mock.Anything, "hash1").Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		pub.On("Publish", "ingest.task", mock.MatchedBy(func(body []byte) bool {
			var payload map[string]interface{}
			if err := json.Unmarshal(body, &payload); err != nil {
				return false
			}
			return payload["document_id"] == "doc-1" && payload["file_name"] == "a.pdf"
		})).Return(nil)

		svc := document.NewService(repo, pub, store, "ingest.task")
		doc, err := svc.Upload(context.Background(), "/uploads/a.pdf", "hash1", "a.pdf", "application/pdf", 100)

		require.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
		assert.Equal(t, string(docstore.StatusPending), doc.Status)
		pub.AssertExpectations(t)
	})

	t.Run("RejectsDuplicate", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("ExistsByHash", mock.Anything, "hash1").Return(true, nil)

		svc := document.NewService(repo, pub, store, "ingest.task")
		_, err := svc.Upload(context.Background(), "/uploads/a.pdf", "hash1", "a.pdf", "application/pdf", 100)

		assert.ErrorIs(t, err, document.ErrDuplicate)
		repo.AssertNotCalled(t, "Save")
		pub.AssertNotCalled(t, "Publish")
	})

	t.Run("PublishFailureDoesNotFailUpload", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("ExistsByHash", mock.Anything, "hash1").Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		pub.On("Publish", "ingest.task", mock.Anything).Return(errors.New("nsqd down"))

		svc := document.NewService(repo, pub, store, "ingest.task")
		doc, err := svc.Upload(context.Background(), "/uploads/a.pdf", "hash1", "a.pdf", "application/pdf", 100)

		require.NoError(t, err)
		assert.NotNil(t, doc)
	})
}

func TestService_Get(t *testing.T) {
	record := &document.Document{ID: "doc-1", FileName: "a.pdf", Status: "completed"}

	t.Run("WithChunks", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("Get", mock.Anything, "doc-1").Return(record, nil)
		store.On("GetDocument", mock.Anything, "doc-1").Return(&docstore.Document{
			ID:     "doc-1",
			Chunks: []docstore.Chunk{{Text: "a"}, {Text: "b"}},
		}, nil)

		svc := document.NewService(repo, pub, store, "ingest.task")
		detail, err := svc.Get(context.Background(), "doc-1", true)

		require.NoError(t, err)
		assert.Len(t, detail.Chunks, 2)
		assert.Equal(t, 2, detail.TotalChunks)
	})

	t.Run("ChunkStoreErrorIsTolerated", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("Get", mock.Anything, "doc-1").Return(record, nil)
		store.On("GetDocument", mock.Anything, "doc-1").Return(nil, errors.New("weaviate down"))

		svc := document.NewService(repo, pub, store, "ingest.task")
		detail, err := svc.Get(context.Background(), "doc-1", true)

		require.NoError(t, err)
		assert.Empty(t, detail.Chunks)
	})

	t.Run("NotIndexedYet", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("Get", mock.Anything, "doc-1").Return(record, nil)
		store.On("GetDocument", mock.Anything, "doc-1").Return(nil, nil)

		svc := document.NewService(repo, pub, store, "ingest.task")
		detail, err := svc.Get(context.Background(), "doc-1", true)

		require.NoError(t, err)
		assert.Empty(t, detail.Chunks)
		assert.Equal(t, 0, detail.TotalChunks)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

		svc := document.NewService(repo, pub, store, "ingest.task")
		_, err := svc.Get(context.Background(), "missing", true)

		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("RemovesChunksThenRecord", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("Get", mock.Anything, "doc-1").Return(&document.Document{ID: "doc-1"}, nil)
		store.On("DeleteDocument", mock.Anything, "doc-1").Return(nil)
		repo.On("SoftDelete", mock.Anything, "doc-1").Return(nil)

		svc := document.NewService(repo, pub, store, "ingest.task")
		require.NoError(t, svc.Delete(context.Background(), "doc-1"))
		store.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

		svc := document.NewService(repo, pub, store, "ingest.task")
		err := svc.Delete(context.Background(), "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		store.AssertNotCalled(t, "DeleteDocument")
	})
}

func TestService_Reprocess(t *testing.T) {
	repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
	repo.On("Get", mock.Anything, "doc-1").Return(&document.Document{
		ID: "doc-1", FileName: "a.pdf", Path: "/uploads/a.pdf", ContentType: "application/pdf", Status: "failed",
	}, nil)
	repo.On("UpdateStatus", mock.Anything, "doc-1", "pending", "").Return(nil)
	pub.On("Publish", "ingest.task", mock.Anything).Return(nil)

	svc := document.NewService(repo, pub, store, "ingest.task")
	require.NoError(t, svc.Reprocess(context.Background(), "doc-1"))
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}
