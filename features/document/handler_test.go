package document_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docrag/features/document"
)

func multipartBody(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		repo, store, pub := &MockRepo{}, &MockChunkStore{}, &MockPublisher{}
		repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(false, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		pub.On("Publish", "ingest.task", mock.Anything).Return(nil)

		h := document.NewHandler(document.NewService(repo, pub, store, "ingest.task"), t.TempDir(), 50)

		body, contentType := multipartBody(t, "file", "notes.txt", "hello world")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.Upload(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var resp struct {
			Data document.Document `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "doc-1", resp.Data.ID)
		assert.Equal(t, "notes.txt", resp.Data.FileName)
		assert.Equal(t, "pending", resp.Data.Status)
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		h := document.NewHandler(document.NewService(&MockRepo{}, &MockPublisher{}, &MockChunkStore{}, "ingest.task"), t.TempDir(), 50)

		body, contentType := multipartBody(t, "file", "malware.exe", "nope")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.Upload(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MissingFileField", func(t *testing.T) {
		h := document.NewHandler(document.NewService(&MockRepo{}, &MockPublisher{}, &MockChunkStore{}, "ingest.task"), t.TempDir(), 50)

		body, contentType := multipartBody(t, "wrong_field", "notes.txt", "hello")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.Upload(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := &MockRepo{}
		repo.On("ExistsByHash", mock.Anything, mock.Anything).Return(true, nil)

		h := document.NewHandler(document.NewService(repo, &MockPublisher{}, &MockChunkStore{}, "ingest.task"), t.TempDir(), 50)

		body, contentType := multipartBody(t, "file", "notes.txt", "hello world")
		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.Upload(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("ReturnsEmptyArrayNotNull", func(t *testing.T) {
		repo := &MockRepo{}
		repo.On("List", mock.Anything).Return([]document.Document(nil), nil)

		h := document.NewHandler(document.NewService(repo, &MockPublisher{}, &MockChunkStore{}, "ingest.task"), "", 0)

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"data":[]`)
	})
}

func TestHandler_Get(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		repo, store := &MockRepo{}, &MockChunkStore{}
		repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

		h := document.NewHandler(document.NewService(repo, &MockPublisher{}, store, "ingest.task"), "", 0)

		req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
		req.SetPathValue("id", "missing")
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})
}

func TestHandler_Reprocess(t *testing.T) {
	repo, pub := &MockRepo{}, &MockPublisher{}
	repo.On("Get", mock.Anything, "doc-1").Return(&document.Document{ID: "doc-1", FileName: "a.pdf", Path: "/u/a.pdf"}, nil)
	repo.On("UpdateStatus", mock.Anything, "doc-1", "pending", "").Return(nil)
	pub.On("Publish", "ingest.task", mock.Anything).Return(nil)

	h := document.NewHandler(document.NewService(repo, pub, &MockChunkStore{}, "ingest.task"), "", 0)

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/reprocess", nil)
	req.SetPathValue("id", "doc-1")
	rec := httptest.NewRecorder()
	h.Reprocess(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	pub.AssertExpectations(t)
}
