package settings_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"docrag/internal/settings"
)

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := settings.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "gemini_api_key", "search_top_k", "search_min_score", "chunk_size", "chunk_overlap"}).
			AddRow(1, "key1", 5, 0.7, 500, 50)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, gemini_api_key, search_top_k, search_min_score, chunk_size, chunk_overlap FROM settings WHERE id = 1")).
			WillReturnRows(rows)

		s, err := repo.Get(context.Background())
		assert.NoError(t, err)
		assert.NotNil(t, s)
		assert.Equal(t, "key1", s.GeminiAPIKey)
		assert.Equal(t, 5, s.SearchTopK)
		assert.Equal(t, float32(0.7), s.SearchMinScore)
		assert.Equal(t, 500, s.ChunkSize)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
			WillReturnError(sqlmock.ErrCancelled)

		s, err := repo.Get(context.Background())
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestPostgresRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := settings.NewPostgresRepo(db)

	s := &settings.Settings{
		GeminiAPIKey:   "key2",
		SearchTopK:     10,
		SearchMinScore: 0.6,
		ChunkSize:      400,
		ChunkOverlap:   40,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE settings")).
		WithArgs(s.GeminiAPIKey, s.SearchTopK, s.SearchMinScore, s.ChunkSize, s.ChunkOverlap).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Update(context.Background(), s)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
