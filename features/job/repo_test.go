package job_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/features/job"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO failed_jobs (document_id, handler, payload, error)`)).
		WithArgs("doc-1", "ingest-worker", []byte(`{"document_id":"doc-1"}`), "boom").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "retries"}).AddRow("job-1", now, 0))

	j := &job.Job{
		DocumentID: "doc-1",
		Handler:    "ingest-worker",
		Payload:    json.RawMessage(`{"document_id":"doc-1"}`),
		Error:      "boom",
	}
	require.NoError(t, repo.Save(context.Background(), j))
	assert.Equal(t, "job-1", j.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "document_id", "handler", "payload", "error", "retries", "created_at"}).
		AddRow("job-1", "doc-1", "ingest-worker", []byte(`{}`), "boom", 1, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, document_id, handler, payload, error, retries, created_at FROM failed_jobs ORDER BY created_at DESC`)).
		WillReturnRows(rows)

	jobs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "doc-1", jobs[0].DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM failed_jobs WHERE id = $1`)).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "handler", "payload", "error", "retries", "created_at"}).
			AddRow("job-1", "doc-1", "ingest-worker", []byte(`{"a":1}`), "boom", 0, now))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM failed_jobs WHERE id = $1`)).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	j, err := repo.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"a":1}`), j.Payload)

	require.NoError(t, repo.Delete(context.Background(), "job-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := job.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM failed_jobs`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
