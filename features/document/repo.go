package document

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM documents WHERE content_hash = $1 AND deleted_at IS NULL)`
	err := r.db.QueryRowContext(ctx, query, hash).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) Save(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (file_name, content_type, file_size, path, content_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, uploaded_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		doc.FileName, doc.ContentType, doc.FileSize, doc.Path, doc.ContentHash, doc.Status).
		Scan(&doc.ID, &doc.UploadedAt, &doc.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	var errMsg sql.NullString
	query := `SELECT id, file_name, content_type, file_size, path, content_hash, status, error, uploaded_at, updated_at
		FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.FileName, &doc.ContentType, &doc.FileSize, &doc.Path,
		&doc.ContentHash, &doc.Status, &errMsg, &doc.UploadedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Error = errMsg.String
	return doc, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT id, file_name, content_type, file_size, status, error, uploaded_at, updated_at
		FROM documents WHERE deleted_at IS NULL ORDER BY uploaded_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var errMsg sql.NullString
		if err := rows.Scan(&d.ID, &d.FileName, &d.ContentType, &d.FileSize, &d.Status, &errMsg, &d.UploadedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Error = errMsg.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	query := `UPDATE documents SET status = $1, error = NULLIF($2, ''), updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, errMsg, id)
	return err
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
