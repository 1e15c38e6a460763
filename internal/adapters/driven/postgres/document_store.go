package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document record
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, filename, file_type, size_bytes, source, status, error, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			file_type = EXCLUDED.file_type,
			size_bytes = EXCLUDED.size_bytes,
			source = EXCLUDED.source,
			status = EXCLUDED.status,
			error = EXCLUDED.error
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		string(doc.FileType),
		doc.SizeBytes,
		doc.Source,
		string(doc.Status),
		doc.Error,
		doc.UploadedAt,
	)
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, filename, file_type, size_bytes, source, status, error, uploaded_at
		FROM documents
		WHERE id = $1
	`

	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetByFilename retrieves the most recent record for a filename
func (s *DocumentStore) GetByFilename(ctx context.Context, filename string) (*domain.Document, error) {
	query := `
		SELECT id, filename, file_type, size_bytes, source, status, error, uploaded_at
		FROM documents
		WHERE filename = $1
		ORDER BY uploaded_at DESC
		LIMIT 1
	`

	return s.scanDocument(s.db.QueryRowContext(ctx, query, filename))
}

func (s *DocumentStore) scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var fileType, status string

	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&fileType,
		&doc.SizeBytes,
		&doc.Source,
		&status,
		&doc.Error,
		&doc.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.FileType = domain.FileType(fileType)
	doc.Status = domain.ProcessingStatus(status)
	return &doc, nil
}

// List retrieves documents with pagination, newest first
func (s *DocumentStore) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT id, filename, file_type, size_bytes, source, status, error, uploaded_at
		FROM documents
		ORDER BY uploaded_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var fileType, status string

		err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&fileType,
			&doc.SizeBytes,
			&doc.Source,
			&status,
			&doc.Error,
			&doc.UploadedAt,
		)
		if err != nil {
			return nil, err
		}

		doc.FileType = domain.FileType(fileType)
		doc.Status = domain.ProcessingStatus(status)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// UpdateStatus transitions a document's processing status
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMsg string) error {
	query := `UPDATE documents SET status = $2, error = $3 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, string(status), errMsg)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete removes a document record
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Count returns the total document record count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	var count int
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
