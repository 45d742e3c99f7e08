package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/hmaeda/specialist/internal/repository"
)

// DocumentRepo implements repository.DocumentRepository
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create creates a new document
func (r *DocumentRepo) Create(ctx context.Context, doc *repository.Document) error {
	query := `
		INSERT INTO documents (id, source, kind, content_hash, chunk_count, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		doc.ID, doc.Source, doc.Kind, doc.ContentHash,
		doc.ChunkCount, doc.Status, doc.ErrorMessage,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByHash retrieves a document by content hash
func (r *DocumentRepo) GetByHash(ctx context.Context, hash string) (*repository.Document, error) {
	query := `
		SELECT id, source, kind, content_hash, chunk_count, status, error_message, created_at, updated_at
		FROM documents
		WHERE content_hash = $1
	`

	var doc repository.Document
	err := r.db.Pool.QueryRow(ctx, query, hash).Scan(
		&doc.ID, &doc.Source, &doc.Kind, &doc.ContentHash,
		&doc.ChunkCount, &doc.Status, &doc.ErrorMessage,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// List retrieves documents with pagination, optionally filtered by kind
func (r *DocumentRepo) List(ctx context.Context, kind string, limit, offset int) ([]*repository.Document, int, error) {
	countQuery := `SELECT COUNT(*) FROM documents`
	listQuery := `
		SELECT id, source, kind, content_hash, chunk_count, status, error_message, created_at, updated_at
		FROM documents
	`
	var args []any

	if kind != "" {
		countQuery += ` WHERE kind = $1`
		listQuery += ` WHERE kind = $1`
		args = append(args, kind)
	}

	listQuery += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.Pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*repository.Document
	for rows.Next() {
		var doc repository.Document
		err := rows.Scan(
			&doc.ID, &doc.Source, &doc.Kind, &doc.ContentHash,
			&doc.ChunkCount, &doc.Status, &doc.ErrorMessage,
			&doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, total, nil
}

// UpdateStatus updates a document's ingestion status and chunk count
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, chunkCount int, errorMessage string) error {
	query := `
		UPDATE documents
		SET status = $2, chunk_count = $3, error_message = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query, id, status, chunkCount, errorMessage, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ensure DocumentRepo implements the interface
var _ repository.DocumentRepository = (*DocumentRepo)(nil)
