// Package repository defines domain models and data access interfaces for
// the ingestion registry.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Document statuses.
const (
	StatusIngesting = "ingesting"
	StatusReady     = "ready"
	StatusFailed    = "failed"
)

// Document kinds.
const (
	KindFAQ   = "faq"
	KindStory = "story"
)

// Document is an ingested source document. The registry tracks what has
// been ingested so re-submitting the same content is a no-op.
type Document struct {
	ID           uuid.UUID
	Source       string
	Kind         string
	ContentHash  string
	ChunkCount   int
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentRepository defines operations for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	GetByHash(ctx context.Context, hash string) (*Document, error)
	List(ctx context.Context, kind string, limit, offset int) ([]*Document, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, chunkCount int, errorMessage string) error
}
