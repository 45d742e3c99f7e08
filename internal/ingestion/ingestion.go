// Package ingestion loads source documents into the vector store: chunk,
// embed, insert. A Postgres-backed registry records what has been ingested
// so re-submitting identical content is a no-op.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hmaeda/specialist/internal/embedder"
	"github.com/hmaeda/specialist/internal/repository"
	"github.com/hmaeda/specialist/internal/vectorstore"
)

// Result holds the outcome of an ingestion run.
type Result struct {
	DocumentID  uuid.UUID
	ContentHash string

	// Chunks is the number of chunks produced from the content.
	Chunks int

	// Inserted is how many chunks were new to the vector store.
	Inserted int

	// Duplicates is how many chunks already existed and were skipped.
	Duplicates int

	// AlreadyIngested is true when the whole document was seen before and
	// nothing was processed.
	AlreadyIngested bool
}

// Ingester shares the embed-and-insert machinery between the FAQ and story
// pipelines.
type Ingester struct {
	store    vectorstore.Store
	embedder embedder.Embedder
	registry repository.DocumentRepository
	logger   *slog.Logger
}

// NewIngester creates an ingester. registry may be nil, in which case
// document-level dedup is skipped and only per-chunk dedup applies.
func NewIngester(store vectorstore.Store, emb embedder.Embedder, registry repository.DocumentRepository, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		store:    store,
		embedder: emb,
		registry: registry,
		logger:   logger,
	}
}

// hashContent computes the SHA-256 hash of content for dedup.
func hashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// begin registers the document unless identical content was ingested before.
// It returns the document id, or AlreadyIngested via the bool.
func (ing *Ingester) begin(ctx context.Context, source, kind, contentHash string) (uuid.UUID, bool, error) {
	if ing.registry == nil {
		return uuid.New(), false, nil
	}

	existing, err := ing.registry.GetByHash(ctx, contentHash)
	if err == nil && existing != nil {
		ing.logger.Info("content already ingested, skipping",
			"source", source, "document_id", existing.ID)
		return existing.ID, true, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("failed to check ingestion registry: %w", err)
	}

	now := time.Now()
	doc := &repository.Document{
		ID:          uuid.New(),
		Source:      source,
		Kind:        kind,
		ContentHash: contentHash,
		Status:      repository.StatusIngesting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ing.registry.Create(ctx, doc); err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to register document: %w", err)
	}
	return doc.ID, false, nil
}

// finish records the terminal status of an ingestion run.
func (ing *Ingester) finish(ctx context.Context, id uuid.UUID, chunkCount int, runErr error) {
	if ing.registry == nil {
		return
	}

	status := repository.StatusReady
	message := ""
	if runErr != nil {
		status = repository.StatusFailed
		message = runErr.Error()
	}
	if err := ing.registry.UpdateStatus(ctx, id, status, chunkCount, message); err != nil {
		ing.logger.Warn("failed to update document status", "document_id", id, "error", err)
	}
}

// insertRecords embeds each record's text and inserts it unless an identical
// record already exists in the collection.
func (ing *Ingester) insertRecords(ctx context.Context, collection string, records []vectorstore.Record, texts []string) (inserted, duplicates int, err error) {
	if err := ing.store.EnsureCollection(ctx, collection, ing.embedder.Dimension()); err != nil {
		return 0, 0, fmt.Errorf("failed to ensure collection %q: %w", collection, err)
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to embed %d chunks: %w", len(texts), err)
	}

	for i, rec := range records {
		_, wasInserted, err := ing.store.InsertIfAbsent(ctx, collection, rec, vectors[i])
		if err != nil {
			return inserted, duplicates, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
		if wasInserted {
			inserted++
		} else {
			duplicates++
		}
	}
	return inserted, duplicates, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	return content, nil
}
