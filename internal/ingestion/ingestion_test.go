package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hmaeda/specialist/internal/repository"
	"github.com/hmaeda/specialist/internal/vectorstore"
)

type fakeStore struct {
	collections map[string]int
	records     map[string][]vectorstore.Record
	existing    map[string]bool // passage text -> already present
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string]int),
		records:     make(map[string][]vectorstore.Record),
		existing:    make(map[string]bool),
	}
}

func (s *fakeStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	s.collections[collection] = dimension
	return nil
}

func (s *fakeStore) InsertIfAbsent(ctx context.Context, collection string, rec vectorstore.Record, vector []float32) (string, bool, error) {
	key := collection + "|" + rec.Question + "|" + rec.Answer + "|" + rec.Part
	if s.existing[key] {
		return "", false, nil
	}
	s.existing[key] = true
	s.records[collection] = append(s.records[collection], rec)
	return uuid.New().String(), true, nil
}

func (s *fakeStore) SearchNearVector(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.Hit, error) {
	return nil, nil
}

func (s *fakeStore) SearchKeyword(ctx context.Context, collection, query string, limit int) ([]vectorstore.Hit, error) {
	return nil, nil
}

func (s *fakeStore) SearchHybrid(ctx context.Context, collection, query string, vector []float32, alpha float64, limit int) ([]vectorstore.Hit, error) {
	return nil, nil
}

type fakeEmbedder struct {
	batches int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimension() int { return 3 }

func (e *fakeEmbedder) ModelName() string { return "fake" }

type fakeRegistry struct {
	byHash  map[string]*repository.Document
	updates []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{byHash: make(map[string]*repository.Document)}
}

func (r *fakeRegistry) Create(ctx context.Context, doc *repository.Document) error {
	r.byHash[doc.ContentHash] = doc
	return nil
}

func (r *fakeRegistry) GetByHash(ctx context.Context, hash string) (*repository.Document, error) {
	if doc, ok := r.byHash[hash]; ok {
		return doc, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRegistry) List(ctx context.Context, kind string, limit, offset int) ([]*repository.Document, int, error) {
	return nil, 0, nil
}

func (r *fakeRegistry) UpdateStatus(ctx context.Context, id uuid.UUID, status string, chunkCount int, errorMessage string) error {
	r.updates = append(r.updates, status)
	for _, doc := range r.byHash {
		if doc.ID == id {
			doc.Status = status
			doc.ChunkCount = chunkCount
			doc.ErrorMessage = errorMessage
			doc.UpdatedAt = time.Now()
		}
	}
	return nil
}

const faqContent = `Q1: What is the return policy?
A: Items can be returned within 30 days.

Q2: Do you ship internationally?
Ans: Yes, to most countries.
`

func TestIngestFAQ(t *testing.T) {
	store := newFakeStore()
	registry := newFakeRegistry()
	ing := NewIngester(store, &fakeEmbedder{}, registry, nil)

	result, err := ing.IngestFAQ(context.Background(), "faq.txt", faqContent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Chunks != 2 || result.Inserted != 2 || result.Duplicates != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if dim := store.collections[vectorstore.CollectionFAQ]; dim != 3 {
		t.Errorf("collection created with dimension %d, want 3", dim)
	}

	records := store.records[vectorstore.CollectionFAQ]
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Question != "What is the return policy?" {
		t.Errorf("first question = %q", records[0].Question)
	}
	if records[1].Answer != "Yes, to most countries." {
		t.Errorf("second answer = %q", records[1].Answer)
	}

	doc, err := registry.GetByHash(context.Background(), result.ContentHash)
	if err != nil {
		t.Fatalf("document not registered: %v", err)
	}
	if doc.Status != repository.StatusReady || doc.ChunkCount != 2 {
		t.Errorf("registry entry: status %q, chunks %d", doc.Status, doc.ChunkCount)
	}
}

func TestIngestFAQSkipsSeenContent(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	ing := NewIngester(store, emb, newFakeRegistry(), nil)

	if _, err := ing.IngestFAQ(context.Background(), "faq.txt", faqContent); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	result, err := ing.IngestFAQ(context.Background(), "faq.txt", faqContent)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !result.AlreadyIngested {
		t.Error("identical content should be flagged as already ingested")
	}
	if emb.batches != 1 {
		t.Errorf("already-ingested content should not be re-embedded, got %d batches", emb.batches)
	}
}

func TestIngestFAQNoPairs(t *testing.T) {
	registry := newFakeRegistry()
	ing := NewIngester(newFakeStore(), &fakeEmbedder{}, registry, nil)

	if _, err := ing.IngestFAQ(context.Background(), "notes.txt", "just some prose"); err == nil {
		t.Fatal("expected error for content without question/answer pairs")
	}
	if len(registry.updates) != 1 || registry.updates[0] != repository.StatusFailed {
		t.Errorf("expected a failed status update, got %v", registry.updates)
	}
}

func TestIngestFAQEmptyContent(t *testing.T) {
	ing := NewIngester(newFakeStore(), &fakeEmbedder{}, nil, nil)
	if _, err := ing.IngestFAQ(context.Background(), "faq.txt", "   "); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestIngestStory(t *testing.T) {
	store := newFakeStore()
	ing := NewIngester(store, &fakeEmbedder{}, newFakeRegistry(), nil)

	content := "Once upon a time there was a very long story about a dragon."
	result, err := ing.IngestStory(context.Background(), "story.txt", content, StoryOptions{
		ChunkSize:      20,
		OverlapPercent: 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fixed := store.records[vectorstore.CollectionStory]
	overlapping := store.records[vectorstore.CollectionStoryOverlap]
	if len(fixed) == 0 || len(overlapping) == 0 {
		t.Fatalf("expected chunks in both collections, got %d and %d", len(fixed), len(overlapping))
	}
	if result.Chunks != len(fixed)+len(overlapping) {
		t.Errorf("chunk count %d does not match stored records %d", result.Chunks, len(fixed)+len(overlapping))
	}
	// Overlapping chunks step by half the chunk size, so there are more of them
	if len(overlapping) <= len(fixed) {
		t.Errorf("expected more overlapping chunks than fixed: %d vs %d", len(overlapping), len(fixed))
	}
	for _, rec := range fixed {
		if rec.Part == "" || rec.Question != "" {
			t.Errorf("story record should only carry part text: %+v", rec)
		}
	}
}

func TestIngestStoryInvalidOptions(t *testing.T) {
	ing := NewIngester(newFakeStore(), &fakeEmbedder{}, nil, nil)
	_, err := ing.IngestStory(context.Background(), "story.txt", "text", StoryOptions{
		ChunkSize:      100,
		OverlapPercent: 1.0,
	})
	if err == nil {
		t.Fatal("expected error for overlap percent of 1.0")
	}
}

func TestIngestStoryPerChunkDedup(t *testing.T) {
	store := newFakeStore()
	// No registry: only per-chunk dedup applies.
	ing := NewIngester(store, &fakeEmbedder{}, nil, nil)

	content := "The quick brown fox jumps over the lazy dog."
	opts := StoryOptions{ChunkSize: 15, OverlapPercent: 0}
	if _, err := ing.IngestStory(context.Background(), "a.txt", content, opts); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	result, err := ing.IngestStory(context.Background(), "b.txt", content, opts)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if result.Inserted != 0 {
		t.Errorf("expected all chunks deduplicated, inserted %d", result.Inserted)
	}
	if result.Duplicates == 0 {
		t.Error("expected duplicate chunks to be counted")
	}
}
