package ingestion

import (
	"context"

	"github.com/hmaeda/specialist/internal/chunker"
	"github.com/hmaeda/specialist/internal/repository"
	"github.com/hmaeda/specialist/internal/vectorstore"
)

// StoryOptions controls how narrative text is chunked.
type StoryOptions struct {
	ChunkSize      int
	OverlapPercent float64
}

// IngestStory chunks narrative text and loads it into two collections:
// fixed-size chunks into the story collection, overlapping chunks into the
// overlap collection used by hybrid retrieval.
func (ing *Ingester) IngestStory(ctx context.Context, source, content string, opts StoryOptions) (*Result, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	tc, err := chunker.NewTextChunker(opts.ChunkSize, opts.OverlapPercent)
	if err != nil {
		return nil, err
	}

	contentHash := hashContent(content)
	docID, seen, err := ing.begin(ctx, source, repository.KindStory, contentHash)
	if err != nil {
		return nil, err
	}
	if seen {
		return &Result{DocumentID: docID, ContentHash: contentHash, AlreadyIngested: true}, nil
	}

	fixed := tc.ChunkBySize(content)
	overlapping := tc.ChunkWithOverlap(content)

	result := &Result{
		DocumentID:  docID,
		ContentHash: contentHash,
		Chunks:      len(fixed) + len(overlapping),
	}

	runErr := func() error {
		inserted, duplicates, err := ing.insertChunks(ctx, vectorstore.CollectionStory, fixed)
		if err != nil {
			return err
		}
		result.Inserted += inserted
		result.Duplicates += duplicates

		inserted, duplicates, err = ing.insertChunks(ctx, vectorstore.CollectionStoryOverlap, overlapping)
		if err != nil {
			return err
		}
		result.Inserted += inserted
		result.Duplicates += duplicates
		return nil
	}()

	ing.finish(ctx, docID, result.Chunks, runErr)
	if runErr != nil {
		return nil, runErr
	}

	ing.logger.Info("story ingestion complete",
		"source", source, "chunks", result.Chunks,
		"inserted", result.Inserted, "duplicates", result.Duplicates)

	return result, nil
}

func (ing *Ingester) insertChunks(ctx context.Context, collection string, chunks []chunker.Chunk) (int, int, error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	records := make([]vectorstore.Record, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{Part: c.Text}
		texts[i] = c.Text
	}
	return ing.insertRecords(ctx, collection, records, texts)
}
