package ingestion

import (
	"context"
	"fmt"

	"github.com/hmaeda/specialist/internal/chunker"
	"github.com/hmaeda/specialist/internal/repository"
	"github.com/hmaeda/specialist/internal/vectorstore"
)

// IngestFAQ parses question/answer pairs out of the content and loads them
// into the FAQ collection. source names where the content came from, for
// the registry.
func (ing *Ingester) IngestFAQ(ctx context.Context, source, content string) (*Result, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	contentHash := hashContent(content)
	docID, seen, err := ing.begin(ctx, source, repository.KindFAQ, contentHash)
	if err != nil {
		return nil, err
	}
	if seen {
		return &Result{DocumentID: docID, ContentHash: contentHash, AlreadyIngested: true}, nil
	}

	pairs := chunker.ParseQA(content)
	if len(pairs) == 0 {
		err := fmt.Errorf("no question/answer pairs found in content")
		ing.finish(ctx, docID, 0, err)
		return nil, err
	}

	records := make([]vectorstore.Record, len(pairs))
	texts := make([]string, len(pairs))
	for i, pair := range pairs {
		records[i] = vectorstore.Record{
			Question: pair.Question,
			Answer:   pair.Answer,
		}
		texts[i] = pair.Text
	}

	inserted, duplicates, err := ing.insertRecords(ctx, vectorstore.CollectionFAQ, records, texts)
	ing.finish(ctx, docID, len(pairs), err)
	if err != nil {
		return nil, err
	}

	ing.logger.Info("faq ingestion complete",
		"source", source, "pairs", len(pairs),
		"inserted", inserted, "duplicates", duplicates)

	return &Result{
		DocumentID:  docID,
		ContentHash: contentHash,
		Chunks:      len(pairs),
		Inserted:    inserted,
		Duplicates:  duplicates,
	}, nil
}
