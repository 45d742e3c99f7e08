// Package vectorstore provides interfaces and implementations for vector similarity search.
package vectorstore

import (
	"context"
)

// Collection names used by the ingestion and retrieval paths.
const (
	CollectionFAQ          = "faq"
	CollectionStory        = "story_parts"
	CollectionStoryOverlap = "story_parts_overlap"
)

// Record is the textual payload stored alongside a vector. FAQ records carry
// Question/Answer; story records carry Part.
type Record struct {
	Question string
	Answer   string
	Part     string
}

// Hit is a retrieved record with its retrieval signal. Near-vector results
// carry Distance (ascending order); keyword and hybrid results carry Score
// (descending order).
type Hit struct {
	Record
	ID       string
	Score    float32
	Distance float32
}

// Store defines the vector storage operations the service depends on.
type Store interface {
	// EnsureCollection creates the collection if it does not already exist.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// InsertIfAbsent inserts a record unless an identical one already
	// exists; dedup key is exact match on all non-empty text fields.
	// Returns the new point id and true, or ("", false) when a duplicate
	// was found.
	InsertIfAbsent(ctx context.Context, collection string, rec Record, vector []float32) (string, bool, error)

	// SearchNearVector returns the nearest records by dense vector,
	// ordered by ascending distance.
	SearchNearVector(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error)

	// SearchKeyword returns records by keyword relevance, ordered by
	// descending score.
	SearchKeyword(ctx context.Context, collection, query string, limit int) ([]Hit, error)

	// SearchHybrid blends keyword and vector signals:
	// score = alpha*keyword_score + (1-alpha)*vector_score, alpha in [0,1].
	SearchHybrid(ctx context.Context, collection, query string, vector []float32, alpha float64, limit int) ([]Hit, error)
}
