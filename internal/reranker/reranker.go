// Package reranker re-orders retrieved candidates by relevance to the query.
//
// Reranking evaluates query-passage pairs together rather than independently,
// which improves precision when the first-stage retrieval returns many
// similarly-scored candidates. It adds a model call per query, so it is a
// configuration option rather than a default.
package reranker

import (
	"context"
	"strings"
)

// Candidate is a retrieved record under consideration for the final context.
type Candidate struct {
	Question string
	Answer   string
	Part     string
	SourceID string

	// Score is the relevance score assigned by the reranker. Zero until
	// a Reranker has processed the candidate.
	Score float64
}

// Passage renders the candidate's text for pair scoring. FAQ candidates
// render as a question/answer pair, story candidates as the raw part.
func (c Candidate) Passage() string {
	if c.Part != "" {
		return c.Part
	}
	var b strings.Builder
	b.WriteString("Q: ")
	b.WriteString(c.Question)
	b.WriteString("\nA: ")
	b.WriteString(c.Answer)
	return b.String()
}

// Reranker re-orders candidates by relevance to the query and returns at
// most topR of them, best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topR int) ([]Candidate, error)
}
