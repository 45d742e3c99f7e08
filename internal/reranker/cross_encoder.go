package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// PairScorer scores query-passage pairs. Implementations wrap an external
// cross-encoder model service.
type PairScorer interface {
	// ScorePairs returns one relevance score per passage, in input order.
	ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error)
}

// CrossEncoderReranker ranks candidates by cross-encoder pair scores.
// Scoring failures degrade to the original retrieval order.
type CrossEncoderReranker struct {
	scorer PairScorer
	logger *slog.Logger
}

// NewCrossEncoderReranker creates a reranker backed by the given scorer.
func NewCrossEncoderReranker(scorer PairScorer, logger *slog.Logger) *CrossEncoderReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossEncoderReranker{scorer: scorer, logger: logger}
}

// Rerank scores all candidates in one batch and returns the topR best,
// preserving retrieval order between equal scores.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topR int) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topR > len(candidates) {
		topR = len(candidates)
	}
	if topR < 0 {
		topR = 0
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Passage()
	}

	scores, err := r.scorer.ScorePairs(ctx, query, passages)
	if err != nil || len(scores) != len(candidates) {
		if err != nil {
			r.logger.Warn("cross-encoder scoring failed, keeping retrieval order", "error", err)
		} else {
			r.logger.Warn("cross-encoder score count mismatch, keeping retrieval order",
				"expected", len(candidates), "got", len(scores))
		}
		return candidates[:topR], nil
	}

	ranked := make([]Candidate, len(candidates))
	indices := make([]int, len(candidates))
	for i, c := range candidates {
		c.Score = scores[i]
		ranked[i] = c
		indices[i] = i
	}

	sort.SliceStable(indices, func(a, b int) bool {
		return ranked[indices[a]].Score > ranked[indices[b]].Score
	})

	result := make([]Candidate, 0, topR)
	for _, idx := range indices[:topR] {
		result = append(result, ranked[idx])
	}
	return result, nil
}

// HTTPPairScorer calls a cross-encoder inference service over HTTP.
// The service accepts {"query": ..., "passages": [...]} and responds with
// {"scores": [...]}.
type HTTPPairScorer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPairScorer creates a scorer for the service at baseURL.
func NewHTTPPairScorer(baseURL string) *HTTPPairScorer {
	return &HTTPPairScorer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type scorePairsRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type scorePairsResponse struct {
	Scores []float64 `json:"scores"`
}

// ScorePairs sends the whole batch in a single request.
func (s *HTTPPairScorer) ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error) {
	body, err := json.Marshal(scorePairsRequest{Query: query, Passages: passages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("score request returned %d: %s", resp.StatusCode, respBody)
	}

	var parsed scorePairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode score response: %w", err)
	}
	if len(parsed.Scores) != len(passages) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(passages), len(parsed.Scores))
	}

	return parsed.Scores, nil
}

var (
	_ Reranker   = (*CrossEncoderReranker)(nil)
	_ PairScorer = (*HTTPPairScorer)(nil)
)
