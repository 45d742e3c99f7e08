package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hmaeda/specialist/internal/chat"
)

const (
	scoreToolName = "score_passages"
	maxScore      = 6

	rerankMaxTokens = 1024
)

const rerankSystemPrompt = `You are a relevance scoring system.
Score each passage's relevance to the query on an integer scale from 0 to 6:
0 means completely irrelevant, 6 means the passage directly answers the query.
Report the scores by calling the score_passages tool with one score per passage, in passage order.`

// LLMReranker scores query-passage pairs with a chat model through a forced
// tool call, so the scores come back as structured JSON rather than free
// text. Any failure along the way degrades to all-zero scores, which keeps
// the original retrieval order.
type LLMReranker struct {
	client chat.Client
	model  string
	logger *slog.Logger
}

// LLMRerankerOption is a functional option for configuring LLMReranker.
type LLMRerankerOption func(*LLMReranker)

// WithModel sets the model used for scoring.
func WithModel(model string) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.model = model
	}
}

// WithLogger sets the logger for scoring fallbacks.
func WithLogger(logger *slog.Logger) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.logger = logger
	}
}

// NewLLMReranker creates an LLM-based reranker.
func NewLLMReranker(client chat.Client, opts ...LLMRerankerOption) *LLMReranker {
	r := &LLMReranker{
		client: client,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type scoreArguments struct {
	Scores []int `json:"scores"`
}

// Rerank scores every candidate against the query and returns the topR best.
// Equal scores preserve the original retrieval order. Scoring failures are
// absorbed: the candidates come back zero-scored in their original order.
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topR int) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topR > len(candidates) {
		topR = len(candidates)
	}
	if topR < 0 {
		topR = 0
	}

	scores := r.scorePassages(ctx, query, candidates)

	ranked := make([]Candidate, len(candidates))
	indices := make([]int, len(candidates))
	for i, c := range candidates {
		c.Score = float64(scores[i])
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

// scorePassages asks the model for one integer score per candidate. The
// returned slice always has len(candidates) entries.
func (r *LLMReranker) scorePassages(ctx context.Context, query string, candidates []Candidate) []int {
	scores := make([]int, len(candidates))

	tool := chat.Tool{
		Name:        scoreToolName,
		Description: "Report a relevance score for every passage, in order.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scores": map[string]any{
					"type":        "array",
					"description": fmt.Sprintf("Integer relevance scores from 0 to %d, one per passage.", maxScore),
					"items": map[string]any{
						"type":    "integer",
						"minimum": 0,
						"maximum": maxScore,
					},
				},
			},
			"required": []string{"scores"},
		},
	}

	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: rerankSystemPrompt},
		{Role: chat.RoleUser, Content: buildScoringPrompt(query, candidates)},
	}

	raw, err := r.client.CompleteTool(ctx, messages, tool, chat.CompleteOptions{
		Model:       r.model,
		Temperature: 0,
		MaxTokens:   rerankMaxTokens,
	})
	if err != nil {
		r.logger.Warn("passage scoring failed, keeping retrieval order", "error", err)
		return scores
	}

	var args scoreArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		r.logger.Warn("unparseable scoring tool call, keeping retrieval order", "error", err)
		return scores
	}
	if len(args.Scores) != len(candidates) {
		// A short array zero-fills the tail; extra entries are dropped.
		r.logger.Warn("score count mismatch",
			"expected", len(candidates), "got", len(args.Scores))
	}

	for i, s := range args.Scores {
		if i >= len(scores) {
			break
		}
		if s < 0 {
			s = 0
		}
		if s > maxScore {
			s = maxScore
		}
		scores[i] = s
	}
	return scores
}

func buildScoringPrompt(query string, candidates []Candidate) string {
	var sb strings.Builder
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nPassages:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "[Passage %d]\n%s\n\n", i+1, c.Passage())
	}
	return sb.String()
}

// Ensure LLMReranker implements Reranker interface.
var _ Reranker = (*LLMReranker)(nil)
