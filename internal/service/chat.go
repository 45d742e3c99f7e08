// Package service orchestrates a conversation turn: rewrite the question,
// retrieve supporting context, optionally rerank it, and generate a reply.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hmaeda/specialist/internal/chat"
	"github.com/hmaeda/specialist/internal/config"
	"github.com/hmaeda/specialist/internal/embedder"
	"github.com/hmaeda/specialist/internal/memory"
	"github.com/hmaeda/specialist/internal/reranker"
	"github.com/hmaeda/specialist/internal/rewriter"
	"github.com/hmaeda/specialist/internal/vectorstore"
)

const defaultSystemPrompt = `You are a helpful assistant. Answer using the provided context when it is relevant.
If the context does not cover the question, say you don't know rather than guessing.`

const (
	answerTemperature = 0.2
	answerMaxTokens   = 400

	nearestLimit = 3
	multiLimit   = 15
	rerankFetch  = 15
	rerankKeep   = 3
	hybridLimit  = 7

	// completionHistoryTurns bounds how many recent turns are sent to the
	// chat model; the pinned system prompt is always kept on top.
	completionHistoryTurns = 20
)

// Source is a context passage that informed the answer.
type Source struct {
	ID       string  `json:"id"`
	Question string  `json:"question,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Part     string  `json:"part,omitempty"`
	Score    float64 `json:"score"`
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	Answer         string   `json:"answer"`
	RewrittenQuery string   `json:"rewritten_query"`
	Sources        []Source `json:"sources,omitempty"`
}

// ChatService runs multi-turn conversations grounded in the vector store.
type ChatService struct {
	memory      *memory.Store
	rewriter    *rewriter.QueryRewriter
	embedder    embedder.Embedder
	store       vectorstore.Store
	chatClient  chat.Client
	reranker    reranker.Reranker // used only in rerank mode
	mode        string
	hybridAlpha float64
	chatModel   string
	logger      *slog.Logger
}

// ChatServiceOption is a functional option for configuring ChatService.
type ChatServiceOption func(*ChatService)

// WithReranker sets the reranker used in rerank mode.
func WithReranker(r reranker.Reranker) ChatServiceOption {
	return func(s *ChatService) {
		s.reranker = r
	}
}

// WithMode selects the retrieval mode.
func WithMode(mode string) ChatServiceOption {
	return func(s *ChatService) {
		s.mode = mode
	}
}

// WithHybridAlpha sets the keyword weight for hybrid retrieval.
func WithHybridAlpha(alpha float64) ChatServiceOption {
	return func(s *ChatService) {
		s.hybridAlpha = alpha
	}
}

// WithChatModel sets the model used for answer generation.
func WithChatModel(model string) ChatServiceOption {
	return func(s *ChatService) {
		s.chatModel = model
	}
}

// WithSystemPrompt overrides the pinned system prompt for new sessions.
// Must be applied before the first turn of any session.
func WithSystemPrompt(prompt string) ChatServiceOption {
	return func(s *ChatService) {
		s.memory = memory.NewStore(prompt, memoryTTL)
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ChatServiceOption {
	return func(s *ChatService) {
		s.logger = logger
	}
}

// memoryTTL is how long an idle session survives before cleanup.
const memoryTTL = time.Hour

// NewChatService creates a chat service with the default retrieval mode.
func NewChatService(
	rw *rewriter.QueryRewriter,
	emb embedder.Embedder,
	store vectorstore.Store,
	chatClient chat.Client,
	opts ...ChatServiceOption,
) *ChatService {
	s := &ChatService{
		memory:      memory.NewStore(defaultSystemPrompt, memoryTTL),
		rewriter:    rw,
		embedder:    emb,
		store:       store,
		chatClient:  chatClient,
		mode:        config.ModeRerank,
		hybridAlpha: 0.5,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ask runs one conversation turn. The user message is appended to the
// session history first, so the rewriter sees it as the latest turn.
// Retrieval and reranking failures degrade to answering without context;
// only a failed chat completion is returned as an error.
func (s *ChatService) Ask(ctx context.Context, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}

	s.memory.Append(sessionID, chat.RoleUser, message)
	history := s.memory.History(sessionID)

	query := s.rewriter.Rewrite(ctx, history)
	candidates := s.retrieve(ctx, query)

	if s.mode == config.ModeRerank && s.reranker != nil && len(candidates) > 0 {
		reranked, err := s.reranker.Rerank(ctx, query, candidates, rerankKeep)
		if err != nil {
			s.logger.Warn("reranking failed, using retrieval order", "error", err)
			if len(candidates) > rerankKeep {
				candidates = candidates[:rerankKeep]
			}
		} else {
			candidates = reranked
		}
	}

	messages := historyToMessages(s.memory.RecentHistory(sessionID, completionHistoryTurns))
	if block := contextBlock(candidates); block != "" {
		// The context rides along as an extra system message for this
		// completion only; it is never written to the session history.
		messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: block})
	}

	answer, err := s.chatClient.Complete(ctx, messages, chat.CompleteOptions{
		Model:       s.chatModel,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	answer = strings.TrimSpace(answer)

	s.memory.Append(sessionID, chat.RoleAssistant, answer)

	return &Reply{
		Answer:         answer,
		RewrittenQuery: query,
		Sources:        candidatesToSources(candidates),
	}, nil
}

// retrieve fetches candidates per the configured mode. Any failure logs and
// returns an empty set: the conversation continues without context.
func (s *ChatService) retrieve(ctx context.Context, query string) []reranker.Candidate {
	if query == "" {
		return nil
	}

	var hits []vectorstore.Hit
	var err error

	switch s.mode {
	case config.ModeHybrid:
		var vector []float32
		vector, err = s.embedder.Embed(ctx, query)
		if err == nil {
			hits, err = s.store.SearchHybrid(ctx, vectorstore.CollectionStoryOverlap, query, vector, s.hybridAlpha, hybridLimit)
		}
	default:
		limit := nearestLimit
		switch s.mode {
		case config.ModeMulti:
			limit = multiLimit
		case config.ModeRerank:
			limit = rerankFetch
		}
		var vector []float32
		vector, err = s.embedder.Embed(ctx, query)
		if err == nil {
			hits, err = s.store.SearchNearVector(ctx, vectorstore.CollectionFAQ, vector, limit)
		}
	}

	if err != nil {
		s.logger.Warn("retrieval failed, answering without context", "mode", s.mode, "error", err)
		return nil
	}

	candidates := make([]reranker.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = reranker.Candidate{
			Question: hit.Question,
			Answer:   hit.Answer,
			Part:     hit.Part,
			SourceID: hit.ID,
			Score:    float64(hit.Score),
		}
	}
	return candidates
}

// contextBlock renders retrieved candidates as the completion's context.
func contextBlock(candidates []reranker.Candidate) string {
	if len(candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Context that may help answer the user's question:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, c.Passage())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func historyToMessages(turns []memory.Turn) []chat.Message {
	messages := make([]chat.Message, len(turns))
	for i, turn := range turns {
		messages[i] = chat.Message{Role: turn.Role, Content: turn.Content}
	}
	return messages
}

func candidatesToSources(candidates []reranker.Candidate) []Source {
	if len(candidates) == 0 {
		return nil
	}
	sources := make([]Source, len(candidates))
	for i, c := range candidates {
		sources[i] = Source{
			ID:       c.SourceID,
			Question: c.Question,
			Answer:   c.Answer,
			Part:     c.Part,
			Score:    c.Score,
		}
	}
	return sources
}
