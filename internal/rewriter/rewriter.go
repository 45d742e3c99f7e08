// Package rewriter turns a conversational follow-up question into a
// standalone query suitable for retrieval.
package rewriter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hmaeda/specialist/internal/chat"
	"github.com/hmaeda/specialist/internal/memory"
)

const (
	// historyWindow bounds how many trailing turns are shown to the model.
	historyWindow = 10

	// maxQueryChars caps the rewritten query length in characters.
	maxQueryChars = 500

	rewriteMaxTokens = 256
)

const systemPrompt = `You rewrite the latest user question so it can be understood without the conversation.
Resolve pronouns and references using the conversation history.
Return only the rewritten question, nothing else.
If the question is already self-contained, return it unchanged.`

// QueryRewriter rewrites follow-up questions into self-contained queries
// using a chat model. It never fails: on any error the latest user turn is
// returned as-is.
type QueryRewriter struct {
	client   chat.Client
	model    string
	maxChars int
	logger   *slog.Logger
}

// Option configures a QueryRewriter.
type Option func(*QueryRewriter)

// WithModel sets the model used for rewriting.
func WithModel(model string) Option {
	return func(r *QueryRewriter) {
		r.model = model
	}
}

// WithMaxChars overrides the rewritten-query length cap.
func WithMaxChars(n int) Option {
	return func(r *QueryRewriter) {
		if n > 0 {
			r.maxChars = n
		}
	}
}

// WithLogger sets the logger for rewrite fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(r *QueryRewriter) {
		r.logger = logger
	}
}

// NewQueryRewriter creates a rewriter backed by the given chat client.
func NewQueryRewriter(client chat.Client, opts ...Option) *QueryRewriter {
	r := &QueryRewriter{
		client:   client,
		maxChars: maxQueryChars,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite produces a standalone query from the conversation. turns is the
// full history including the latest user question. The returned query is
// never empty when the history contains at least one user turn, and the
// method never returns an error to the caller's benefit: rewriting is an
// optimization, not a gate.
func (r *QueryRewriter) Rewrite(ctx context.Context, turns []memory.Turn) string {
	fallback := lastUserContent(turns)
	if fallback == "" {
		return ""
	}

	transcript := renderTranscript(turns, historyWindow)
	if transcript == "" {
		return clampChars(fallback, r.maxChars)
	}

	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: systemPrompt},
		{Role: chat.RoleUser, Content: fmt.Sprintf("Conversation:\n%s\n\nRewrite the last user question.", transcript)},
	}

	rewritten, err := r.client.Complete(ctx, messages, chat.CompleteOptions{
		Model:       r.model,
		Temperature: 0,
		MaxTokens:   rewriteMaxTokens,
	})
	if err != nil {
		r.logger.Warn("query rewrite failed, using original question", "error", err)
		return clampChars(fallback, r.maxChars)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return clampChars(fallback, r.maxChars)
	}

	return clampChars(rewritten, r.maxChars)
}

// renderTranscript formats the last window turns as role-prefixed lines,
// skipping turns with blank content.
func renderTranscript(turns []memory.Turn, window int) string {
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	var b strings.Builder
	for _, turn := range turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// lastUserContent returns the content of the most recent user turn, or the
// last turn's content when none is tagged user.
func lastUserContent(turns []memory.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == chat.RoleUser {
			return strings.TrimSpace(turns[i].Content)
		}
	}
	if len(turns) > 0 {
		return strings.TrimSpace(turns[len(turns)-1].Content)
	}
	return ""
}

// clampChars truncates s to at most n characters, trimming any trailing
// whitespace left by the cut.
func clampChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), " \t\n")
}
