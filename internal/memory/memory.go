// Package memory provides conversation history storage for multi-turn chat sessions.
package memory

import (
	"sync"
	"time"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role      string // "system", "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// Conversation holds the turn history for a session. The first turn is
// always the pinned system prompt.
type Conversation struct {
	Turns     []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store provides in-memory conversation storage.
// For production, consider using Redis for persistence and TTL support.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	systemPrompt  string
	ttl           time.Duration
}

// NewStore creates a conversation store. Every new session starts with
// systemPrompt pinned as its first turn.
func NewStore(systemPrompt string, ttl time.Duration) *Store {
	s := &Store{
		conversations: make(map[string]*Conversation),
		systemPrompt:  systemPrompt,
		ttl:           ttl,
	}

	// Start cleanup goroutine
	go s.cleanupLoop()

	return s
}

// Append adds a turn to the session's history, creating the session (with
// its system prompt) if it does not exist. History is append-only.
func (s *Store) Append(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.getOrCreate(sessionID)
	conv.Turns = append(conv.Turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	conv.UpdatedAt = time.Now()
}

func (s *Store) getOrCreate(sessionID string) *Conversation {
	conv, exists := s.conversations[sessionID]
	if !exists {
		now := time.Now()
		conv = &Conversation{
			Turns: []Turn{{
				Role:      "system",
				Content:   s.systemPrompt,
				Timestamp: now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.conversations[sessionID] = conv
	}
	return conv
}

// History returns the session's turns, creating the session if needed so
// callers always see at least the system prompt.
func (s *Store) History(sessionID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.getOrCreate(sessionID)

	// Return a copy to avoid race conditions
	turns := make([]Turn, len(conv.Turns))
	copy(turns, conv.Turns)
	return turns
}

// RecentHistory returns the last n turns for context window management.
// The pinned system prompt is always included as the first turn.
func (s *Store) RecentHistory(sessionID string, n int) []Turn {
	history := s.History(sessionID)
	if len(history) <= n+1 {
		return history
	}
	recent := make([]Turn, 0, n+1)
	recent = append(recent, history[0])
	recent = append(recent, history[len(history)-n:]...)
	return recent
}

// ClearSession removes a conversation from memory.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
}

// cleanupLoop periodically removes expired conversations.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, conv := range s.conversations {
		if now.Sub(conv.UpdatedAt) > s.ttl {
			delete(s.conversations, id)
		}
	}
}
