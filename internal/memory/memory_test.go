package memory

import (
	"testing"
	"time"
)

func TestSystemPromptPinned(t *testing.T) {
	store := NewStore("you are helpful", time.Hour)

	history := store.History("s1")
	if len(history) != 1 {
		t.Fatalf("new session should contain only the system prompt, got %d turns", len(history))
	}
	if history[0].Role != "system" || history[0].Content != "you are helpful" {
		t.Errorf("unexpected first turn: %+v", history[0])
	}
}

func TestAppendOrder(t *testing.T) {
	store := NewStore("sys", time.Hour)
	store.Append("s1", "user", "hello")
	store.Append("s1", "assistant", "hi there")
	store.Append("s1", "user", "how are you?")

	history := store.History("s1")
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(history) != len(wantRoles) {
		t.Fatalf("expected %d turns, got %d", len(wantRoles), len(history))
	}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Errorf("turn %d role = %q, want %q", i, history[i].Role, role)
		}
	}
}

func TestSessionsIsolated(t *testing.T) {
	store := NewStore("sys", time.Hour)
	store.Append("a", "user", "question for a")
	store.Append("b", "user", "question for b")

	if got := store.History("a")[1].Content; got != "question for a" {
		t.Errorf("session a saw %q", got)
	}
	if got := store.History("b")[1].Content; got != "question for b" {
		t.Errorf("session b saw %q", got)
	}
}

func TestRecentHistoryKeepsSystemPrompt(t *testing.T) {
	store := NewStore("sys", time.Hour)
	for i := 0; i < 10; i++ {
		store.Append("s1", "user", "q")
		store.Append("s1", "assistant", "a")
	}

	recent := store.RecentHistory("s1", 4)
	if len(recent) != 5 {
		t.Fatalf("expected system prompt + 4 turns, got %d", len(recent))
	}
	if recent[0].Role != "system" {
		t.Errorf("first turn should be the system prompt, got %q", recent[0].Role)
	}
	if recent[len(recent)-1].Role != "assistant" {
		t.Errorf("last turn should be the latest assistant turn, got %q", recent[len(recent)-1].Role)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore("sys", time.Hour)
	store.Append("s1", "user", "original")

	history := store.History("s1")
	history[1].Content = "mutated"

	if got := store.History("s1")[1].Content; got != "original" {
		t.Errorf("mutating the returned slice leaked into the store: %q", got)
	}
}

func TestCleanupExpiresIdleSessions(t *testing.T) {
	store := NewStore("sys", time.Nanosecond)
	store.Append("stale", "user", "hello")

	time.Sleep(time.Millisecond)
	store.cleanup()

	store.mu.RLock()
	_, exists := store.conversations["stale"]
	store.mu.RUnlock()
	if exists {
		t.Error("expired session should have been removed")
	}
}

func TestClearSession(t *testing.T) {
	store := NewStore("sys", time.Hour)
	store.Append("s1", "user", "hello")
	store.ClearSession("s1")

	history := store.History("s1")
	if len(history) != 1 {
		t.Errorf("cleared session should restart with only the system prompt, got %d turns", len(history))
	}
}
