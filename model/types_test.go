package model

import (
	"context"
	"testing"
	"time"

	"github.com/richinex/abbot/llm"
)

func TestUserString(t *testing.T) {
	if got := (User{ID: "U1", Name: "alice"}).String(); got != "alice (ID: U1)" {
		t.Errorf("unexpected rendering %q", got)
	}
	if got := (User{ID: "U1"}).String(); got != "U1" {
		t.Errorf("expected bare ID when name is empty, got %q", got)
	}
}

func TestNewSessionAssignsID(t *testing.T) {
	a := NewSession(SessionOptions{Organization: "acme"})
	b := NewSession(SessionOptions{Organization: "acme"})
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Organization != "acme" {
		t.Errorf("expected organization to be copied, got %q", a.Organization)
	}
}

func TestHistory(t *testing.T) {
	s := NewSession(SessionOptions{SystemPrompt: "sys"})

	resp := llm.AssistantMessage("r1")
	s.AppendTurn(&Turn{Iterations: []*Iteration{
		{Number: 1, Request: llm.UserMessage("q1"), Response: &resp},
	}})
	// A failed turn whose model call never returned keeps only its request.
	s.AppendTurn(&Turn{Iterations: []*Iteration{
		{Number: 1, Request: llm.UserMessage("q2")},
	}})

	history := s.History()
	want := []llm.ChatMessage{
		llm.SystemMessage("sys"),
		llm.UserMessage("q1"),
		llm.AssistantMessage("r1"),
		llm.UserMessage("q2"),
	}
	if len(history) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(history))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, history[i], want[i])
		}
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	s := NewSession(SessionOptions{})
	s.AppendTurn(&Turn{})

	turns := s.Turns()
	turns[0] = nil
	if s.Turns()[0] == nil {
		t.Error("mutating the returned slice changed the session")
	}
}

func TestMarkCompleteTwicePanics(t *testing.T) {
	turn := &Turn{}
	turn.MarkComplete()
	if !turn.Complete {
		t.Fatal("expected turn to be complete")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected second MarkComplete to panic")
		}
	}()
	turn.MarkComplete()
}

func TestAcquireHonorsContext(t *testing.T) {
	s := NewSession(SessionOptions{})
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer s.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Error("expected second Acquire to time out while the slot is held")
	}
}

func TestLiteralSessionAcquire(t *testing.T) {
	s := &Session{ID: "s"}
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire on literal session failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Error("expected the literal session's slot to be exclusive")
	}
	s.Release()

	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after Release failed: %v", err)
	}
	s.Release()
}
