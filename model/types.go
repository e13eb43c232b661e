// Package model provides domain types shared across packages.
package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/richinex/abbot/command"
	"github.com/richinex/abbot/llm"
)

// User identifies a chat participant.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// String renders the user the way requests present the sender.
func (u User) String() string {
	if u.Name == "" {
		return u.ID
	}
	return fmt.Sprintf("%s (ID: %s)", u.Name, u.ID)
}

// ChatMessage is an inbound message from the chat platform.
type ChatMessage struct {
	ID       string    `json:"id"`
	From     User      `json:"from"`
	Text     string    `json:"text"`
	Room     string    `json:"room"`
	ThreadID string    `json:"thread_id,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// ModelSettings are captured when a session starts and never change.
type ModelSettings struct {
	Model          string  `json:"model"`
	Temperature    float32 `json:"temperature"`
	PromptTemplate string  `json:"prompt_template"`
}

// IterationResult is the outcome of executing one command.
// It is either EndTurn or ContinueTurn.
type IterationResult interface {
	isIterationResult()
}

// EndTurn finishes the turn. A nil ResponseMessage means nothing is posted.
type EndTurn struct {
	ResponseMessage *string
	Synthesized     bool
}

func (EndTurn) isIterationResult() {}

// ContinueTurn feeds NextRequest to the model as the next iteration's request.
type ContinueTurn struct {
	NextRequest string
}

func (ContinueTurn) isIterationResult() {}

// Iteration is one request/response/command/result cycle.
type Iteration struct {
	Number   int
	Request  llm.ChatMessage
	Response *llm.ChatMessage
	Parsed   command.Reasoned[[]command.Command]
	Result   IterationResult
}

// Turn is one inbound message and the iterations spent answering it.
type Turn struct {
	Message    ChatMessage
	Iterations []*Iteration
	Complete   bool
}

// Append adds an iteration to the turn.
func (t *Turn) Append(it *Iteration) {
	t.Iterations = append(t.Iterations, it)
}

// MarkComplete flags the turn finished. Calling it twice is a bug.
func (t *Turn) MarkComplete() {
	if t.Complete {
		panic("model: turn completed twice")
	}
	t.Complete = true
}

// Session is one conversation driven by a single initiating user.
type Session struct {
	ID            string
	Organization  string
	Room          string
	ThreadID      string
	Initiator     User
	ModelSettings ModelSettings
	SystemPrompt  string
	DebugMode     bool

	turns   []*Turn
	semOnce sync.Once
	sem     *semaphore.Weighted
}

// SessionOptions holds the immutable identity of a new session.
type SessionOptions struct {
	Organization  string
	Room          string
	ThreadID      string
	Initiator     User
	ModelSettings ModelSettings
	SystemPrompt  string
	DebugMode     bool
}

// NewSession creates a session with a fresh ID.
func NewSession(opts SessionOptions) *Session {
	return &Session{
		ID:            uuid.New().String(),
		Organization:  opts.Organization,
		Room:          opts.Room,
		ThreadID:      opts.ThreadID,
		Initiator:     opts.Initiator,
		ModelSettings: opts.ModelSettings,
		SystemPrompt:  opts.SystemPrompt,
		DebugMode:     opts.DebugMode,
	}
}

// slot returns the turn semaphore, creating it on first use so that
// sessions built as literals are usable too.
func (s *Session) slot() *semaphore.Weighted {
	s.semOnce.Do(func() { s.sem = semaphore.NewWeighted(1) })
	return s.sem
}

// Acquire blocks until the caller holds the session's single turn slot.
func (s *Session) Acquire(ctx context.Context) error {
	return s.slot().Acquire(ctx, 1)
}

// Release returns the turn slot taken by Acquire.
func (s *Session) Release() {
	s.slot().Release(1)
}

// Turns returns the session's turns in append order.
func (s *Session) Turns() []*Turn {
	out := make([]*Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AppendTurn records a finished (or failed) turn.
func (s *Session) AppendTurn(t *Turn) {
	s.turns = append(s.turns, t)
}

// History rebuilds the model-facing transcript: the system prompt, then every
// recorded request and response in order.
func (s *Session) History() []llm.ChatMessage {
	history := []llm.ChatMessage{llm.SystemMessage(s.SystemPrompt)}
	for _, t := range s.turns {
		for _, it := range t.Iterations {
			history = append(history, it.Request)
			if it.Response != nil {
				history = append(history, *it.Response)
			}
		}
	}
	return history
}
