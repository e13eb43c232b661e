package responder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/richinex/abbot/chat"
	"github.com/richinex/abbot/llm"
	"github.com/richinex/abbot/memory"
	"github.com/richinex/abbot/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// step is one scripted model reply.
type step struct {
	content   string
	role      string
	err       error
	noChoices bool
}

func reply(content string) step { return step{content: content, role: llm.RoleAssistant} }

// scriptedCompleter replays steps in order, repeating the last one.
type scriptedCompleter struct {
	mu        sync.Mutex
	steps     []step
	histories [][]llm.ChatMessage
	actors    []string
	models    []string
	temps     []float32

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	gate        chan struct{}
}

func (c *scriptedCompleter) GetChatCompletion(ctx context.Context, history []llm.ChatMessage, model string, temperature float32, actor string) (llm.Completion, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if n <= peak || c.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return llm.Completion{}, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]llm.ChatMessage, len(history))
	copy(copied, history)
	c.histories = append(c.histories, copied)
	c.actors = append(c.actors, actor)
	c.models = append(c.models, model)
	c.temps = append(c.temps, temperature)

	i := len(c.histories) - 1
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	s := c.steps[i]
	if s.err != nil {
		return llm.Completion{}, s.err
	}
	if s.noChoices {
		return llm.Completion{}, nil
	}
	return llm.Completion{Choices: []llm.Choice{{Message: llm.ChatMessage{Role: s.role, Content: s.content}}}}, nil
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.histories)
}

// recordingChat records every call and answers with configurable results.
type recordingChat struct {
	mu        sync.Mutex
	messages  []chat.Message
	uploads   []chat.File
	tokens    []string
	postResp  *chat.Response
	postErr   error
	uploadErr error
}

func (c *recordingChat) PostMessage(ctx context.Context, token string, msg chat.Message) (chat.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.tokens = append(c.tokens, token)
	if c.postErr != nil {
		return chat.Response{}, c.postErr
	}
	if c.postResp != nil {
		return *c.postResp, nil
	}
	return chat.Response{OK: true}, nil
}

func (c *recordingChat) UploadFile(ctx context.Context, token string, file chat.File) (chat.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads = append(c.uploads, file)
	if c.uploadErr != nil {
		return chat.Response{}, c.uploadErr
	}
	return chat.Response{OK: true}, nil
}

func (c *recordingChat) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.Text)
	}
	return out
}

// failingStore fails every call.
type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string, string) (*memory.Entry, error) {
	return nil, s.err
}
func (s failingStore) Search(context.Context, []string, string) ([]memory.Entry, error) {
	return nil, s.err
}
func (s failingStore) Set(context.Context, string, string, string, string) (*memory.Entry, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, string, string) error { return s.err }

var errBoom = errors.New("boom")

var alice = model.User{ID: "U1", Name: "alice"}

func newSession(debug bool) *model.Session {
	return model.NewSession(model.SessionOptions{
		Organization:  "acme",
		Room:          "C1",
		ThreadID:      "111.222",
		Initiator:     alice,
		ModelSettings: model.ModelSettings{Model: "gpt-test", Temperature: 0.3},
		SystemPrompt:  "You are a helpful bot.",
		DebugMode:     debug,
	})
}

func inbound(text string) model.ChatMessage {
	return model.ChatMessage{ID: "M1", From: alice, Text: text, Room: "C1", ThreadID: "111.222"}
}
