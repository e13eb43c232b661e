// LLMClient - Simple wrapper around providers.

package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoChoices is returned when a provider answers without any choice.
var ErrNoChoices = errors.New("completion has no choices")

// Client wraps a Provider with a simple interface.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// GetChatCompletion sends history to the model on behalf of actor.
// The returned completion always has at least one choice.
func (c *Client) GetChatCompletion(ctx context.Context, history []ChatMessage, model string, temperature float32, actor string) (Completion, error) {
	if model == "" {
		model = c.provider.DefaultModel()
	}

	messages := make([]ChatMessage, len(history))
	copy(messages, history)

	completion, err := c.provider.Complete(ctx, CompletionRequest{
		Messages:    messages,
		Model:       model,
		Temperature: temperature,
		User:        actor,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	if len(completion.Choices) == 0 {
		return Completion{}, fmt.Errorf("%s: %w", c.provider.Name(), ErrNoChoices)
	}
	return completion, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
