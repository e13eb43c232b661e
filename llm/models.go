// Package llm provides shared data models for LLM providers.
package llm

// Chat roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	// Messages is the full conversation so far, oldest first.
	Messages []ChatMessage
	// Model overrides the provider's default model when set.
	Model string
	// Temperature controls sampling (0.0 = deterministic).
	Temperature float32
	// User identifies the human the call is made on behalf of.
	User string
}

// Choice is one candidate answer.
type Choice struct {
	Message      ChatMessage
	FinishReason string
}

// Completion is a provider's answer to a CompletionRequest.
type Completion struct {
	Choices []Choice
	Usage   *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
