// Provider factory: resolves a provider name to a configured Provider.
//
//	provider, err := llm.ProviderAnthropic.
//	    Model(llm.ModelAnthropicClaudeSonnet4).
//	    MaxTokens(2048).
//	    FromEnv()
//
// Temperature is not part of the provider: sessions freeze it with their
// model settings and pass it on every call.

package llm

import (
	"fmt"
	"os"
	"strings"
)

// DefaultMaxTokens caps responses when the builder is given no budget.
const DefaultMaxTokens uint32 = 4096

// Model identifier constants for the supported providers.
const (
	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"

	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeHaiku4  = "claude-haiku-4-20250514"

	ModelDeepSeekChat     = "deepseek-chat"
	ModelDeepSeekReasoner = "deepseek-reasoner"

	ModelGeminiFlash25 = "gemini-2.5-flash"
	ModelGeminiPro25   = "gemini-2.5-pro"
)

// ProviderType identifies a supported LLM provider.
type ProviderType int

const (
	ProviderOpenAI ProviderType = iota
	ProviderAnthropic
	ProviderDeepSeek
	ProviderGemini
)

type providerSpec struct {
	name         string
	aliases      []string
	apiKeyEnv    string
	defaultModel string
	build        func(apiKey, model string, maxTokens uint32) Provider
}

var providerSpecs = map[ProviderType]providerSpec{
	ProviderOpenAI: {
		name:         "openai",
		aliases:      []string{"gpt"},
		apiKeyEnv:    "OPENAI_API_KEY",
		defaultModel: ModelOpenAIGPT4o,
		build: func(key, model string, tokens uint32) Provider {
			return NewOpenAIProvider(key, model, tokens)
		},
	},
	ProviderAnthropic: {
		name:         "anthropic",
		aliases:      []string{"claude"},
		apiKeyEnv:    "ANTHROPIC_API_KEY",
		defaultModel: ModelAnthropicClaudeSonnet4,
		build: func(key, model string, tokens uint32) Provider {
			return NewAnthropicProvider(key, model, tokens)
		},
	},
	ProviderDeepSeek: {
		name:         "deepseek",
		apiKeyEnv:    "DEEPSEEK_API_KEY",
		defaultModel: ModelDeepSeekChat,
		build: func(key, model string, tokens uint32) Provider {
			return NewDeepSeekProvider(key, model, tokens)
		},
	},
	ProviderGemini: {
		name:         "gemini",
		aliases:      []string{"google"},
		apiKeyEnv:    "GEMINI_API_KEY",
		defaultModel: ModelGeminiFlash25,
		build: func(key, model string, tokens uint32) Provider {
			return NewGeminiProvider(key, model, tokens)
		},
	},
}

// String returns the canonical provider name.
func (p ProviderType) String() string {
	if spec, ok := providerSpecs[p]; ok {
		return spec.name
	}
	return "unknown"
}

// EnvVar returns the environment variable holding the provider's API key.
func (p ProviderType) EnvVar() string {
	return providerSpecs[p].apiKeyEnv
}

// DefaultModel returns the model used when none is configured.
func (p ProviderType) DefaultModel() string {
	return providerSpecs[p].defaultModel
}

// ParseProviderType resolves a provider name or alias, case-insensitively.
func ParseProviderType(s string) (ProviderType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, spec := range providerSpecs {
		if spec.name == name {
			return p, nil
		}
		for _, alias := range spec.aliases {
			if alias == name {
				return p, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown provider: %s", s)
}

// FromEnv creates a provider with defaults, reading the API key from the environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// ProviderBuilder configures a provider before construction.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
}

// NewProviderBuilder creates a builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model used when a request names none.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens sets the response token budget.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// FromEnv builds the provider, reading the API key from the environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	spec, ok := providerSpecs[b.providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %d", int(b.providerType))
	}

	model := b.model
	if model == "" {
		model = spec.defaultModel
	}
	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	return spec.build(apiKey, model, maxTokens), nil
}
