// DeepSeek Provider: the OpenAI-compatible DeepSeek API.

package llm

const deepseekBaseURL = "https://api.deepseek.com/v1"

// NewDeepSeekProvider creates a provider for the DeepSeek API.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32) *OpenAIProvider {
	return newOpenAICompatibleProvider("deepseek", apiKey, deepseekBaseURL, model, maxTokens)
}
