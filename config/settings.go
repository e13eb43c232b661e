// Package config provides application settings loaded from an optional YAML
// file and environment variables.
//
// Settings are created via New() or Load() which handle:
// - Default value application
// - YAML file overlay (unknown keys rejected)
// - Environment variable parsing with validation (environment wins)
// - Provider-specific configuration lookup

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Memory drivers.
const (
	MemoryDriverInMemory = "memory"
	MemoryDriverSqlite   = "sqlite"
)

// Settings holds all application configuration.
type Settings struct {
	LLM          LLMConfig       `yaml:"llm"`
	Responder    ResponderConfig `yaml:"responder"`
	Chat         ChatConfig      `yaml:"chat"`
	Memory       MemoryConfig    `yaml:"memory"`
	Organization string          `yaml:"organization"`
	LogLevel     string          `yaml:"log_level"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   uint32  `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ResponderConfig holds turn execution configuration.
type ResponderConfig struct {
	MaxIterations int  `yaml:"max_iterations"`
	Debug         bool `yaml:"debug"`
}

// ChatConfig holds chat platform configuration. An empty APIToken selects
// the console client.
type ChatConfig struct {
	APIToken   string `yaml:"api_token"`
	BaseURL    string `yaml:"base_url"`
	Room       string `yaml:"room"`
	MaxRetries uint32 `yaml:"max_retries"`
}

// MemoryConfig selects the memory store backend.
type MemoryConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// defaults returns settings before any file or environment overlay.
func defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Responder: ResponderConfig{MaxIterations: 3},
		Chat: ChatConfig{
			BaseURL:    "https://slack.com/api",
			Room:       "console",
			MaxRetries: 3,
		},
		Memory:       MemoryConfig{Driver: MemoryDriverInMemory},
		Organization: "default",
		LogLevel:     "info",
	}
}

// Load creates settings from the YAML file at path (skipped when path is
// empty), then applies environment variables on top. An explicit provider
// argument wins over LLM_PROVIDER, which wins over the file.
func Load(path, provider string) (Settings, error) {
	s := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		if err := decodeYAML(f, &s); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	switch {
	case provider != "":
		s.LLM.Provider = provider
	case os.Getenv("LLM_PROVIDER") != "":
		s.LLM.Provider = os.Getenv("LLM_PROVIDER")
	case s.LLM.Provider == "":
		s.LLM.Provider = "openai"
	}
	s.LLM.Provider = normalizeProvider(s.LLM.Provider)

	info, err := getProviderInfo(s.LLM.Provider)
	if err != nil {
		return Settings{}, err
	}

	if err := applyEnv(&s, info); err != nil {
		return Settings{}, err
	}
	if s.LLM.Model == "" {
		s.LLM.Model = info.defaultModel
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func decodeYAML(r io.Reader, s *Settings) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(s *Settings, info providerInfo) error {
	var err error

	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature); err != nil {
		return err
	}
	if val := os.Getenv(info.modelEnv); val != "" {
		s.LLM.Model = val
	}

	if s.Responder.MaxIterations, err = getEnvInt("RESPONDER_MAX_ITERATIONS", s.Responder.MaxIterations); err != nil {
		return err
	}
	if s.Responder.Debug, err = getEnvBool("RESPONDER_DEBUG", s.Responder.Debug); err != nil {
		return err
	}

	s.Chat.APIToken = getEnvString("CHAT_API_TOKEN", s.Chat.APIToken)
	s.Chat.BaseURL = getEnvString("CHAT_BASE_URL", s.Chat.BaseURL)
	s.Chat.Room = getEnvString("CHAT_ROOM", s.Chat.Room)
	if s.Chat.MaxRetries, err = getEnvUint32("CHAT_MAX_RETRIES", s.Chat.MaxRetries); err != nil {
		return err
	}

	s.Memory.Driver = strings.ToLower(getEnvString("MEMORY_DRIVER", s.Memory.Driver))
	s.Memory.Path = getEnvString("MEMORY_PATH", s.Memory.Path)

	s.Organization = getEnvString("ABBOT_ORGANIZATION", s.Organization)
	s.LogLevel = getEnvString("LOG_LEVEL", s.LogLevel)
	return nil
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	if s.Responder.MaxIterations < 1 {
		return fmt.Errorf("responder.max_iterations must be at least 1, got %d", s.Responder.MaxIterations)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", s.LLM.Temperature)
	}
	switch s.Memory.Driver {
	case MemoryDriverInMemory:
	case MemoryDriverSqlite:
		if s.Memory.Path == "" {
			return fmt.Errorf("memory.path is required for the %s driver", MemoryDriverSqlite)
		}
	default:
		return fmt.Errorf("unknown memory driver: %q", s.Memory.Driver)
	}
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// SupportedProviders returns the supported provider names in order.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
